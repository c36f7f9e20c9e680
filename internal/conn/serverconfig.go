package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/fcwire/fcclient/internal/fetch"
)

// ServerConfig is the decoded shape of the server-config JSON endpoint.
type ServerConfig struct {
	ChatServers      []string          `json:"chat_servers"`
	WebsocketServers map[string]string `json:"websocket_servers"`
}

// FetchServerConfig retrieves and decodes the server-config document for
// host.
func FetchServerConfig(ctx context.Context, get fetch.HttpGet, host string) (*ServerConfig, error) {
	url := fmt.Sprintf("https://www.%s/_js/serverconfig.js?nc=%d", host, rand.Int63())
	body, err := get(ctx, url)
	if err != nil {
		return nil, err
	}
	var cfg ServerConfig
	if err := json.Unmarshal([]byte(body), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PickChatServer returns a random binary-dialect server name from cfg, or
// "" if none are configured.
func (cfg *ServerConfig) PickChatServer() string {
	if cfg == nil || len(cfg.ChatServers) == 0 {
		return ""
	}
	return cfg.ChatServers[rand.Intn(len(cfg.ChatServers))]
}

// PickWebSocketServer returns a random WebSocket-dialect server name's key
// from cfg, or "" if none are configured.
func (cfg *ServerConfig) PickWebSocketServer() string {
	if cfg == nil || len(cfg.WebsocketServers) == 0 {
		return ""
	}
	keys := make([]string, 0, len(cfg.WebsocketServers))
	for k := range cfg.WebsocketServers {
		keys = append(keys, k)
	}
	return keys[rand.Intn(len(keys))]
}
