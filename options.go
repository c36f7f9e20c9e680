package fcclient

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientOptions configures a Client. Build one with DefaultClientOptions
// (or LoadOptionsFile) to get the documented defaults, then override
// individual fields, rather than writing a bare struct literal: a zero
// Go bool can't distinguish "UseWebSockets left unset" from "explicitly
// disabled", so a literal's zero value for UseWebSockets is false, not
// the spec-documented default of true.
type ClientOptions struct {
	// Host is the site host commands are built against, e.g.
	// "example-chat.test". Required.
	Host string `yaml:"host"`

	// Username and Password authenticate the login handshake. Use
	// Username "guest"-prefixed and Password "guest" for anonymous
	// sessions; the connection manager recycles the server-assigned
	// guest name back to "guest" on disconnect.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// UseWebSockets selects the text dialect over WebSocket when true
	// (the default), the binary dialect over raw TCP when false.
	UseWebSockets bool `yaml:"useWebSockets"`

	// CamYou prefixes the login username with the alternate site's user
	// prefix ("2/"). It does not change Host.
	CamYou bool `yaml:"camYou"`

	// UseCachedServerConfig skips the server-config fetch and reuses
	// whatever config was fetched on a previous connection, or fails if
	// none was ever fetched.
	UseCachedServerConfig bool `yaml:"useCachedServerConfig"`

	SilenceTimeout      time.Duration `yaml:"silenceTimeout"`
	StateSilenceTimeout time.Duration `yaml:"stateSilenceTimeout"`
	LoginTimeout        time.Duration `yaml:"loginTimeout"`
	ConnectionTimeout   time.Duration `yaml:"connectionTimeout"`

	// HttpGet overrides the HTTP client used for server-config and
	// EXTDATA fetches. Nil selects fetch.Default(http.DefaultClient).
	HttpGet HttpGet `yaml:"-"`

	// EmoteEncoder overrides how ":code:" sequences in outbound chat and
	// PM text are rewritten before transmission. Nil selects a no-op
	// encoder that sends text unmodified.
	EmoteEncoder Encoder `yaml:"-"`
}

const (
	defaultSilenceTimeoutMs      = 90_000
	defaultStateSilenceTimeoutMs = 120_000
	defaultLoginTimeoutMs        = 30_000
)

// DefaultClientOptions returns the documented defaults for host/username/
// password: WebSocket dialect, primary site, live server-config fetch,
// and the standard timeout table.
func DefaultClientOptions(host, username, password string) ClientOptions {
	return ClientOptions{
		Host:          host,
		Username:      username,
		Password:      password,
		UseWebSockets: true,
	}.withDefaults()
}

// withDefaults returns a copy of o with the unset silence, state-silence
// and login timeouts filled in from the documented defaults.
// ConnectionTimeout and UseWebSockets are left as they are.
func (o ClientOptions) withDefaults() ClientOptions {
	if o.SilenceTimeout == 0 {
		o.SilenceTimeout = defaultSilenceTimeoutMs * time.Millisecond
	}
	if o.StateSilenceTimeout == 0 {
		o.StateSilenceTimeout = defaultStateSilenceTimeoutMs * time.Millisecond
	}
	if o.LoginTimeout == 0 {
		o.LoginTimeout = defaultLoginTimeoutMs * time.Millisecond
	}
	return o
}

// rawClientOptions mirrors ClientOptions for YAML decoding: UseWebSockets
// needs a tri-state default (true unless explicitly set to false), so it
// decodes through a pointer here and gets resolved in LoadOptionsFile.
type rawClientOptions struct {
	Host                  string `yaml:"host"`
	Username              string `yaml:"username"`
	Password              string `yaml:"password"`
	UseWebSockets         *bool  `yaml:"useWebSockets"`
	CamYou                bool   `yaml:"camYou"`
	UseCachedServerConfig bool   `yaml:"useCachedServerConfig"`
	SilenceTimeoutMs      int    `yaml:"silenceTimeout"`
	StateSilenceTimeoutMs int    `yaml:"stateSilenceTimeout"`
	LoginTimeoutMs        int    `yaml:"loginTimeout"`
	ConnectionTimeoutMs   int    `yaml:"connectionTimeout"`
}

// LoadOptionsFile reads ClientOptions from a YAML file at path, starting
// from the documented defaults and overriding whatever fields the file
// sets.
func LoadOptionsFile(path string) (*ClientOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := rawClientOptions{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	opts := ClientOptions{
		Host:                  raw.Host,
		Username:              raw.Username,
		Password:              raw.Password,
		UseWebSockets:         true,
		CamYou:                raw.CamYou,
		UseCachedServerConfig: raw.UseCachedServerConfig,
		SilenceTimeout:        time.Duration(raw.SilenceTimeoutMs) * time.Millisecond,
		StateSilenceTimeout:   time.Duration(raw.StateSilenceTimeoutMs) * time.Millisecond,
		LoginTimeout:          time.Duration(raw.LoginTimeoutMs) * time.Millisecond,
		ConnectionTimeout:     time.Duration(raw.ConnectionTimeoutMs) * time.Millisecond,
	}
	if raw.UseWebSockets != nil {
		opts.UseWebSockets = *raw.UseWebSockets
	}
	opts = opts.withDefaults()
	return &opts, nil
}
