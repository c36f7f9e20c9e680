// Package emote implements the outbound half of emote handling: turning a
// chat message's ":<code>" shortcodes into the wire's
// "#~ue,<hash>.gif,<code>~#" syntax before it is sent. Inbound rendering
// (the reverse direction) lives next to the rest of wire decoding in
// internal/wire, since it never needs a pluggable backend.
package emote

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/fcwire/fcclient/internal/fetch"
)

// Encoder is the external collaborator contract for outbound emote
// expansion. A default local implementation covers the common case; a
// deployment that wants server-sourced emote tables can supply its own.
type Encoder interface {
	Encode(ctx context.Context, raw string) (string, error)
}

var codeRe = regexp.MustCompile(`:([a-zA-Z0-9_]+):?`)

// LocalEncoder rewrites ":<code>" occurrences using a static code→hash
// table, entirely offline. Codes not present in the table are left
// untouched rather than dropped.
type LocalEncoder struct {
	codeToHash map[string]string
}

// NewLocalEncoder returns a LocalEncoder backed by codeToHash, a mapping
// from emote code (without colons) to its gif hash.
func NewLocalEncoder(codeToHash map[string]string) *LocalEncoder {
	return &LocalEncoder{codeToHash: codeToHash}
}

func (e *LocalEncoder) Encode(_ context.Context, raw string) (string, error) {
	return codeRe.ReplaceAllStringFunc(raw, func(match string) string {
		code := codeRe.FindStringSubmatch(match)[1]
		hash, ok := e.codeToHash[code]
		if !ok {
			return match
		}
		return fmt.Sprintf("#~ue,%s.gif,%s~#", hash, code)
	}), nil
}

// HTTPEncoder delegates emote expansion to an HTTPS endpoint, for
// deployments that want server-sourced emote tables without embedding a
// local code→hash table.
type HTTPEncoder struct {
	get      fetch.HttpGet
	endpoint string
}

// NewHTTPEncoder returns an Encoder that issues one GET to endpoint per
// message, with raw in the "text" query parameter (matching the rest of
// this library's HttpGet-only contract), and returns the response body.
func NewHTTPEncoder(get fetch.HttpGet, endpoint string) *HTTPEncoder {
	return &HTTPEncoder{get: get, endpoint: endpoint}
}

func (e *HTTPEncoder) Encode(ctx context.Context, raw string) (string, error) {
	reqURL := fmt.Sprintf("%s?text=%s", e.endpoint, url.QueryEscape(raw))
	return e.get(ctx, reqURL)
}
