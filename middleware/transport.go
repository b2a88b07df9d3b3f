package middleware

import (
	"context"
	"net/http"
)

// TokenSource returns the current bearer token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Clearer drops the current session.
type Clearer interface {
	Clear(ctx context.Context) error
}

// BearerTransport attaches the session token to outgoing requests.
type BearerTransport struct {
	// Base performs the request. nil selects http.DefaultTransport.
	Base http.RoundTripper
	// Source supplies the token. Requests pass through unchanged when it
	// returns "".
	Source TokenSource
	// OnUnauthorized, when set, is cleared after a 401 response to a request
	// that carried a token.
	OnUnauthorized Clearer
}

// RoundTrip implements http.RoundTripper. The caller's request is not
// modified.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	token := ""
	if t.Source != nil {
		token = t.Source.Token()
	}
	if token == "" || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)

	resp, err := base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		_ = t.OnUnauthorized.Clear(req.Context())
	}
	return resp, nil
}

// NewClient returns an http.Client whose requests carry the token from
// source.
func NewClient(source TokenSource, base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &BearerTransport{Base: base, Source: source}}
}
