package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Config tunes the default transport's connection pooling. Zero values are
// replaced with the shared mobile profile.
type Config struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	ConnectTimeout      time.Duration
	TLSHandshakeTimeout time.Duration
	KeepAlive           time.Duration
}

// setDefaults applies the shared mobile profile to zero-valued fields:
// long-lived idle connections, aggressive keep-alive probing, HTTP/2
// preferred.
func (c *Config) setDefaults() {
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 50
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 5 * time.Minute
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.TLSHandshakeTimeout == 0 {
		c.TLSHandshakeTimeout = 10 * time.Second
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 15 * time.Second
	}
}

type redirectPolicyKey struct{}

type redirectPolicy struct {
	follow bool
	max    int
}

// Default is the pooled net/http implementation of Transport.
type Default struct {
	client    *http.Client
	transport *http.Transport
}

// NewDefault creates the default transport with a singleton http.Client;
// the client is created once and reused for every request so connection
// pooling actually happens.
func NewDefault(cfg Config) *Default {
	cfg.setDefaults()

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	tr := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	client := &http.Client{
		Transport:     tr,
		CheckRedirect: policyCheckRedirect,
	}

	return &Default{client: client, transport: tr}
}

// policyCheckRedirect enforces the per-request redirect policy carried in
// the request context. Shared by every client that is allowed to follow
// redirects; exactly one client in a transport stack may use it.
func policyCheckRedirect(req *http.Request, via []*http.Request) error {
	pol, ok := req.Context().Value(redirectPolicyKey{}).(redirectPolicy)
	if !ok {
		pol = redirectPolicy{follow: true, max: 5}
	}
	if !pol.follow {
		return http.ErrUseLastResponse
	}
	if len(via) > pol.max {
		return &Error{
			Kind: KindTooManyRedirects,
			Op:   "redirect",
			Err:  fmt.Errorf("stopped after %d redirects", pol.max),
		}
	}
	return nil
}

// Send executes one HTTP exchange. The per-request deadline is carried by
// ctx; redirect policy and decompression come from req.
func (d *Default) Send(ctx context.Context, req *Request) (*Response, error) {
	if req.HTTP3Only {
		return nil, &Error{
			Kind: KindProtocol,
			Op:   "send",
			Err:  fmt.Errorf("HTTP/3 pinning is not supported by the default transport"),
		}
	}

	target, err := buildURL(req.URL, req.Query)
	if err != nil {
		return nil, &Error{Kind: KindProtocol, Op: "send", Err: err}
	}

	ctx = context.WithValue(ctx, redirectPolicyKey{}, redirectPolicy{
		follow: req.FollowRedirects,
		max:    req.MaxRedirects,
	})

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &Error{Kind: KindProtocol, Op: "send", Err: err}
	}

	for k, vs := range req.Headers {
		httpReq.Header[k] = vs
	}

	// Requesting gzip explicitly (instead of relying on the transport's
	// transparent mode) keeps Content-Encoding and Content-Length visible
	// so the decompression saving can be measured exactly.
	if req.Decompress {
		if httpReq.Header.Get("Accept-Encoding") == "" {
			httpReq.Header.Set("Accept-Encoding", "gzip")
		}
	} else {
		httpReq.Header.Set("Accept-Encoding", "identity")
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, classify("send", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify("read body", err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
		Version:    resp.Proto,
	}

	if req.Decompress && resp.Header.Get("Content-Encoding") == "gzip" && len(raw) > 0 {
		decoded, gzErr := gunzip(raw)
		if gzErr != nil {
			return nil, &Error{Kind: KindProtocol, Op: "decompress", Err: gzErr}
		}
		out.Body = decoded
		if saved := len(decoded) - len(raw); saved > 0 {
			out.CompressionSaved = saved
		}
	}

	return out, nil
}

// CloseIdleConnections drops pooled connections; called on shutdown.
func (d *Default) CloseIdleConnections() {
	d.transport.CloseIdleConnections()
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// buildURL appends query parameters to the raw URL, merging with any
// already present.
func buildURL(raw string, query map[string]string) (string, error) {
	if len(query) == 0 {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
