package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"merklesig/internal/domain"
)

// HTTP is a domain.RelayClient speaking JSON to a relay Server.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base. A nil client uses
// http.DefaultClient.
func NewHTTP(base string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{Base: base, HTTP: client}
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay %s %s: %s", e.Method, e.Path, e.Status)
}

// Unwrap maps 404 to domain.ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return nil
}

// PublishKey uploads key under its name.
func (c *HTTP) PublishKey(ctx context.Context, key domain.PublishedKey) error {
	return c.do(ctx, http.MethodPut, "/keys/"+url.PathEscape(key.Name.String()), key, nil)
}

// FetchKey downloads the key published under name.
func (c *HTTP) FetchKey(ctx context.Context, name domain.KeyName) (domain.PublishedKey, error) {
	var out domain.PublishedKey
	if err := c.do(ctx, http.MethodGet, "/keys/"+url.PathEscape(name.String()), nil, &out); err != nil {
		return domain.PublishedKey{}, err
	}
	return out, nil
}

// SendMessage posts env to the recipient's mailbox.
func (c *HTTP) SendMessage(ctx context.Context, env domain.Envelope) error {
	return c.do(ctx, http.MethodPost, "/msg/"+url.PathEscape(env.To.String()), env, nil)
}

// FetchMessages returns up to limit queued envelopes; limit <= 0 means all.
func (c *HTTP) FetchMessages(ctx context.Context, username domain.Username, limit int) ([]domain.Envelope, error) {
	path := "/msg/" + url.PathEscape(username.String())
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.do(ctx, http.MethodGet, path, nil, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// AckMessages drops the first count envelopes of the mailbox.
func (c *HTTP) AckMessages(ctx context.Context, username domain.Username, count int) error {
	return c.do(ctx, http.MethodPost, "/msg/"+url.PathEscape(username.String())+"/ack", ackRequest{Count: count}, nil)
}

// Verify asks the relay to check a signature.
func (c *HTTP) Verify(ctx context.Context, publicKey, message, signature []byte) (bool, error) {
	var out verifyResponse
	in := verifyRequest{PublicKey: publicKey, Message: message, Signature: signature}
	if err := c.do(ctx, http.MethodPost, "/verify", in, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *HTTP) do(ctx context.Context, method, path string, in any, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, &body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ domain.RelayClient = (*HTTP)(nil)
