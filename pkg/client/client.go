// Package client es el SDK de la API de consent-records: sesión explícita,
// validación local de formularios y errores tipados por status.
package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"consent-records/internal/platform/httpclient"
)

const headerDebugUserID = "X-Debug-User-ID"

type Client struct {
	http    *httpclient.Client
	session *Session
	debugID string
}

type Option func(*Client)

// WithSession comparte una sesión entre clientes.
func WithSession(s *Session) Option {
	return func(c *Client) {
		if s != nil {
			c.session = s
		}
	}
}

// WithHTTPClient reemplaza el *http.Client (timeouts, transport de tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http.HTTP = h
		}
	}
}

// WithDebugUser manda X-Debug-User-ID; solo sirve contra un servidor en modo dev.
func WithDebugUser(userID string) Option {
	return func(c *Client) { c.debugID = userID }
}

// New crea un cliente para baseURL (ej: http://localhost:8080).
func New(baseURL string, opts ...Option) (*Client, error) {
	h, err := httpclient.NewWithBaseURL(baseURL, httpclient.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	if h.BaseURL == "" {
		return nil, errors.New("client: base url required")
	}
	c := &Client{http: h, session: NewSession()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) Session() *Session { return c.session }

func (c *Client) do(ctx context.Context, req httpclient.Request, out any) error {
	headers := map[string]string{}
	for k, v := range req.Headers {
		headers[k] = v
	}
	if tok := c.session.Token(); tok != "" {
		headers["Authorization"] = "Bearer " + tok
	} else if c.debugID != "" {
		headers[headerDebugUserID] = c.debugID
	}
	req.Headers = headers

	err := translate(c.http.Do(ctx, req, out))
	var ae *AuthError
	if errors.As(err, &ae) {
		c.session.Clear()
	}
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, requestFor(http.MethodGet, path), out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, httpclient.Request{Method: method, Path: path, JSON: in}, out)
}

func pageQuery(page, size int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	return q
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func requestFor(method, path string) httpclient.Request {
	return httpclient.Request{Method: method, Path: path}
}
