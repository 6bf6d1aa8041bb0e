package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"studymate/log"
)

const DefaultTimeout = 30 * time.Second

// Client talks to the single notes endpoint: POST submits a recording, GET
// lists the transcribed notes. Each call makes exactly one network attempt.
type Client struct {
	endpoint string
	http     *TracedClient
	format   string
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = NewTracedClient(d) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = WrapClient(hc) }
}

// WithFormat names the audio format in submit log lines.
func WithFormat(format string) Option {
	return func(c *Client) { c.format = format }
}

func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: need an http(s) URL", endpoint)
	}
	c := &Client{endpoint: endpoint, format: "wav"}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewTracedClient(DefaultTimeout)
	}
	return c, nil
}

func (c *Client) Endpoint() string { return c.endpoint }

func (c *Client) newRequest(ctx context.Context, method string, body []byte) (*http.Request, string, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint, rd)
	if err != nil {
		return nil, "", err
	}
	id := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", id)
	return req, id, nil
}

func requestMetrics(resp *TracedResponse, reqBytes int, id string) log.RequestMetrics {
	m := resp.Metrics
	return log.RequestMetrics{
		Status:     resp.StatusCode,
		ReqBytes:   reqBytes,
		RespBytes:  len(resp.Body),
		DNSMs:      float64(m.DNS.Microseconds()) / 1000,
		TLSMs:      float64(m.TLS.Microseconds()) / 1000,
		TTFBMs:     float64(m.TTFB.Microseconds()) / 1000,
		TotalMs:    float64(m.Total.Microseconds()) / 1000,
		ConnReused: m.ConnReused,
		TLSProto:   m.TLSProtocol,
		RequestID:  id,
	}
}

// Submit POSTs one recording. Any non-2xx response or transport failure is
// returned as *RequestError; Message carries the body's "message" if present.
func (c *Client) Submit(ctx context.Context, r Request) (SubmitResponse, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return SubmitResponse{}, &RequestError{Err: err}
	}
	req, id, err := c.newRequest(ctx, http.MethodPost, body)
	if err != nil {
		return SubmitResponse{}, &RequestError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Errorf("submit_failed: %v", err)
		return SubmitResponse{}, &RequestError{Err: err}
	}
	log.Submit(requestMetrics(resp, len(body), id), c.format)

	if !resp.OK() {
		var mb messageBody
		json.Unmarshal(resp.Body, &mb)
		return SubmitResponse{}, &RequestError{Status: resp.StatusCode, Message: mb.Message}
	}

	var out SubmitResponse
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return SubmitResponse{}, &RequestError{
				Status:  resp.StatusCode,
				Message: "invalid response body",
				Err:     err,
			}
		}
	}
	return out, nil
}

// FetchNotes GETs the whole note collection in server order. A missing or
// empty "notes" array yields an empty, non-nil slice.
func (c *Client) FetchNotes(ctx context.Context) ([]Note, error) {
	req, id, err := c.newRequest(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Errorf("fetch_failed: %v", err)
		return nil, &FetchError{Err: err}
	}
	if !resp.OK() {
		log.Fetch(requestMetrics(resp, 0, id), 0)
		return nil, &FetchError{Status: resp.StatusCode}
	}

	var nr notesResponse
	if err := json.Unmarshal(resp.Body, &nr); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("decoding notes: %w", err)}
	}
	notes := nr.Notes
	if notes == nil {
		notes = []Note{}
	}
	log.Fetch(requestMetrics(resp, 0, id), len(notes))
	for _, n := range notes {
		log.NoteText(n.NoteID, n.NoteContent, n.Time())
	}
	return notes, nil
}

// Warm pre-establishes a connection to the endpoint.
func (c *Client) Warm(ctx context.Context) {
	if d := c.http.Warm(ctx, c.endpoint); d > 0 {
		log.Infof("connection_warmed: tls=%s", d)
	}
}
