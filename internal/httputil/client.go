// Package httputil carries the HTTP plumbing shared by the provider
// clients and the monitor handlers: a request seam the imagery and
// classifier clients dial through, and uniform JSON response helpers.
package httputil

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// HTTPClient is the request seam for the imagery catalog and the
// land-cover classifier. Production wires *StandardClient;
// tests script responses with *MockHTTPClient.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StandardClient dials through a *http.Client.
type StandardClient struct {
	client *http.Client
}

// NewStandardClient wraps c, falling back to http.DefaultClient when
// c is nil. Per-request deadlines come from the request context, so
// callers usually pass nil.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{client: c}
}

func (c *StandardClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// mockReply is one scripted response in a MockHTTPClient queue.
type mockReply struct {
	status int
	body   string
	err    error
}

// MockHTTPClient replays a scripted queue of responses, one per
// request, and records every request it sees so tests can assert on
// URLs, headers, and bodies. Once the queue is exhausted it answers
// 200 with an empty body.
type MockHTTPClient struct {
	mu       sync.Mutex
	requests []*http.Request
	queue    []mockReply
	next     int
}

// NewMockHTTPClient creates a mock with an empty script.
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{}
}

// AddResponse appends a canned status/body reply to the script.
func (m *MockHTTPClient) AddResponse(status int, body string) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{status: status, body: body})
	return m
}

// AddErrorResponse appends a transport-level failure to the script.
func (m *MockHTTPClient) AddErrorResponse(err error) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockReply{err: err})
	return m
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.next >= len(m.queue) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}

	reply := m.queue[m.next]
	m.next++
	if reply.err != nil {
		return nil, reply.err
	}
	return &http.Response{
		StatusCode: reply.status,
		Body:       io.NopCloser(bytes.NewBufferString(reply.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// GetRequest returns the nth recorded request, or nil when fewer than
// n+1 requests were made.
func (m *MockHTTPClient) GetRequest(n int) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.requests) {
		return nil
	}
	return m.requests[n]
}

// RequestCount returns how many requests the mock has served.
func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
