// Package testutil provides testing utilities for the Scryfall client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/Sternrassler/scryfall-client/pkg/card"
	"github.com/google/uuid"
)

// CollectionPath is the bulk lookup endpoint served by MockScryfall.
const CollectionPath = "/cards/collection"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// CollectionRequest is one recorded POST /cards/collection call.
type CollectionRequest struct {
	Identifiers []map[string]string
	Header      http.Header
	ReceivedAt  time.Time
	FinishedAt  time.Time
}

// MockScryfall is a configurable mock Scryfall API for testing.
//
// The /cards/collection handler resolves identifiers against a catalog of known
// cards keyed by card.Identifier.Key; everything else is echoed back in not_found.
type MockScryfall struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	known         map[string]json.RawMessage
	failBatches   map[int]MockResponse
	omitNotFound  bool
	collectionLog []CollectionRequest

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
}

// NewMockScryfall creates a new mock Scryfall server.
func NewMockScryfall() *MockScryfall {
	mock := &MockScryfall{
		handlers:    make(map[string]func(w http.ResponseWriter, r *http.Request)),
		known:       make(map[string]json.RawMessage),
		failBatches: make(map[int]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		if r.URL.Path == CollectionPath && r.Method == http.MethodPost {
			mock.collectionHandler(w, r)
			return
		}

		writeError(w, http.StatusNotFound, "not_found", "No such endpoint")
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockScryfall) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockScryfall) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a specific path.
func (m *MockScryfall) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockScryfall) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeMockResponse(w, resp)
	})
}

// AddCard registers the card returned for id. The object and id fields are
// filled in when missing; the id is derived from the identifier (see CardID).
func (m *MockScryfall) AddCard(id card.Identifier, fields map[string]any) {
	if _, ok := fields["object"]; !ok {
		fields["object"] = "card"
	}
	if _, ok := fields["id"]; !ok {
		fields["id"] = CardID(id).String()
	}
	data, err := json.Marshal(fields)
	if err != nil {
		panic(fmt.Sprintf("marshal mock card: %v", err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.known[id.Key()] = data
}

// FailBatch makes the n-th (0-based) collection request answer with resp.
func (m *MockScryfall) FailBatch(n int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failBatches[n] = resp
}

// OmitNotFound makes collection responses leave out the not_found field.
func (m *MockScryfall) OmitNotFound() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.omitNotFound = true
}

// CollectionRequests returns every recorded collection request in arrival order.
func (m *MockScryfall) CollectionRequests() []CollectionRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CollectionRequest(nil), m.collectionLog...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockScryfall) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// CardID derives the id the mock assigns to a card registered for id.
func CardID(id card.Identifier) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("scryfall-mock:"+id.Key()))
}

func (m *MockScryfall) collectionHandler(w http.ResponseWriter, r *http.Request) {
	received := time.Now()

	var body struct {
		Identifiers []map[string]string `json:"identifiers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	m.mu.Lock()
	batch := len(m.collectionLog)
	m.collectionLog = append(m.collectionLog, CollectionRequest{
		Identifiers: body.Identifiers,
		Header:      r.Header.Clone(),
		ReceivedAt:  received,
	})
	fail, failing := m.failBatches[batch]
	omitNotFound := m.omitNotFound
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.collectionLog[batch].FinishedAt = time.Now()
		m.mu.Unlock()
	}()

	if failing {
		writeMockResponse(w, fail)
		return
	}

	if len(body.Identifiers) > 75 {
		writeError(w, http.StatusUnprocessableEntity, "too_many_identifiers", "Only 75 identifiers may be requested at once")
		return
	}

	data := []json.RawMessage{}
	notFound := []map[string]string{}
	m.mu.RLock()
	for _, id := range body.Identifiers {
		if c, ok := m.known[card.Identifier(id).Key()]; ok {
			data = append(data, c)
			continue
		}
		notFound = append(notFound, id)
	}
	m.mu.RUnlock()

	resp := map[string]any{
		"object": "list",
		"data":   data,
	}
	if !omitNotFound {
		resp["not_found"] = notFound
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func writeMockResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"object":  "error",
		"status":  status,
		"code":    code,
		"details": details,
	})
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"object": "error", "status": 500, "code": "internal_error", "details": "Something went wrong"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"object": "error", "status": 429, "code": "rate_limited", "details": "You are sending requests too quickly"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewJSONResponse creates a 200 OK JSON response.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
