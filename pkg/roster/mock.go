package roster

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a mock roster client for testing
type MockClient struct {
	mu        sync.Mutex
	documents map[string]*Document
	baseURL   string
	fetchErr  error
	fetched   []string
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithDocument serves doc for ref
func WithDocument(ref string, doc *Document) MockOption {
	return func(m *MockClient) {
		m.documents[ref] = doc
	}
}

// WithFetchError sets an error to return from FetchCommittee
func WithFetchError(err error) MockOption {
	return func(m *MockClient) {
		m.fetchErr = err
	}
}

// WithBaseURL sets the base URL
func WithBaseURL(url string) MockOption {
	return func(m *MockClient) {
		m.baseURL = url
	}
}

// NewMockClient creates a new mock roster client. Without options it serves
// DefaultMockDocument under the reference "mock".
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		baseURL:   "http://mock-roster.local",
		documents: map[string]*Document{"mock": DefaultMockDocument()},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BaseURL returns the configured base URL
func (m *MockClient) BaseURL() string {
	return m.baseURL
}

// SetBaseURL updates the base URL
func (m *MockClient) SetBaseURL(url string) {
	m.baseURL = url
}

// FetchCommittee returns the document registered for ref
func (m *MockClient) FetchCommittee(ctx context.Context, ref string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, ref)
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	doc, ok := m.documents[ref]
	if !ok {
		return nil, fmt.Errorf("roster provider returned status 404: committee %s not found", ref)
	}
	return doc, nil
}

// Fetched returns every reference requested so far
func (m *MockClient) Fetched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}

// DefaultMockDocument returns a small committee useful for demos and tests
func DefaultMockDocument() *Document {
	return &Document{
		Name:      "Mock Security Council",
		Countries: GenerateMockMembers(),
	}
}

// GenerateMockMembers returns the fifteen seats of a security council style roster
func GenerateMockMembers() []Member {
	seats := []struct{ name, code string }{
		{"China", "CHN"}, {"France", "FRA"}, {"Russia", "RUS"}, {"United Kingdom", "GBR"},
		{"United States", "USA"}, {"Algeria", "DZA"}, {"Denmark", "DNK"}, {"Greece", "GRC"},
		{"Guyana", "GUY"}, {"Pakistan", "PAK"}, {"Panama", "PAN"}, {"South Korea", "KOR"},
		{"Sierra Leone", "SLE"}, {"Slovenia", "SVN"}, {"Somalia", "SOM"},
	}
	members := make([]Member, 0, len(seats))
	for i, s := range seats {
		members = append(members, Member{
			ID:         FlexString(fmt.Sprintf("%d", i+1)),
			Name:       s.name,
			Code:       s.code,
			FlagQuery:  s.name,
			Attendance: "present",
		})
	}
	return members
}
