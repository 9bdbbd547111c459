package roster

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abrezinsky/gavel/internal/logger"
)

func TestHTTPClient_FetchCommittee_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/committees/unsc-2026" {
			t.Errorf("expected path /committees/unsc-2026, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Write([]byte(`{"name":"UNSC","countries":[{"id":7,"name":"France","code":"FRA","flag_query":"fr"},{"id":"x8","name":"Kenya","code":"KEN"}],"settings":{"enable_voting":false}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Discard())
	doc, err := client.FetchCommittee(context.Background(), "unsc-2026")
	if err != nil {
		t.Fatalf("FetchCommittee failed: %v", err)
	}
	if doc.Name != "UNSC" || len(doc.Countries) != 2 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Countries[0].ID != "7" || doc.Countries[1].ID != "x8" {
		t.Errorf("expected flexible ids, got %q and %q", doc.Countries[0].ID, doc.Countries[1].ID)
	}
	if doc.Settings == nil || doc.Settings.EnableVoting == nil || *doc.Settings.EnableVoting {
		t.Errorf("expected enable_voting=false, got %+v", doc.Settings)
	}
	if doc.Settings.ShowTimer != nil {
		t.Error("absent settings should stay nil")
	}
}

func TestHTTPClient_SendsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer s3cret" {
			t.Errorf("expected bearer token, got %q", got)
		}
		json.NewEncoder(w).Encode(Document{Name: "WHO"})
	}))
	defer server.Close()

	client := NewHTTPClientWithHTTPClient(server.URL+"/", server.Client(), logger.Discard())
	client.SetToken("s3cret")
	if _, err := client.FetchCommittee(context.Background(), "who"); err != nil {
		t.Fatalf("FetchCommittee failed: %v", err)
	}
}

func TestHTTPClient_FetchCommittee_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"invalid json", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("not json")) }},
		{"bad id type", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"countries":[{"id":true}]}`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewHTTPClient(server.URL, logger.Discard())
			if _, err := client.FetchCommittee(context.Background(), "x"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestHTTPClient_Preconditions(t *testing.T) {
	client := NewHTTPClient("", logger.Discard())
	if _, err := client.FetchCommittee(context.Background(), "x"); err == nil {
		t.Error("expected error without base URL")
	}

	client.SetBaseURL("http://example.com")
	if client.BaseURL() != "http://example.com" {
		t.Errorf("expected base URL 'http://example.com', got %q", client.BaseURL())
	}
	if _, err := client.FetchCommittee(context.Background(), "  "); err == nil {
		t.Error("expected error for blank reference")
	}
}

func TestHTTPClient_ConnectionError(t *testing.T) {
	client := NewHTTPClient("http://localhost:99999", logger.Discard())
	if _, err := client.FetchCommittee(context.Background(), "x"); err == nil {
		t.Fatal("expected error for connection failure")
	}
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
name: Human Rights Council
settings:
  speaking_time: 90
  enable_motions: true
countries:
  - id: 1
    name: Brazil
    code: BRA
  - id: ~
    name: Japan
    code: JPN
    attendance: present_voting
`)
	doc, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	if doc.Name != "Human Rights Council" || len(doc.Countries) != 2 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Countries[0].ID != "1" || doc.Countries[1].ID != "" {
		t.Errorf("unexpected ids %q %q", doc.Countries[0].ID, doc.Countries[1].ID)
	}
	if doc.Settings.SpeakingTime == nil || *doc.Settings.SpeakingTime != 90 {
		t.Errorf("expected speaking_time 90, got %+v", doc.Settings)
	}
}

func TestParseYAML_Invalid(t *testing.T) {
	for name, input := range map[string]string{
		"syntax":  "name: [unterminated",
		"no name": "countries: []",
		"id list": "name: X\ncountries:\n  - id: [1, 2]\n",
	} {
		if _, err := ParseYAML([]byte(input)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestMockClient_Default(t *testing.T) {
	client := NewMockClient()
	doc, err := client.FetchCommittee(context.Background(), "mock")
	if err != nil {
		t.Fatalf("FetchCommittee failed: %v", err)
	}
	if len(doc.Countries) != 15 {
		t.Errorf("expected 15 default members, got %d", len(doc.Countries))
	}
	if _, err := client.FetchCommittee(context.Background(), "other"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 error, got %v", err)
	}
	if got := client.Fetched(); len(got) != 2 || got[1] != "other" {
		t.Errorf("unexpected fetch log %v", got)
	}
}

func TestMockClient_Options(t *testing.T) {
	testErr := errors.New("mock error")
	client := NewMockClient(WithFetchError(testErr), WithBaseURL("http://test.local"))
	if _, err := client.FetchCommittee(context.Background(), "mock"); err != testErr {
		t.Errorf("expected mock error, got %v", err)
	}
	if client.BaseURL() != "http://test.local" {
		t.Errorf("expected 'http://test.local', got %q", client.BaseURL())
	}

	custom := NewMockClient(WithDocument("ga", &Document{Name: "GA"}))
	doc, err := custom.FetchCommittee(context.Background(), "ga")
	if err != nil || doc.Name != "GA" {
		t.Errorf("unexpected %+v, %v", doc, err)
	}
}

func TestGenerateMockMembers_UniqueCodes(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range GenerateMockMembers() {
		if seen[m.Code] {
			t.Errorf("duplicate code %s", m.Code)
		}
		seen[m.Code] = true
	}
}
