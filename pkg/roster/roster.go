// Package roster provides a client for fetching committee rosters from an
// external committee data provider, plus a parser for YAML roster files.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/gavel/internal/logger"
)

// FlexString is a string type that can be unmarshaled from either a string or a number.
// Providers disagree on whether member ids are numeric.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler for FlexString
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	return fmt.Errorf("FlexString: cannot unmarshal %s", string(data))
}

// String returns the string value
func (f FlexString) String() string {
	return string(f)
}

// Member is one delegation on a provider roster
type Member struct {
	ID         FlexString `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Code       string     `json:"code" yaml:"code"`
	FlagQuery  string     `json:"flag_query" yaml:"flag_query"`
	Attendance string     `json:"attendance" yaml:"attendance"`
}

// Settings are the feature toggles a provider may ship with a roster.
// Nil fields keep whatever the committee already has.
type Settings struct {
	EnableMotions   *bool `json:"enable_motions,omitempty" yaml:"enable_motions"`
	EnableVoting    *bool `json:"enable_voting,omitempty" yaml:"enable_voting"`
	ShowTimer       *bool `json:"show_timer,omitempty" yaml:"show_timer"`
	ShowSpeakerList *bool `json:"show_speaker_list,omitempty" yaml:"show_speaker_list"`
	ShowMotions     *bool `json:"show_motions,omitempty" yaml:"show_motions"`
	SpeakingTime    *int  `json:"speaking_time,omitempty" yaml:"speaking_time"`
}

// Document is a committee as served by the provider
type Document struct {
	Name      string    `json:"name" yaml:"name"`
	Countries []Member  `json:"countries" yaml:"countries"`
	Settings  *Settings `json:"settings,omitempty" yaml:"settings"`
}

// Client defines the interface for roster provider operations
type Client interface {
	// FetchCommittee retrieves one committee roster by provider reference
	FetchCommittee(ctx context.Context, ref string) (*Document, error)
	// BaseURL returns the configured provider base URL
	BaseURL() string
	// SetBaseURL updates the provider base URL
	SetBaseURL(url string)
}

// HTTPClient is a real HTTP client for a roster provider
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a new roster provider HTTP client
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// NewHTTPClientWithHTTPClient creates a new roster client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the configured provider base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// SetBaseURL updates the provider base URL
func (c *HTTPClient) SetBaseURL(url string) {
	c.baseURL = url
}

// SetToken configures a bearer token sent with every request
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// doRequest executes a GET against the provider and decodes the JSON body
func (c *HTTPClient) doRequest(ctx context.Context, path string, response interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("roster provider URL is not configured")
	}
	apiURL := strings.TrimRight(c.baseURL, "/") + path

	c.log.Debug("Roster request", "method", "GET", "url", apiURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to roster provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Roster response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("roster provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// FetchCommittee retrieves GET {base}/committees/{ref}
func (c *HTTPClient) FetchCommittee(ctx context.Context, ref string) (*Document, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("committee reference is required")
	}
	var doc Document
	if err := c.doRequest(ctx, "/committees/"+url.PathEscape(ref), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseYAML reads a roster document from YAML
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	if strings.TrimSpace(doc.Name) == "" {
		return nil, fmt.Errorf("roster has no committee name")
	}
	return &doc, nil
}

// UnmarshalYAML lets numeric ids in YAML files decode like in JSON
func (f *FlexString) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("FlexString: expected scalar, got kind %d", value.Kind)
	}
	if value.Tag == "!!null" {
		*f = ""
		return nil
	}
	*f = FlexString(value.Value)
	return nil
}

// Ensure implementations satisfy Client
var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)
)
