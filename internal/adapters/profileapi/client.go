// Package profileapi implements the external profile provider client used by
// the accessibility prober.
package profileapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmespath-community/go-jmespath"

	"github.com/profilegate/screener/internal/domain/model"
)

var (
	// ErrRecordNotFound is returned when the provider has no record for the
	// identifier.
	ErrRecordNotFound = errors.New("profile record not found")
	// ErrRecordForbidden is returned when the record exists but access is
	// restricted.
	ErrRecordForbidden = errors.New("profile record access forbidden")
)

// ProviderError carries the status of an unexpected provider response.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("profile provider returned status %d: %s", e.StatusCode, e.Body)
}

// Projections holds the JMESPath expressions mapping a provider payload onto
// the typed record summary. The provider's payload schema is not ours to
// control, so the mapping is configuration.
type Projections struct {
	ID          string
	DisplayName string
	Headline    string
	Location    string
}

// DefaultProjections returns the expressions for the provider's default
// payload schema.
func DefaultProjections() Projections {
	return Projections{
		ID:          "id",
		DisplayName: "display_name",
		Headline:    "headline",
		Location:    "location.name",
	}
}

// ClientConfig holds configuration options for the provider client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a single fetch. Zero means 10s.
	Timeout     time.Duration
	Projections Projections
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

const defaultFetchTimeout = 10 * time.Second

// Client fetches profile records over the provider's REST API.
type Client struct {
	baseURL     string
	apiKey      string
	timeout     time.Duration
	projections compiledProjections
	httpClient  *http.Client
	logger      *slog.Logger
}

type compiledProjections struct {
	id          jmespath.JMESPath
	displayName jmespath.JMESPath
	headline    jmespath.JMESPath
	location    jmespath.JMESPath
}

// NewClient creates a provider client, compiling the configured projections.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("profile provider base URL is required")
	}
	proj := cfg.Projections
	if proj == (Projections{}) {
		proj = DefaultProjections()
	}

	compiled, err := compileProjections(proj)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		timeout:     timeout,
		projections: compiled,
		httpClient:  httpClient,
		logger:      cfg.Logger,
	}, nil
}

func compileProjections(p Projections) (compiledProjections, error) {
	var out compiledProjections
	for _, item := range []struct {
		name string
		expr string
		dst  *jmespath.JMESPath
	}{
		{"id", p.ID, &out.id},
		{"display_name", p.DisplayName, &out.displayName},
		{"headline", p.Headline, &out.headline},
		{"location", p.Location, &out.location},
	} {
		if strings.TrimSpace(item.expr) == "" {
			continue
		}
		compiled, err := jmespath.Compile(item.expr)
		if err != nil {
			return out, fmt.Errorf("compile %s projection %q: %w", item.name, item.expr, err)
		}
		*item.dst = compiled
	}
	if out.id == nil || out.displayName == nil {
		return out, errors.New("id and display_name projections are required")
	}
	return out, nil
}

// FetchRecord retrieves the record for the given identifier and projects it
// onto a RecordSummary.
func (c *Client) FetchRecord(ctx context.Context, identifier string) (*model.RecordSummary, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, errors.New("record identifier is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/records/" + url.PathEscape(identifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build record request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch record: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read record response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrRecordNotFound
	case http.StatusForbidden:
		return nil, ErrRecordForbidden
	default:
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	return c.project(body)
}

func (c *Client) project(body []byte) (*model.RecordSummary, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode record payload: %w", err)
	}

	summary := &model.RecordSummary{Raw: json.RawMessage(body)}
	summary.ID = searchString(c.projections.id, payload)
	summary.DisplayName = searchString(c.projections.displayName, payload)
	summary.Headline = searchString(c.projections.headline, payload)
	summary.Location = searchString(c.projections.location, payload)
	return summary, nil
}

func searchString(expr jmespath.JMESPath, payload any) string {
	if expr == nil {
		return ""
	}
	v, err := expr.Search(payload)
	if err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
