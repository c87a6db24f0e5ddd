package profileapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	require.Error(t, err)

	_, err = NewClient(ClientConfig{
		BaseURL:     "http://localhost:9000",
		Projections: Projections{ID: "id", DisplayName: "(("},
	})
	require.Error(t, err)

	// id and display_name projections are mandatory.
	_, err = NewClient(ClientConfig{
		BaseURL:     "http://localhost:9000",
		Projections: Projections{Headline: "headline"},
	})
	require.Error(t, err)
}

func TestClient_FetchRecord_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/records/rec-1", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "rec-1",
			"display_name": "Jane Doe",
			"headline": "Staff Software Engineer",
			"location": {"name": "Minneapolis, MN"}
		}`))
	})

	summary, err := client.FetchRecord(context.Background(), "rec-1")
	require.NoError(t, err)

	assert.Equal(t, "rec-1", summary.ID)
	assert.Equal(t, "Jane Doe", summary.DisplayName)
	assert.Equal(t, "Staff Software Engineer", summary.Headline)
	assert.Equal(t, "Minneapolis, MN", summary.Location)
	assert.NotEmpty(t, summary.Raw)
	assert.True(t, summary.Complete())
}

func TestClient_FetchRecord_CustomProjections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"data": {
				"uuid": "rec-9",
				"profile": {"full_name": "Sam Lee", "title": "Product Lead"}
			}
		}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL: server.URL,
		Projections: Projections{
			ID:          "data.uuid",
			DisplayName: "data.profile.full_name",
			Headline:    "data.profile.title",
		},
	})
	require.NoError(t, err)

	summary, err := client.FetchRecord(context.Background(), "rec-9")
	require.NoError(t, err)

	assert.Equal(t, "rec-9", summary.ID)
	assert.Equal(t, "Sam Lee", summary.DisplayName)
	assert.Equal(t, "Product Lead", summary.Headline)
	assert.Empty(t, summary.Location)
}

func TestClient_FetchRecord_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"not found", http.StatusNotFound, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrRecordNotFound)
		}},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrRecordForbidden)
		}},
		{"server error", http.StatusBadGateway, func(t *testing.T, err error) {
			var provErr *ProviderError
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, http.StatusBadGateway, provErr.StatusCode)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("upstream detail"))
			})

			_, err := client.FetchRecord(context.Background(), "rec-1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_FetchRecord_MissingFieldsYieldIncompleteSummary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "rec-1"}`))
	})

	summary, err := client.FetchRecord(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.False(t, summary.Complete())
}

func TestClient_FetchRecord_MalformedPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := client.FetchRecord(context.Background(), "rec-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode record payload")
}

func TestClient_FetchRecord_RequiresIdentifier(t *testing.T) {
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {})

	_, err := client.FetchRecord(context.Background(), "  ")
	require.Error(t, err)
}

func TestClient_FetchRecord_EscapesIdentifier(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/records/https:%2F%2Fwww.example.com%2Fin%2Fjane%2F", r.URL.RawPath)
		_, _ = w.Write([]byte(`{"id": "rec-1", "display_name": "Jane"}`))
	})

	_, err := client.FetchRecord(context.Background(), "https://www.example.com/in/jane/")
	require.NoError(t, err)
}
