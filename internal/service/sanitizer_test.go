package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilegate/screener/internal/domain/model"
)

func TestSanitizer_NormalizesTrackedURL(t *testing.T) {
	s := NewSanitizer()

	res := s.Sanitize("https://example.com/in/jane-doe/?utm_source=newsletter&trk=abc")

	require.True(t, res.Passed)
	assert.Equal(t, model.StageSanitize, res.Stage)
	assert.Equal(t, "https://www.example.com/in/jane-doe/", res.Normalized)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "removed tracking parameters")
}

func TestSanitizer_LowercasesSchemeAndHostOnly(t *testing.T) {
	s := NewSanitizer()

	res := s.Sanitize("HTTPS://Example.COM/in/Jane-Doe")

	require.True(t, res.Passed)
	// Host folds to lowercase; the slug keeps its case.
	assert.Equal(t, "https://www.example.com/in/Jane-Doe/", res.Normalized)
}

func TestSanitizer_Idempotent(t *testing.T) {
	s := NewSanitizer()

	first := s.Sanitize("https://example.com/in/jane-doe?utm_medium=social")
	require.True(t, first.Passed)

	second := s.Sanitize(first.Normalized)
	require.True(t, second.Passed)
	assert.Equal(t, first.Normalized, second.Normalized)
	assert.Empty(t, second.Warnings)
}

func TestSanitizer_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		errPart string
	}{
		{"empty input", "   ", "identifier is empty"},
		{"unsupported scheme", "ftp://example.com/in/jane", "unsupported scheme"},
		{"missing host", "https:///in/jane", "no host"},
		{"company path", "https://example.com/company/acme", "organization identifier"},
		{"school path", "https://example.com/school/state-u", "organization identifier"},
		{"legacy pub path", "https://example.com/pub/jane/1/2/3", "deprecated legacy identifier"},
		{"legacy profile view", "https://example.com/profile/view?id=123", "deprecated legacy identifier"},
		{"wrong path shape", "https://example.com/jane-doe", "expected /in/{slug} shape"},
		{"nested path", "https://example.com/in/jane/extra", "expected /in/{slug} shape"},
		{"empty slug", "https://example.com/in/", "expected /in/{slug} shape"},
		{"invalid slug characters", "https://example.com/in/jane*doe", "invalid characters"},
	}

	s := NewSanitizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Sanitize(tt.raw)
			require.False(t, res.Passed)
			assert.Empty(t, res.Normalized)
			require.NotEmpty(t, res.Errors)
			assert.Contains(t, res.Errors[0], tt.errPart)
		})
	}
}

func TestSanitizer_AddsWWWPrefix(t *testing.T) {
	s := NewSanitizer()

	res := s.Sanitize("http://example.org/in/sam")

	require.True(t, res.Passed)
	assert.Equal(t, "http://www.example.org/in/sam/", res.Normalized)
}
