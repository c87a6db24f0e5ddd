// Package service implements the quality gate stages, the gate orchestrator,
// and the scoring job engine services.
package service

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/profilegate/screener/internal/domain/model"
)

// Query parameters stripped during normalization. utm_* is matched by prefix.
var trackedParams = map[string]struct{}{
	"trk":       {},
	"li_fat_id": {},
	"gclid":     {},
	"fbclid":    {},
	"ref":       {},
}

// Path prefixes that identify organization resources rather than person records.
var organizationPrefixes = []string{"/company/", "/school/", "/showcase/"}

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._%-]*$`)

// Sanitizer normalizes and syntactically validates inbound record
// identifiers. It performs no I/O; every rejection happens before any
// network call is considered.
type Sanitizer struct{}

// NewSanitizer constructs a Sanitizer.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Sanitize validates and normalizes the raw identifier. Rejections are
// reported through the result, never as an error. Sanitizing an already
// normalized identifier is a no-op.
func (s *Sanitizer) Sanitize(raw string) *model.SanitizeResult {
	start := time.Now()
	res := &model.SanitizeResult{
		ValidationResult: model.ValidationResult{Stage: model.StageSanitize},
	}
	defer func() {
		res.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000.0
	}()

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return failSanitize(res, "identifier is empty")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return failSanitize(res, fmt.Sprintf("identifier is not a valid URL: %v", err))
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return failSanitize(res, fmt.Sprintf("unsupported scheme %q, expected http or https", u.Scheme))
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return failSanitize(res, "identifier has no host")
	}
	if !strings.HasPrefix(host, "www.") {
		host = "www." + host
	}

	path := u.EscapedPath()
	for _, prefix := range organizationPrefixes {
		if strings.HasPrefix(path, prefix) {
			return failSanitize(res, fmt.Sprintf("organization identifier (%s) is not a person record", strings.Trim(prefix, "/")))
		}
	}
	if strings.HasPrefix(path, "/pub/") || strings.HasPrefix(path, "/profile/view") {
		return failSanitize(res, "deprecated legacy identifier format")
	}

	slug, ok := personSlug(path)
	if !ok {
		return failSanitize(res, "identifier path does not match the expected /in/{slug} shape")
	}
	if !slugPattern.MatchString(slug) {
		return failSanitize(res, fmt.Sprintf("identifier slug %q contains invalid characters", slug))
	}

	if stripped := strippedParamNames(u.Query()); len(stripped) > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("removed tracking parameters: %s", strings.Join(stripped, ", ")))
	}

	res.Passed = true
	res.Normalized = scheme + "://" + host + "/in/" + slug + "/"
	return res
}

func failSanitize(res *model.SanitizeResult, msg string) *model.SanitizeResult {
	res.Passed = false
	res.Errors = append(res.Errors, msg)
	return res
}

// personSlug extracts the slug from a /in/{slug} path, tolerating a trailing
// slash. Anything deeper than one segment is rejected.
func personSlug(path string) (string, bool) {
	if !strings.HasPrefix(path, "/in/") {
		return "", false
	}
	rest := strings.TrimPrefix(path, "/in/")
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func strippedParamNames(query url.Values) []string {
	var stripped []string
	for name := range query {
		lower := strings.ToLower(name)
		if _, tracked := trackedParams[lower]; tracked || strings.HasPrefix(lower, "utm_") {
			stripped = append(stripped, lower)
		}
	}
	// The whole query is dropped from the normalized form; only tracked
	// names are worth surfacing.
	return stripped
}
