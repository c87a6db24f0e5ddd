package model

import "encoding/json"

// RecordSummary is the lightweight projection of an external profile record
// that the gate carries between stages. Only the typed fields participate in
// business logic; Raw keeps the provider payload opaque for audit.
type RecordSummary struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Headline    string          `json:"headline,omitempty"`
	Location    string          `json:"location,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// Complete reports whether the summary carries the minimum field set the
// gate requires (unique identifier plus display name).
func (r *RecordSummary) Complete() bool {
	return r != nil && r.ID != "" && r.DisplayName != ""
}
