// Package reference defines the paper record stored in a corpus.
package reference

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reference represents one paper in a topic corpus.
//
// Only Title and Abstract are interpreted by the duplicate check. Everything
// else, including JSON keys this type does not know about, is carried through
// unchanged so a corpus written by another tool survives a read/write cycle.
type Reference struct {
	ArXivID       string   `json:"arxiv_id"`
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	Authors       []string `json:"authors"`
	Category      string   `json:"category"`       // Primary arXiv category, e.g. cs.CL
	SubmittedDate string   `json:"submitted_date"` // RFC3339 timestamp of first version
	PDFURL        string   `json:"pdf_url"`

	// Extra holds unrecognized JSON keys verbatim.
	Extra map[string]json.RawMessage `json:"-"`
}

// knownFields lists the JSON keys decoded into named fields.
var knownFields = map[string]bool{
	"arxiv_id":       true,
	"title":          true,
	"abstract":       true,
	"authors":        true,
	"category":       true,
	"submitted_date": true,
	"pdf_url":        true,
}

// plainReference has the same fields as Reference without its JSON methods.
type plainReference Reference

// UnmarshalJSON decodes the named fields and keeps every other key in Extra.
func (r *Reference) UnmarshalJSON(data []byte) error {
	var plain plainReference
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key := range knownFields {
		delete(raw, key)
	}
	if len(raw) > 0 {
		plain.Extra = raw
	} else {
		plain.Extra = nil
	}

	*r = Reference(plain)
	return nil
}

// MarshalJSON encodes the named fields followed by the Extra keys.
// A key in Extra never overrides a named field.
func (r Reference) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(plainReference(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(knownFields)+len(r.Extra))
	for k, v := range r.Extra {
		merged[k] = v
	}
	var named map[string]json.RawMessage
	if err := json.Unmarshal(base, &named); err != nil {
		return nil, fmt.Errorf("re-decoding reference: %w", err)
	}
	for k, v := range named {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// BaseArXivID strips a trailing version suffix ("v2") from an arXiv identifier.
func BaseArXivID(id string) string {
	id = strings.TrimSpace(id)
	i := strings.LastIndex(id, "v")
	if i <= 0 || i == len(id)-1 {
		return id
	}
	for _, c := range id[i+1:] {
		if c < '0' || c > '9' {
			return id
		}
	}
	return id[:i]
}

// SameArXivID reports whether two identifiers refer to the same paper,
// ignoring version suffixes.
func SameArXivID(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(BaseArXivID(a), BaseArXivID(b))
}

// FormatAuthorsShort joins up to maxCount author names, adding "et al." beyond that.
func FormatAuthorsShort(authors []string, maxCount int) string {
	if len(authors) == 0 {
		return ""
	}
	if maxCount <= 0 || len(authors) <= maxCount {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:maxCount], ", ") + ", et al."
}
