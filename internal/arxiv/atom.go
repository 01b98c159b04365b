package arxiv

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/paperdup/internal/reference"
)

const (
	nsAtom       = "http://www.w3.org/2005/Atom"
	nsOpenSearch = "http://a9.com/-/spec/opensearch/1.1/"
	nsArXiv      = "http://arxiv.org/schemas/atom"
)

// feed is the Atom document returned by the export API.
type feed struct {
	XMLName      xml.Name `xml:"http://www.w3.org/2005/Atom feed"`
	TotalResults int      `xml:"http://a9.com/-/spec/opensearch/1.1/ totalResults"`
	StartIndex   int      `xml:"http://a9.com/-/spec/opensearch/1.1/ startIndex"`
	Entries      []entry  `xml:"http://www.w3.org/2005/Atom entry"`
}

type entry struct {
	ID              string     `xml:"http://www.w3.org/2005/Atom id"`
	Title           string     `xml:"http://www.w3.org/2005/Atom title"`
	Summary         string     `xml:"http://www.w3.org/2005/Atom summary"`
	Published       string     `xml:"http://www.w3.org/2005/Atom published"`
	Authors         []author   `xml:"http://www.w3.org/2005/Atom author"`
	Links           []link     `xml:"http://www.w3.org/2005/Atom link"`
	PrimaryCategory category   `xml:"http://arxiv.org/schemas/atom primary_category"`
	Categories      []category `xml:"http://www.w3.org/2005/Atom category"`
}

type author struct {
	Name string `xml:"http://www.w3.org/2005/Atom name"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type category struct {
	Term string `xml:"term,attr"`
}

// parseFeed decodes an Atom feed. A feed consisting of an arXiv error entry
// is returned as an APIError.
func parseFeed(data []byte) (*feed, error) {
	var f feed
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing Atom feed: %v", ErrInvalidResponse, err)
	}

	for _, e := range f.Entries {
		if e.isError() {
			return nil, &APIError{StatusCode: 400, Message: collapseSpace(e.Summary)}
		}
	}
	return &f, nil
}

// isError reports whether the entry is the error placeholder arXiv returns
// for malformed queries or identifiers.
func (e entry) isError() bool {
	return strings.Contains(e.ID, "arxiv.org/api/errors")
}

// toReference maps a feed entry to a corpus record.
func (e entry) toReference() reference.Reference {
	ref := reference.Reference{
		ArXivID:       entryID(e.ID),
		Title:         collapseSpace(e.Title),
		Abstract:      collapseSpace(e.Summary),
		Category:      e.PrimaryCategory.Term,
		SubmittedDate: normalizeDate(e.Published),
		PDFURL:        e.pdfURL(),
	}

	if ref.Category == "" && len(e.Categories) > 0 {
		ref.Category = e.Categories[0].Term
	}

	ref.Authors = make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if name := collapseSpace(a.Name); name != "" {
			ref.Authors = append(ref.Authors, name)
		}
	}
	return ref
}

func (e entry) pdfURL() string {
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			return l.Href
		}
	}
	// Older feeds only carry the abstract page link.
	for _, l := range e.Links {
		if l.Rel == "alternate" && strings.Contains(l.Href, "/abs/") {
			return strings.Replace(l.Href, "/abs/", "/pdf/", 1)
		}
	}
	return ""
}

// entryID extracts the versioned identifier from an entry id URL such as
// http://arxiv.org/abs/2401.00001v2 or http://arxiv.org/abs/hep-th/9901001v1.
func entryID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.Index(id, "/abs/"); i >= 0 {
		return id[i+len("/abs/"):]
	}
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeDate renders the published timestamp as RFC3339, leaving
// unparseable values untouched.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.UTC().Format(time.RFC3339)
}
