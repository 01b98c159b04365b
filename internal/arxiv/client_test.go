package arxiv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const feedHeader = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>arXiv Query</title>
  <opensearch:totalResults>%d</opensearch:totalResults>
  <opensearch:startIndex>%d</opensearch:startIndex>
`

func atomEntry(id int) string {
	return fmt.Sprintf(`  <entry>
    <id>http://arxiv.org/abs/2401.%05dv1</id>
    <published>2024-01-%02dT12:00:00Z</published>
    <title>Paper number
      %d</title>
    <summary>  First line of abstract %d.
Second line.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/2401.%05dv1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2401.%05dv1" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
`, id, id%28+1, id, id, id, id)
}

func atomFeed(total, start, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, feedHeader, total, start)
	for i := 0; i < count; i++ {
		b.WriteString(atomEntry(start + i + 1))
	}
	b.WriteString("</feed>\n")
	return b.String()
}

func newTestClient(serverURL string, opts ...ClientOption) *Client {
	all := append([]ClientOption{WithBaseURL(serverURL), WithRateInterval(0)}, opts...)
	return NewClient(all...)
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"cs.CL", "cat:cs.CL"},
		{"q-bio.NC", "cat:q-bio.NC"},
		{"physics.bio-ph", "cat:physics.bio-ph"},
		{"hep-th", "cat:hep-th"},
		{"ti:transformer", "ti:transformer"},
		{"cat:cs.LG AND all:attention", "cat:cs.LG AND all:attention"},
		{"transformer", "all:transformer"},
		{"  graph neural networks ", "all:graph AND all:neural AND all:networks"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			if got := BuildQuery(tt.domain); got != tt.want {
				t.Errorf("BuildQuery(%q) = %q, want %q", tt.domain, got, tt.want)
			}
		})
	}
}

func TestSearch_MapsEntries(t *testing.T) {
	var gotQuery, gotSort string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		gotSort = r.URL.Query().Get("sortBy") + "/" + r.URL.Query().Get("sortOrder")
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, atomFeed(1, 0, 1))
	}))
	defer server.Close()

	refs, err := newTestClient(server.URL).Search(context.Background(), "cs.CL", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotQuery != "cat:cs.CL" {
		t.Errorf("search_query = %q, want cat:cs.CL", gotQuery)
	}
	if gotSort != "submittedDate/descending" {
		t.Errorf("sort = %q", gotSort)
	}
	if len(refs) != 1 {
		t.Fatalf("len(refs) = %d, want 1", len(refs))
	}

	ref := refs[0]
	if ref.ArXivID != "2401.00001v1" {
		t.Errorf("ArXivID = %q", ref.ArXivID)
	}
	if ref.Title != "Paper number 1" {
		t.Errorf("Title = %q, want whitespace collapsed", ref.Title)
	}
	if ref.Abstract != "First line of abstract 1. Second line." {
		t.Errorf("Abstract = %q", ref.Abstract)
	}
	if len(ref.Authors) != 2 || ref.Authors[1] != "Alan Turing" {
		t.Errorf("Authors = %v", ref.Authors)
	}
	if ref.Category != "cs.CL" {
		t.Errorf("Category = %q", ref.Category)
	}
	if ref.SubmittedDate != "2024-01-02T12:00:00Z" {
		t.Errorf("SubmittedDate = %q", ref.SubmittedDate)
	}
	if ref.PDFURL != "http://arxiv.org/pdf/2401.00001v1" {
		t.Errorf("PDFURL = %q", ref.PDFURL)
	}
}

func TestSearch_Pages(t *testing.T) {
	const total = 7
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		n, _ := strconv.Atoi(r.URL.Query().Get("max_results"))
		count := min(n, total-start)
		fmt.Fprint(w, atomFeed(total, start, count))
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithPageSize(3))

	t.Run("stops at total", func(t *testing.T) {
		requests.Store(0)
		refs, err := client.Search(context.Background(), "transformer", 100)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(refs) != total {
			t.Errorf("len(refs) = %d, want %d", len(refs), total)
		}
		if requests.Load() != 3 {
			t.Errorf("requests = %d, want 3", requests.Load())
		}
		for i, ref := range refs {
			if want := fmt.Sprintf("2401.%05dv1", i+1); ref.ArXivID != want {
				t.Errorf("refs[%d] = %s, want %s", i, ref.ArXivID, want)
			}
		}
	})

	t.Run("stops at max results", func(t *testing.T) {
		requests.Store(0)
		refs, err := client.Search(context.Background(), "transformer", 4)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(refs) != 4 {
			t.Errorf("len(refs) = %d, want 4", len(refs))
		}
		if requests.Load() != 2 {
			t.Errorf("requests = %d, want 2", requests.Load())
		}
	})
}

func TestSearch_RateLimited(t *testing.T) {
	var mu sync.Mutex
	var times []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		fmt.Fprint(w, atomFeed(2, start, 1))
	}))
	defer server.Close()

	interval := 50 * time.Millisecond
	client := newTestClient(server.URL, WithPageSize(1), WithRateInterval(interval))

	if _, err := client.Search(context.Background(), "cs.CL", 2); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(times) != 2 {
		t.Fatalf("requests = %d, want 2", len(times))
	}
	if gap := times[1].Sub(times[0]); gap < interval-5*time.Millisecond {
		t.Errorf("requests %v apart, want at least %v", gap, interval)
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, "", IsRateLimited},
		{"server error", http.StatusInternalServerError, "boom", func(err error) bool { return errors.Is(err, ErrAPIError) }},
		{"not xml", http.StatusOK, "<html>", func(err error) bool { return errors.Is(err, ErrInvalidResponse) }},
		{"error entry", http.StatusOK, fmt.Sprintf(feedHeader, 1, 0) + `<entry><id>http://arxiv.org/api/errors#incorrect_id_format</id><title>Error</title><summary>incorrect id format</summary></entry></feed>`,
			func(err error) bool {
				var apiErr *APIError
				return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "incorrect id format")
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Search(context.Background(), "cs.CL", 5)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSearch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	_, err := newTestClient(serverURL).Search(context.Background(), "cs.CL", 5)
	if !IsNetworkError(err) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestSearch_EmptyDomain(t *testing.T) {
	if _, err := NewClient().Search(context.Background(), "  ", 5); err == nil {
		t.Error("expected error for empty domain")
	}
}

func TestGetPaper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id_list") {
		case "2401.00001":
			fmt.Fprint(w, atomFeed(1, 0, 1))
		default:
			fmt.Fprint(w, atomFeed(0, 0, 0))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	ref, err := client.GetPaper(context.Background(), "2401.00001")
	if err != nil {
		t.Fatalf("GetPaper() error = %v", err)
	}
	if ref.ArXivID != "2401.00001v1" || ref.Title != "Paper number 1" {
		t.Errorf("GetPaper() = %+v", ref)
	}

	_, err = client.GetPaper(context.Background(), "9999.99999")
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestEntryID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://arxiv.org/abs/2401.00001v2", "2401.00001v2"},
		{"http://arxiv.org/abs/hep-th/9901001v1", "hep-th/9901001v1"},
		{"2401.00001", "2401.00001"},
	}
	for _, tt := range tests {
		if got := entryID(tt.in); got != tt.want {
			t.Errorf("entryID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
