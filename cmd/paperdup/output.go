package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matsen/paperdup/internal/reference"
	"github.com/matsen/paperdup/internal/semantic"
)

// Constants for output formatting.
const (
	DefaultListLimit = 50 // Default limit for list command

	ListTitleMaxLen   = 60 // Used in list command output
	ResultTitleMaxLen = 70 // Used in check result summaries

	TextWrapWidth = 68
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitWithCodeError reports err and exits with the code it carries.
func exitWithCodeError(err error) {
	exitWithError(exitCode(err), "%v", err)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CheckResponse is the response for check and add commands.
type CheckResponse struct {
	Exists     bool                        `json:"exists"`
	Results    []semantic.SimilarityResult `json:"results"`
	Threshold  float64                     `json:"threshold"`
	TopK       int                         `json:"top_k"`
	CorpusSize int                         `json:"corpus_size"`
	Model      string                      `json:"model"`
}

func newCheckResponse(v semantic.Verdict, opts semantic.Options, corpusSize int, model string) CheckResponse {
	return CheckResponse{
		Exists:     v.Exists,
		Results:    v.Results,
		Threshold:  opts.Threshold,
		TopK:       opts.TopK,
		CorpusSize: corpusSize,
		Model:      model,
	}
}

// printVerdictHuman prints a verdict the way a person reads it: the decision
// first, then the closest papers.
func printVerdictHuman(v semantic.Verdict) {
	if !v.Exists {
		fmt.Println("This appears to be a new paper.")
		if len(v.Results) > 0 {
			fmt.Printf("\nClosest papers in the corpus:\n")
			printResultsHuman(v.Results)
		}
		return
	}

	fmt.Println("A similar paper likely already exists in the corpus.")
	fmt.Printf("\nTop %d most similar papers:\n", len(v.Results))
	printResultsHuman(v.Results)
}

// printResultsHuman prints ranked results with their similarity scores.
func printResultsHuman(results []semantic.SimilarityResult) {
	for i, r := range results {
		fmt.Printf("%d. [%.4f] %s\n", i+1, r.Score, r.Paper.ArXivID)
		fmt.Printf("   %s\n", wrapText(truncateString(r.Paper.Title, 3*ResultTitleMaxLen), ResultTitleMaxLen, "   "))
		if authors := reference.FormatAuthorsShort(r.Paper.Authors, 3); authors != "" {
			fmt.Printf("   %s\n", authors)
		}
		fmt.Println()
	}
}

// printProgress renders a progress bar on stderr.
func printProgress(current, total int) {
	if total == 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	barWidth := 30
	filled := int(float64(barWidth) * float64(current) / float64(total))
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			bar.WriteByte('=')
		case i == filled:
			bar.WriteByte('>')
		default:
			bar.WriteByte(' ')
		}
	}
	fmt.Fprintf(os.Stderr, "\r[%s] %d/%d (%.0f%%)", bar.String(), current, total, pct)
}

// clearProgress erases the progress bar line.
func clearProgress() {
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", 50))
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	words := strings.Fields(text)
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
