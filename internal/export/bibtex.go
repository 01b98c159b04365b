// Package export converts corpus papers to citation formats.
package export

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/matsen/paperdup/internal/reference"
)

// ToBibTeX converts a paper to a BibTeX @misc entry with arXiv eprint fields.
func ToBibTeX(ref reference.Reference) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@misc{%s,\n", CiteKey(ref)))

	if len(ref.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(ref.Authors)))
	}

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(ref.Title)))

	if t, ok := submitted(ref); ok {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", t.Year()))
		b.WriteString(fmt.Sprintf("  month = {%d},\n", int(t.Month())))
	}

	if id := reference.BaseArXivID(ref.ArXivID); id != "" {
		b.WriteString(fmt.Sprintf("  eprint = {%s},\n", id))
		b.WriteString("  archivePrefix = {arXiv},\n")
		if ref.Category != "" {
			b.WriteString(fmt.Sprintf("  primaryClass = {%s},\n", ref.Category))
		}
		b.WriteString(fmt.Sprintf("  url = {https://arxiv.org/abs/%s},\n", id))
	}

	if ref.Abstract != "" {
		b.WriteString(fmt.Sprintf("  abstract = {%s},\n", escapeLatex(ref.Abstract)))
	}

	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple papers to BibTeX format.
func ToBibTeXList(refs []reference.Reference) string {
	var entries []string
	for _, ref := range refs {
		entries = append(entries, ToBibTeX(ref))
	}
	return strings.Join(entries, "\n")
}

// CiteKey builds a citation key such as "Vaswani2017-1706.03762".
func CiteKey(ref reference.Reference) string {
	id := strings.ReplaceAll(reference.BaseArXivID(ref.ArXivID), "/", "-")

	var prefix string
	if len(ref.Authors) > 0 {
		prefix = keyPart(lastName(ref.Authors[0]))
	}
	if t, ok := submitted(ref); ok && prefix != "" {
		prefix += fmt.Sprint(t.Year())
	}

	switch {
	case prefix != "" && id != "":
		return prefix + "-" + id
	case id != "":
		return "arXiv-" + id
	case prefix != "":
		return prefix
	default:
		return "paper"
	}
}

func submitted(ref reference.Reference) (time.Time, bool) {
	if ref.SubmittedDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, ref.SubmittedDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// lastName returns the final word of a "First Last" name.
func lastName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// keyPart keeps only letters and digits.
func keyPart(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// formatAuthors joins author names in BibTeX style: "First Last and First Last"
func formatAuthors(authors []string) string {
	formatted := make([]string, 0, len(authors))
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			formatted = append(formatted, escapeLatex(a))
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// A single pass, so replacements are never re-escaped.
	replacer := strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
