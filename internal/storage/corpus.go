// Package storage persists the paper corpus and the embedding cache.
package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matsen/paperdup/internal/reference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// IsJSONL reports whether path uses the one-object-per-line format.
// Any other extension is read and written as a single JSON array.
func IsJSONL(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".jsonl")
}

// ReadCorpus reads all papers from path. A missing file is an empty corpus.
// A file that exists but cannot be parsed is an error; it is never silently
// treated as empty.
func ReadCorpus(path string) ([]reference.Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []reference.Reference{}, nil
		}
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	if IsJSONL(path) {
		return parseJSONL(data)
	}
	return parseJSONArray(data)
}

func parseJSONArray(data []byte) ([]reference.Reference, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []reference.Reference{}, nil
	}

	var refs []reference.Reference
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}
	if refs == nil {
		refs = []reference.Reference{}
	}
	return refs, nil
}

func parseJSONL(data []byte) ([]reference.Reference, error) {
	refs := []reference.Reference{}
	scanner := bufio.NewScanner(bytes.NewReader(data))

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var ref reference.Reference
		if err := json.Unmarshal(line, &ref); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		refs = append(refs, ref)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	return refs, nil
}

// WriteCorpus replaces the corpus at path with refs. The file is written to
// a temporary sibling first and renamed into place.
func WriteCorpus(path string, refs []reference.Reference) error {
	data, err := encodeCorpus(path, refs)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating corpus directory: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("writing corpus: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func encodeCorpus(path string, refs []reference.Reference) ([]byte, error) {
	if refs == nil {
		refs = []reference.Reference{}
	}

	if !IsJSONL(path) {
		data, err := json.MarshalIndent(refs, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("encoding corpus: %w", err)
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	for i, ref := range refs {
		data, err := json.Marshal(ref)
		if err != nil {
			return nil, fmt.Errorf("encoding reference %d: %w", i, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// AppendToCorpus adds ref to the end of the corpus at path, creating it if needed.
func AppendToCorpus(path string, ref reference.Reference) error {
	if IsJSONL(path) {
		return appendJSONL(path, ref)
	}

	refs, err := ReadCorpus(path)
	if err != nil {
		return err
	}
	return WriteCorpus(path, append(refs, ref))
}

func appendJSONL(path string, ref reference.Reference) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating corpus directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening corpus file for append: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encoding reference: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing reference: %w", err)
	}
	return nil
}

// FindByArXivID searches for a paper by arXiv identifier, ignoring versions.
func FindByArXivID(refs []reference.Reference, id string) (int, bool) {
	if id == "" {
		return -1, false
	}
	for i, ref := range refs {
		if reference.SameArXivID(ref.ArXivID, id) {
			return i, true
		}
	}
	return -1, false
}
