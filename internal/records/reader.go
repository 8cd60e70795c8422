package records

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HRemonen/ljgrawlr/internal/post"
)

// ErrNoFrontMatter is returned for files that do not start with a front
// matter block.
var ErrNoFrontMatter = errors.New("missing front matter")

var delimiter = []byte("---")

// ReadError describes a failure to read a single record file.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// ListResult contains the records of a directory, including any per-file
// errors that occurred while reading them.
type ListResult struct {
	Records []post.Record
	Files   []string
	Errors  []ReadError
}

// Decode parses the record file format.
func Decode(data []byte) (post.Record, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !bytes.HasPrefix(data, delimiter) {
		return post.Record{}, ErrNoFrontMatter
	}

	rest := data[len(delimiter):]
	end := bytes.Index(rest, append([]byte("\n"), delimiter...))
	if end == -1 {
		return post.Record{}, ErrNoFrontMatter
	}

	var meta frontMatter
	if err := yaml.Unmarshal(rest[:end], &meta); err != nil {
		return post.Record{}, fmt.Errorf("front matter: %w", err)
	}

	date, err := time.Parse(post.DateLayout, strings.TrimSpace(meta.Date))
	if err != nil {
		return post.Record{}, fmt.Errorf("front matter date: %w", err)
	}

	body := rest[end+1+len(delimiter):]
	body = bytes.TrimPrefix(body, []byte("\n"))
	body = bytes.TrimPrefix(body, []byte("\n"))

	return post.Record{
		Title: meta.Title,
		Date:  date,
		URL:   meta.URL,
		Tags:  decodeTags(meta.Tags),
		Body:  string(body),
	}, nil
}

func decodeTags(raw string) post.Tags {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == NoTagsSentinel {
		return post.NoTags()
	}

	r := csv.NewReader(strings.NewReader(raw))
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	fields, err := r.Read()
	if err != nil {
		// Hand-edited lists that are not valid CSV still split on commas.
		fields = strings.Split(raw, ",")
	}

	return post.NewTags(fields...)
}

// Read parses the record file at path.
func Read(path string) (post.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return post.Record{}, err
	}

	return Decode(data)
}

// List reads every record file in dir, sorted by file name, which is
// chronological. Unreadable files are collected in the result's Errors
// rather than failing the whole listing; a non-nil error means dir itself
// could not be read.
func List(dir string) (*ListResult, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}

	result := &ListResult{}
	for _, name := range files {
		rec, err := Read(filepath.Join(dir, name))
		if err != nil {
			result.Errors = append(result.Errors, ReadError{
				Filename: name,
				Err:      err,
			})
			continue
		}

		result.Records = append(result.Records, rec)
		result.Files = append(result.Files, name)
	}

	return result, nil
}

// Files returns the names of the record files in dir, sorted.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read record directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}

// Count returns the number of record files in dir. A missing dir has none.
func Count(dir string) (int, error) {
	names, err := Files(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	return len(names), nil
}
