/*
Package records writes accepted entries to disk, one file per entry, and reads
them back.

A record file is YAML front matter between "---" lines followed by a blank line
and the body:

	---
	title: A Trip to Riga
	date: "2020-01-15"
	url: https://alice.livejournal.com/123.html
	tags: travel, latvia
	---

	First paragraph.

Tags are joined with ", " and entries without tags carry the "None" sentinel.
A tag containing a comma or a double quote, or one spelled like the sentinel,
is written double-quoted the way CSV fields are.

The filename is derived from the date and the sanitized title. Its existence
is the only deduplication mechanism: a second write of the same entry reports
AlreadyExists and leaves the file untouched, which makes re-running a crawl
over an already scraped range safe.
*/
package records

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HRemonen/ljgrawlr/internal/post"
)

// Ext is the extension of every record file.
const Ext = ".md"

// NoTagsSentinel is written in place of the tag list when an entry has no tags.
const NoTagsSentinel = "None"

const untitled = "untitled"

var (
	unsafeTitleRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separatorRegex   = regexp.MustCompile(`[-\s]+`)
)

// Outcome is the result of a write.
type Outcome int

const (
	// Saved means a new file was written.
	Saved Outcome = iota
	// AlreadyExists means a file with the derived name was already present.
	AlreadyExists
	// IOFailure means the file could not be written; nothing was left behind.
	IOFailure
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case AlreadyExists:
		return "already exists"
	case IOFailure:
		return "io failure"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result reports what a write did and where.
type Result struct {
	Outcome Outcome
	Path    string
	// Err is set when Outcome is IOFailure.
	Err error
}

// SanitizeTitle derives a filesystem-safe name from an entry title: anything
// that is not a letter, digit, underscore, space or hyphen is dropped, runs of
// whitespace and hyphens become one hyphen, and leading or trailing hyphens and
// underscores are trimmed. An empty result becomes "untitled".
func SanitizeTitle(title string) string {
	safe := unsafeTitleRegex.ReplaceAllString(title, "")
	safe = separatorRegex.ReplaceAllString(safe, "-")
	safe = strings.Trim(safe, "-_")

	if safe == "" {
		return untitled
	}

	return safe
}

// Filename returns the deterministic file name of rec.
func Filename(rec post.Record) string {
	return rec.Date.Format(post.DateLayout) + "_" + SanitizeTitle(rec.Title) + Ext
}

// JournalDir returns the per-journal directory under root: the first DNS label
// of the journal host, so https://alice.livejournal.com/ maps to root/alice.
func JournalDir(root, blogURL string) (string, error) {
	u, err := url.Parse(blogURL)
	if err != nil {
		return "", err
	}

	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("no host in %q", blogURL)
	}

	label, _, _ := strings.Cut(host, ".")

	// Path-style journals (www.livejournal.com/users/alice) use the user name.
	if label == "www" {
		if segments := strings.Split(strings.Trim(u.Path, "/"), "/"); len(segments) == 2 && segments[0] == "users" {
			label = segments[1]
		}
	}

	return filepath.Join(root, label), nil
}

type frontMatter struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
	URL   string `yaml:"url"`
	Tags  string `yaml:"tags"`
}

// Encode renders rec in the record file format.
func Encode(rec post.Record) ([]byte, error) {
	meta, err := yaml.Marshal(frontMatter{
		Title: rec.Title,
		Date:  rec.Date.Format(post.DateLayout),
		URL:   rec.URL,
		Tags:  encodeTags(rec.Tags),
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")
	buf.WriteString(rec.Body)

	return buf.Bytes(), nil
}

// encodeTags joins tags with ", ". A tag that would not split back to itself,
// because it holds a comma or quote or reads as the sentinel, is double-quoted
// with inner quotes doubled.
func encodeTags(tags post.Tags) string {
	if len(tags) == 0 {
		return NoTagsSentinel
	}

	fields := make([]string, len(tags))
	for i, tag := range tags {
		if tag == NoTagsSentinel || strings.ContainsAny(tag, `,"`) || strings.TrimSpace(tag) != tag {
			tag = `"` + strings.ReplaceAll(tag, `"`, `""`) + `"`
		}
		fields[i] = tag
	}

	return strings.Join(fields, ", ")
}

// Writer persists records into a single directory.
type Writer struct {
	dir string
}

// NewWriter creates dir if needed and returns a Writer for it.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Writer{dir: dir}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write persists rec unless its file already exists. The file appears
// complete or not at all: the content is written to a temporary file in the
// same directory, synced, and then hard linked to its final name, which fails
// instead of overwriting when the name is taken.
func (w *Writer) Write(rec post.Record) Result {
	path := filepath.Join(w.dir, Filename(rec))

	if _, err := os.Stat(path); err == nil {
		return Result{Outcome: AlreadyExists, Path: path}
	}

	data, err := Encode(rec)
	if err != nil {
		return Result{Outcome: IOFailure, Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(w.dir, ".record-*.tmp")
	if err != nil {
		return Result{Outcome: IOFailure, Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Result{Outcome: IOFailure, Path: path, Err: err}
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Result{Outcome: IOFailure, Path: path, Err: err}
	}

	if err := tmp.Close(); err != nil {
		return Result{Outcome: IOFailure, Path: path, Err: err}
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return Result{Outcome: IOFailure, Path: path, Err: err}
	}

	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Result{Outcome: AlreadyExists, Path: path}
		}

		return Result{Outcome: IOFailure, Path: path, Err: err}
	}

	return Result{Outcome: Saved, Path: path}
}
