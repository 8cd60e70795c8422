/*
Package config loads and validates the crawl configuration.

The file is JSON5 (comments and trailing commas allowed). A sibling
"<name>.local.<ext>" file, when present, is merged over it so credentials-free
defaults can be committed while personal overrides stay local. Validation runs
before anything touches the network; every problem is reported as an *Error
naming the offending field.
*/
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/HRemonen/ljgrawlr/internal/filter"
	"github.com/HRemonen/ljgrawlr/internal/post"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "config.json"

// Halt modes.
const (
	HaltStrict      = "strict"
	HaltDirectional = "directional"
)

// Body formats.
const (
	BodyText     = "text"
	BodyMarkdown = "markdown"
)

// Error describes a configuration problem. It is fatal and is reported before
// any network activity.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}

	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

type DateRange struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type ScrapingSettings struct {
	// MaxRetries is the total number of attempts per page.
	MaxRetries int `json:"max_retries" validate:"min=1,max=20"`
	// RequestTimeout is in seconds.
	RequestTimeout float64 `json:"request_timeout" validate:"gt=0"`
	// RequestDelay is the pause after every request, in seconds.
	RequestDelay float64 `json:"request_delay" validate:"gte=0"`
	MaxPages     int     `json:"max_pages" validate:"min=1"`
	PageSize     int     `json:"page_size" validate:"min=1,max=1000"`
	// BackoffBase is in seconds.
	BackoffBase        float64 `json:"backoff_base" validate:"gte=0"`
	HaltMode           string  `json:"halt_mode" validate:"oneof=strict directional"`
	BodyFormat         string  `json:"body_format" validate:"oneof=text markdown"`
	IgnoreRobots       *bool   `json:"ignore_robots"`
	StopAfterSavedYear *bool   `json:"stop_after_saved_year"`
	UserAgent          string  `json:"user_agent"`
}

type Config struct {
	BlogURL          string           `json:"blog_url" validate:"required,url"`
	Login            bool             `json:"login"`
	DateRange        DateRange        `json:"date_range"`
	IncludedTags     []string         `json:"included_tags"`
	ExcludedTags     []string         `json:"excluded_tags"`
	OutputDir        string           `json:"output_dir" validate:"required"`
	ScrapingSettings ScrapingSettings `json:"scraping_settings"`
	AuthURL          string           `json:"auth_url" validate:"omitempty,url"`
	LogLevel         string           `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LocalPath returns the override file that accompanies name.
func LocalPath(name string) string {
	prefix, ext := splitExt(filepath.Base(name))
	if ext == "" {
		return filepath.Join(filepath.Dir(name), prefix+".local")
	}

	return filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))
}

// Read merges name and its local override without validating. At least one of
// the two files must exist.
func Read(name string) (*Config, error) {
	var out Config
	found := false

	data, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &out); err != nil {
			return nil, &Error{Reason: fmt.Sprintf("%s: %v", name, err)}
		}
		found = true
	}

	local := LocalPath(name)
	data, err = os.ReadFile(local)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(data) > 0 {
		var override Config
		if err := json5.Unmarshal(data, &override); err != nil {
			return nil, &Error{Reason: fmt.Sprintf("%s: %v", local, err)}
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return nil, err
		}
		found = true
	}

	if !found {
		return nil, fmt.Errorf("config %s: %w", name, os.ErrNotExist)
	}

	return &out, nil
}

// Load reads, defaults and validates the configuration at name.
func Load(name string) (*Config, error) {
	cfg, err := Read(name)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills optional settings left unset.
func (c *Config) ApplyDefaults() {
	s := &c.ScrapingSettings

	if s.PageSize == 0 {
		s.PageSize = 20
	}
	if s.BackoffBase == 0 {
		s.BackoffBase = 1
	}
	if s.HaltMode == "" {
		s.HaltMode = HaltStrict
	}
	if s.BodyFormat == "" {
		s.BodyFormat = BodyText
	}
	if s.IgnoreRobots == nil {
		ignore := true
		s.IgnoreRobots = &ignore
	}
	if s.StopAfterSavedYear == nil {
		stop := true
		s.StopAfterSavedYear = &stop
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.IncludedTags == nil {
		c.IncludedTags = []string{}
	}
	if c.ExcludedTags == nil {
		c.ExcludedTags = []string{}
	}
}

// Validate checks field constraints, then the rules that span fields: the
// blog address, the date window and the tag sets.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fromValidator(err)
	}

	u, err := url.Parse(c.BlogURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &Error{Field: "blog_url", Reason: "must be an absolute http(s) address"}
	}

	if _, err := c.Window(); err != nil {
		return err
	}

	if _, err := c.TagFilter(); err != nil {
		return err
	}

	return nil
}

// Window returns the crawl window from date_range.
func (c *Config) Window() (filter.Window, error) {
	start, err := time.Parse(post.DateLayout, strings.TrimSpace(c.DateRange.StartDate))
	if err != nil {
		return filter.Window{}, &Error{Field: "date_range.start_date", Reason: "must be a YYYY-MM-DD date"}
	}

	end, err := time.Parse(post.DateLayout, strings.TrimSpace(c.DateRange.EndDate))
	if err != nil {
		return filter.Window{}, &Error{Field: "date_range.end_date", Reason: "must be a YYYY-MM-DD date"}
	}

	w, err := filter.NewWindow(start, end)
	if err != nil {
		return filter.Window{}, &Error{Field: "date_range", Reason: "start_date must not be after end_date"}
	}

	return w, nil
}

// TagFilter returns the filter built from included_tags and excluded_tags.
func (c *Config) TagFilter() (*filter.TagFilter, error) {
	f, err := filter.NewTagFilter(c.IncludedTags, c.ExcludedTags)
	if err != nil {
		return nil, &Error{Field: "included_tags", Reason: err.Error()}
	}

	return f, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Timeout is the per-request timeout.
func (s ScrapingSettings) Timeout() time.Duration {
	return seconds(s.RequestTimeout)
}

// Delay is the pause after every request.
func (s ScrapingSettings) Delay() time.Duration {
	return seconds(s.RequestDelay)
}

// Backoff is the base of the exponential retry backoff.
func (s ScrapingSettings) Backoff() time.Duration {
	return seconds(s.BackoffBase)
}
