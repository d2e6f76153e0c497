// Package task defines the validated task definition consumed by the
// scheduler and the execution pipeline, plus loading of definitions from a
// tasks directory.
package task

import (
	"fmt"
	"strings"
)

// ContentPlaceholder is the marker inside a prompt template that is replaced
// with the extracted page content before the prompt is sent for inference.
const ContentPlaceholder = "{{content}}"

// Format selects how matched elements are rendered into text.
type Format string

const (
	// FormatText extracts the plain text of matched elements.
	FormatText Format = "text"
	// FormatMarkdown renders the matched elements' HTML as markdown.
	FormatMarkdown Format = "markdown"
)

// Definition is one configured unit of work: a content target paired with an
// inference request and an optional schedule. A Definition is validated once
// at load time and immutable afterwards; downstream components rely on the
// required fields being present.
type Definition struct {
	Name     string // unique task name, taken from the definition file
	URL      string // target page, http(s) only
	Tags     string // comma-separated selectors; "!" prefix marks an exclusion
	Model    string // inference model name
	Prompt   string // prompt template, must contain ContentPlaceholder
	APIURL   string // inference service address
	Schedule string // raw schedule string, may be empty (manual-only task)
	Format   Format // output rendering, defaults to FormatText
}

// Validate checks the required fields of a definition. Schedule is the only
// field allowed to be empty.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("task name is required")
	}
	if d.URL == "" {
		return fmt.Errorf("task %q: url is required", d.Name)
	}
	if strings.TrimSpace(d.Tags) == "" {
		return fmt.Errorf("task %q: tags is required", d.Name)
	}
	if d.Model == "" {
		return fmt.Errorf("task %q: model is required", d.Name)
	}
	if d.Prompt == "" {
		return fmt.Errorf("task %q: prompt is required", d.Name)
	}
	if !strings.Contains(d.Prompt, ContentPlaceholder) {
		return fmt.Errorf("task %q: prompt must contain the %s placeholder", d.Name, ContentPlaceholder)
	}
	if d.APIURL == "" {
		return fmt.Errorf("task %q: api_url is required", d.Name)
	}
	switch d.Format {
	case "", FormatText, FormatMarkdown:
	default:
		return fmt.Errorf("task %q: invalid format %q (expected: text, markdown)", d.Name, d.Format)
	}
	return nil
}

// Selectors splits the raw tag string into include and exclude selector
// lists. Selectors prefixed with "!" are exclusions (prefix stripped); all
// entries are trimmed and empty entries dropped.
func (d *Definition) Selectors() (include, exclude []string) {
	for _, tag := range strings.Split(d.Tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if stripped, ok := strings.CutPrefix(tag, "!"); ok {
			stripped = strings.TrimSpace(stripped)
			if stripped != "" {
				exclude = append(exclude, stripped)
			}
			continue
		}
		include = append(include, tag)
	}
	return include, exclude
}
