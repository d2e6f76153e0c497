// Package extract implements the content-extraction side of the execution
// pipeline: fetch a page, validate CSS selectors against the live document,
// and collect the text of elements matching the include selectors while
// dropping elements that also match an exclude selector.
//
// The Engine/Session split makes resource scoping explicit: a Session is
// acquired per extraction attempt and must be released before the attempt
// concludes, regardless of outcome.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/wasilibs/go-re2"

	"github.com/pagewatch/pagewatch/internal/logger"
	"github.com/pagewatch/pagewatch/internal/task"
)

// NoContentMarker is the canonical result when no element matched. An empty
// match set is a successful extraction, not a failure.
const NoContentMarker = "[no content matched]"

// ErrInvalidSelector marks a selector the engine rejected as syntactically
// invalid. It aborts the extraction attempt.
var ErrInvalidSelector = errors.New("invalid selector")

// urlPattern accepts http(s) URLs with a non-empty host.
var urlPattern = re2.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)

// ValidURL reports whether raw looks like an HTTP(S) URL.
func ValidURL(raw string) bool {
	return urlPattern.MatchString(raw)
}

// Request describes one extraction: the target page, the selector lists and
// the output rendering.
type Request struct {
	URL     string
	Include []string
	Exclude []string
	Format  task.Format
}

// Session is a scoped extraction resource. Extract may be called once or
// several times; Release must be called exactly once when the attempt
// concludes.
type Session interface {
	Extract(ctx context.Context, req Request) (string, error)
	Release()
}

// Engine hands out extraction sessions.
type Engine interface {
	Acquire(ctx context.Context) (Session, error)
}

// Config controls the HTTP engine.
type Config struct {
	Timeout         time.Duration
	UserAgent       string
	MaxResponseSize int64
}

// HTTPEngine fetches pages over plain HTTP and evaluates selectors with
// goquery. It is the default Engine implementation.
type HTTPEngine struct {
	cfg    Config
	client *http.Client
	logger *logger.Logger
}

// NewHTTPEngine creates an engine with the given fetch limits.
func NewHTTPEngine(cfg Config, log *logger.Logger) *HTTPEngine {
	return &HTTPEngine{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

// Acquire opens a new extraction session.
func (e *HTTPEngine) Acquire(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpSession{engine: e}, nil
}

type httpSession struct {
	engine   *HTTPEngine
	released bool
}

// Release marks the session as closed. Further Extract calls fail.
func (s *httpSession) Release() {
	s.released = true
}

func (s *httpSession) Extract(ctx context.Context, req Request) (string, error) {
	if s.released {
		return "", fmt.Errorf("extract called on released session")
	}

	doc, err := s.load(ctx, req.URL)
	if err != nil {
		return "", err
	}

	include, exclude, err := compileSelectors(req.Include, req.Exclude)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, inc := range include {
		doc.FindMatcher(inc).Each(func(_ int, sel *goquery.Selection) {
			for _, exc := range exclude {
				if sel.IsMatcher(exc) {
					return
				}
			}
			text := s.render(sel, req.Format)
			if text != "" {
				lines = append(lines, text)
			}
		})
	}

	if len(lines) == 0 {
		return NoContentMarker, nil
	}
	return Sanitize(strings.Join(lines, "\n")), nil
}

// load navigates to the target page and parses it.
func (s *httpSession) load(ctx context.Context, url string) (*goquery.Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", s.engine.cfg.UserAgent)
	httpReq.Header.Set("Accept", "text/html,*/*")

	resp, err := s.engine.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("target returned status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, s.engine.cfg.MaxResponseSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > s.engine.cfg.MaxResponseSize {
		return nil, fmt.Errorf("response exceeds %d bytes limit", s.engine.cfg.MaxResponseSize)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

// render converts one matched element to a single output line.
func (s *httpSession) render(sel *goquery.Selection, format task.Format) string {
	if format == task.FormatMarkdown {
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			return strings.TrimSpace(sel.Text())
		}
		converter := md.NewConverter("", true, nil)
		markdown, err := converter.ConvertString(html)
		if err != nil {
			s.engine.logger.Warn("markdown conversion failed, falling back to text",
				logger.Field{Key: "error", Value: err.Error()})
			return strings.TrimSpace(sel.Text())
		}
		return strings.TrimSpace(markdown)
	}
	return strings.TrimSpace(sel.Text())
}

// compileSelectors validates every selector before any extraction happens.
// goquery silently treats invalid selectors as matching nothing; compiling
// them with cascadia first surfaces syntax errors as ErrInvalidSelector.
func compileSelectors(include, exclude []string) ([]cascadia.Selector, []cascadia.Selector, error) {
	compile := func(raw []string) ([]cascadia.Selector, error) {
		compiled := make([]cascadia.Selector, 0, len(raw))
		for _, sel := range raw {
			c, err := cascadia.Compile(sel)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, sel, err)
			}
			compiled = append(compiled, c)
		}
		return compiled, nil
	}

	inc, err := compile(include)
	if err != nil {
		return nil, nil, err
	}
	exc, err := compile(exclude)
	if err != nil {
		return nil, nil, err
	}
	return inc, exc, nil
}
