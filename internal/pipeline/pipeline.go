// Package pipeline executes one observation task end to end: validate the
// task's inputs, extract content from the target page with bounded retries,
// feed the content to the inference service, and report the terminal outcome
// to the result sink.
//
// Only the extraction stage is retried. The inference stage runs once per
// successful extraction; retrying it is left to the scheduling layer, which
// currently does not. Overlapping runs of the same task are possible when a
// fire interval is shorter than a run's duration; no same-task mutual
// exclusion is enforced.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pagewatch/pagewatch/internal/extract"
	"github.com/pagewatch/pagewatch/internal/inference"
	"github.com/pagewatch/pagewatch/internal/logger"
	"github.com/pagewatch/pagewatch/internal/metrics"
	"github.com/pagewatch/pagewatch/internal/result"
	"github.com/pagewatch/pagewatch/internal/retry"
	"github.com/pagewatch/pagewatch/internal/task"
)

// FailureKind classifies terminal task failures.
type FailureKind string

const (
	// FailInvalidInput marks malformed task inputs; never retried.
	FailInvalidInput FailureKind = "invalid_input"
	// FailInvalidSelector marks a selector the extraction engine rejected.
	FailInvalidSelector FailureKind = "invalid_selector"
	// FailExtraction marks a transient extraction failure that survived all
	// retry attempts.
	FailExtraction FailureKind = "extraction_failed"
	// FailInference marks an unreachable inference service or an empty/error
	// response.
	FailInference FailureKind = "inference_failed"
)

// Failure is the classified terminal error of one task execution.
type Failure struct {
	Kind FailureKind
	Task string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("task %s: %s: %v", f.Task, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Config controls the extraction retry policy.
type Config struct {
	MaxRetries int           // attempts for the extraction stage
	RetryDelay time.Duration // fixed delay between attempts
}

// Pipeline runs observation tasks against the extraction and inference
// collaborators.
type Pipeline struct {
	cfg     Config
	engine  extract.Engine
	client  inference.Client
	sink    result.Sink
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// New creates a pipeline. metrics may be nil when instrumentation is
// disabled.
func New(cfg Config, engine extract.Engine, client inference.Client, sink result.Sink, m *metrics.Metrics, log *logger.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		engine:  engine,
		client:  client,
		sink:    sink,
		metrics: m,
		logger:  log,
	}
}

// Run executes one task. The returned error, when non-nil, is always a
// *Failure; both outcomes are written to the result sink before returning.
func (p *Pipeline) Run(ctx context.Context, def task.Definition) (result.Record, error) {
	runID := uuid.NewString()
	started := time.Now()
	log := p.logger.With(
		logger.Field{Key: "task", Value: def.Name},
		logger.Field{Key: "run_id", Value: runID})

	log.Info("task run started", logger.Field{Key: "url", Value: def.URL})

	rec, err := p.run(ctx, def, runID, log)
	duration := time.Since(started)

	if err != nil {
		var failure *Failure
		if !errors.As(err, &failure) {
			failure = &Failure{Kind: FailExtraction, Task: def.Name, Err: err}
		}
		rec = result.Record{
			ID:        runID,
			Task:      def.Name,
			Model:     def.Model,
			Status:    result.StatusFailure,
			Kind:      string(failure.Kind),
			Content:   failure.Err.Error(),
			Timestamp: time.Now(),
		}
		log.Error("task run failed", failure.Err,
			logger.Field{Key: "kind", Value: string(failure.Kind)},
			logger.Field{Key: "duration", Value: duration})
		p.report(rec, string(failure.Kind), duration, log)
		return rec, failure
	}

	log.Info("task run completed",
		logger.Field{Key: "duration", Value: duration},
		logger.Field{Key: "response_length", Value: len(rec.Content)})
	p.report(rec, "success", duration, log)
	return rec, nil
}

// run performs the two stages and returns the success record.
func (p *Pipeline) run(ctx context.Context, def task.Definition, runID string, log *logger.Logger) (result.Record, error) {
	if !extract.ValidURL(def.URL) {
		return result.Record{}, &Failure{Kind: FailInvalidInput, Task: def.Name,
			Err: fmt.Errorf("target %q is not an http(s) URL", def.URL)}
	}

	include, exclude := def.Selectors()
	if len(include) == 0 {
		return result.Record{}, &Failure{Kind: FailInvalidInput, Task: def.Name,
			Err: fmt.Errorf("task has no include selectors")}
	}

	content, err := p.extractWithRetry(ctx, def, include, exclude, log)
	if err != nil {
		kind := FailExtraction
		if errors.Is(err, extract.ErrInvalidSelector) {
			kind = FailInvalidSelector
		}
		return result.Record{}, &Failure{Kind: kind, Task: def.Name, Err: err}
	}

	text, err := p.infer(ctx, def, content, log)
	if err != nil {
		return result.Record{}, err
	}

	return result.Record{
		ID:        runID,
		Task:      def.Name,
		Model:     def.Model,
		Status:    result.StatusSuccess,
		Content:   text,
		Timestamp: time.Now(),
	}, nil
}

// extractWithRetry runs the extraction stage with the configured attempt
// budget. A session is acquired per attempt and released before the attempt
// concludes, whatever the outcome.
func (p *Pipeline) extractWithRetry(ctx context.Context, def task.Definition, include, exclude []string, log *logger.Logger) (string, error) {
	var content string

	err := retry.Do(ctx, retry.Config{MaxAttempts: p.cfg.MaxRetries, Delay: p.cfg.RetryDelay}, func(attempt int) error {
		log.Debug("extraction attempt started",
			logger.Field{Key: "attempt", Value: attempt},
			logger.Field{Key: "max_attempts", Value: p.cfg.MaxRetries})
		if p.metrics != nil {
			p.metrics.RecordAttempt()
		}

		extracted, err := p.extractOnce(ctx, def, include, exclude)
		if err != nil {
			if attempt < p.cfg.MaxRetries {
				log.Warn("extraction attempt failed, retrying",
					logger.Field{Key: "attempt", Value: attempt},
					logger.Field{Key: "error", Value: err.Error()})
			}
			return err
		}

		content = extracted
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// extractOnce performs a single scoped extraction attempt.
func (p *Pipeline) extractOnce(ctx context.Context, def task.Definition, include, exclude []string) (string, error) {
	session, err := p.engine.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire extraction session: %w", err)
	}
	defer session.Release()

	return session.Extract(ctx, extract.Request{
		URL:     def.URL,
		Include: include,
		Exclude: exclude,
		Format:  def.Format,
	})
}

// infer validates the inference inputs, substitutes the content placeholder
// and calls the inference service once.
func (p *Pipeline) infer(ctx context.Context, def task.Definition, content string, log *logger.Logger) (string, error) {
	if def.Model == "" || def.Prompt == "" {
		return "", &Failure{Kind: FailInvalidInput, Task: def.Name,
			Err: fmt.Errorf("model and prompt must be non-empty")}
	}
	if !strings.Contains(def.Prompt, task.ContentPlaceholder) {
		return "", &Failure{Kind: FailInvalidInput, Task: def.Name,
			Err: fmt.Errorf("prompt is missing the %s placeholder", task.ContentPlaceholder)}
	}
	if !inference.ValidAddress(def.APIURL) {
		return "", &Failure{Kind: FailInvalidInput, Task: def.Name,
			Err: fmt.Errorf("inference address %q is not a valid URL", def.APIURL)}
	}

	prompt := strings.ReplaceAll(def.Prompt, task.ContentPlaceholder, content)
	log.Debug("sending prompt for inference",
		logger.Field{Key: "model", Value: def.Model},
		logger.Field{Key: "prompt_length", Value: len(prompt)})

	text, err := p.client.Generate(ctx, inference.Request{
		Address: def.APIURL,
		Model:   def.Model,
		Prompt:  prompt,
	})
	if err != nil {
		return "", &Failure{Kind: FailInference, Task: def.Name, Err: err}
	}
	return text, nil
}

// report writes the terminal outcome to the result sink and the metrics.
func (p *Pipeline) report(rec result.Record, outcome string, duration time.Duration, log *logger.Logger) {
	if p.metrics != nil {
		p.metrics.RecordRun(outcome, duration)
	}
	if p.sink == nil {
		return
	}
	if err := p.sink.Write(rec); err != nil {
		log.Error("failed to write result record", err)
	}
}
