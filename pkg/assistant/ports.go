package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphal/victoruno/pkg/documents"
	fgerrors "github.com/randalmurphal/victoruno/pkg/flowgraph/errors"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/llm"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/observability"
	"github.com/randalmurphal/victoruno/pkg/search"
)

// LanguageModel turns a conversation into the next assistant reply.
type LanguageModel interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// DocumentCapability ingests a document. It fails closed: problems are
// reported through Result.Success and Result.Message.
type DocumentCapability interface {
	Ingest(ctx context.Context, ref string) documents.Result
}

// SearchCapability searches the web. No results is an empty slice.
type SearchCapability interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// batchIngester is implemented by document capabilities that can ingest in
// parallel.
type batchIngester interface {
	IngestAll(ctx context.Context, refs []string, concurrency int) []documents.Result
}

// ModelFunc adapts a function to LanguageModel.
type ModelFunc func(ctx context.Context, messages []Message) (string, error)

func (f ModelFunc) Generate(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// SearchFunc adapts a function to SearchCapability.
type SearchFunc func(ctx context.Context, query string, limit int) ([]search.Result, error)

func (f SearchFunc) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	return f(ctx, query, limit)
}

// clientModel adapts an llm.Client. System messages are folded into the
// request's system prompt; transient failures are retried.
type clientModel struct {
	client      llm.Client
	model       string
	temperature float64
	timeout     time.Duration
	retry       fgerrors.RetryConfig
	logger      *slog.Logger
}

// ModelOption configures ModelFromClient.
type ModelOption func(*clientModel)

// WithModelName overrides the client's default model.
func WithModelName(name string) ModelOption {
	return func(m *clientModel) { m.model = name }
}

// WithTemperature sets the sampling temperature. Default 0.7.
func WithTemperature(t float64) ModelOption {
	return func(m *clientModel) { m.temperature = t }
}

// WithCallTimeout bounds a single completion attempt.
func WithCallTimeout(d time.Duration) ModelOption {
	return func(m *clientModel) { m.timeout = d }
}

// WithRetries sets how many attempts a generation gets in total.
func WithRetries(attempts int) ModelOption {
	return func(m *clientModel) { m.retry.MaxAttempts = max(attempts, 1) }
}

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(cfg fgerrors.RetryConfig) ModelOption {
	return func(m *clientModel) { m.retry = cfg }
}

func WithModelLogger(logger *slog.Logger) ModelOption {
	return func(m *clientModel) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// ModelFromClient adapts an llm.Client into a LanguageModel.
func ModelFromClient(client llm.Client, opts ...ModelOption) LanguageModel {
	m := &clientModel{
		client:      client,
		temperature: 0.7,
		retry:       fgerrors.DefaultRetry,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.retry.OnRetry == nil {
		m.retry.OnRetry = func(attempt int, err error, wait time.Duration) {
			m.logger.Warn("model call failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()))
		}
	}
	return m
}

func (m *clientModel) Generate(ctx context.Context, messages []Message) (string, error) {
	req := m.request(messages)

	res := fgerrors.Do(ctx, m.retry, func(ctx context.Context) (*llm.CompletionResponse, error) {
		if m.timeout <= 0 {
			return m.client.Complete(ctx, req)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()
		resp, err := m.client.Complete(attemptCtx, req)
		if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			// Only this attempt ran out of time; the next one may not.
			return nil, &fgerrors.TimeoutError{Operation: "model completion", Duration: m.timeout.String()}
		}
		return resp, err
	})
	if res.Err != nil {
		return "", fgerrors.NewCapabilityError(fgerrors.KindModelError, "model", unwrapCategorized(res.Err))
	}
	return res.Value.Content, nil
}

func (m *clientModel) request(messages []Message) llm.CompletionRequest {
	var system []string
	msgs := make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		msgs = append(msgs, llm.Message{Role: llm.Role(msg.Role), Content: msg.Content})
	}
	return llm.CompletionRequest{
		SystemPrompt: strings.Join(system, "\n\n"),
		Messages:     msgs,
		Model:        m.model,
		Temperature:  m.temperature,
	}
}

// unwrapCategorized drops the retry bookkeeping so replies quote the
// backend's own error text.
func unwrapCategorized(err error) error {
	var catErr *fgerrors.CategorizedError
	if errors.As(err, &catErr) && catErr.Err != nil {
		return catErr.Err
	}
	return err
}

// instruments records capability calls as metrics, spans and logs.
type instruments struct {
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	logger  *slog.Logger
}

func (in instruments) observe(ctx context.Context, capability string, fn func(context.Context) error) error {
	ctx, span := in.spans.StartCapabilitySpan(ctx, capability)
	start := time.Now()
	err := fn(ctx)
	in.metrics.RecordCapabilityCall(ctx, capability, time.Since(start), err)
	in.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogCapabilityError(in.logger, capability, err)
	}
	return err
}
