package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphal/victoruno/pkg/config"
	"github.com/randalmurphal/victoruno/pkg/documents"
	"github.com/randalmurphal/victoruno/pkg/flowgraph"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/event"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/observability"
	"github.com/randalmurphal/victoruno/pkg/search"
)

// DefaultThread is the thread used when a caller passes none.
const DefaultThread = "default"

// Version of the assistant, reported by Info.
const Version = "0.1.0"

// Fixed replies.
const (
	noReplyText       = "I'm sorry, I couldn't generate a response."
	noSearchResults   = "No search results found."
	webSearchLimit    = 5
	defaultBatchLimit = 4
)

// Agent is the facade over the assistant workflow. Its methods never return
// errors: failures come back as reply text. Safe for concurrent use.
type Agent struct {
	name        string
	description string
	modelName   string

	model  LanguageModel
	docs   DocumentCapability
	search SearchCapability

	graph  *flowgraph.CompiledGraph[ConversationState]
	store  checkpoint.Store
	memory *shortTermMemory
	bus    *event.Bus
	ownBus bool

	queryStrategy      string
	resetClearsHistory bool
	batchConcurrency   int
	memoryLimit        int

	logger  *slog.Logger
	metrics bool
	tracing bool
	inst    instruments
}

// Option configures an Agent.
type Option func(*Agent)

// WithName sets the name the assistant introduces itself with.
func WithName(name string) Option {
	return func(a *Agent) {
		if name != "" {
			a.name = name
		}
	}
}

// WithDescription sets the one-line description reported by Info.
func WithDescription(d string) Option {
	return func(a *Agent) { a.description = d }
}

// WithModelLabel records the model name reported by Info.
func WithModelLabel(name string) Option {
	return func(a *Agent) { a.modelName = name }
}

// WithStore sets the checkpoint store holding conversation history.
// Default: an in-memory store.
func WithStore(store checkpoint.Store) Option {
	return func(a *Agent) { a.store = store }
}

// WithDocuments sets the document capability. Default: a
// documents.Processor with default limits.
func WithDocuments(d DocumentCapability) Option {
	return func(a *Agent) { a.docs = d }
}

// WithSearch sets the search capability. Default: search.Unavailable.
func WithSearch(s SearchCapability) Option {
	return func(a *Agent) { a.search = s }
}

// WithEventBus publishes agent events on bus. The caller owns the bus.
func WithEventBus(bus *event.Bus) Option {
	return func(a *Agent) { a.bus = bus }
}

// WithQueryStrategy selects how web_research derives its query:
// config.QueryLiteral (default) or config.QueryWords.
func WithQueryStrategy(strategy string) Option {
	return func(a *Agent) { a.queryStrategy = strategy }
}

// WithResetClearsHistory makes ResetConversation also delete the thread's
// checkpoints.
func WithResetClearsHistory(enabled bool) Option {
	return func(a *Agent) { a.resetClearsHistory = enabled }
}

// WithBatchConcurrency bounds ProcessDocuments. Default 4.
func WithBatchConcurrency(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.batchConcurrency = n
		}
	}
}

// WithMemoryLimit caps short-term memory per thread, in messages.
func WithMemoryLimit(n int) Option {
	return func(a *Agent) { a.memoryLimit = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records run, node and capability metrics on the global
// OpenTelemetry meter provider.
func WithMetrics(enabled bool) Option {
	return func(a *Agent) { a.metrics = enabled }
}

// WithTracing emits spans on the global OpenTelemetry tracer provider.
func WithTracing(enabled bool) Option {
	return func(a *Agent) { a.tracing = enabled }
}

// New creates an Agent around model.
func New(model LanguageModel, opts ...Option) (*Agent, error) {
	if model == nil {
		return nil, errors.New("assistant: language model is required")
	}

	a := &Agent{
		name:             "VictorUno",
		model:            model,
		queryStrategy:    config.QueryLiteral,
		batchConcurrency: defaultBatchLimit,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		a.store = checkpoint.NewMemoryStore()
	}
	if a.docs == nil {
		a.docs = documents.NewProcessor(documents.WithLogger(a.logger))
	}
	if a.search == nil {
		a.search = search.Unavailable{}
	}
	if a.bus == nil {
		a.bus = event.NewBus(event.BusConfig{NonBlocking: true})
		a.ownBus = true
	}
	switch a.queryStrategy {
	case config.QueryLiteral, config.QueryWords:
	default:
		return nil, fmt.Errorf("assistant: unknown query strategy %q", a.queryStrategy)
	}

	a.memory = newShortTermMemory(a.memoryLimit)
	a.inst = instruments{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		logger:  a.logger,
	}
	if a.metrics {
		a.inst.metrics = observability.NewMetricsRecorder()
	}
	if a.tracing {
		a.inst.spans = observability.NewSpanManager()
	}

	graph, err := buildWorkflow(&nodes{
		agentName:     a.name,
		model:         a.model,
		search:        a.search,
		queryStrategy: a.queryStrategy,
		inst:          a.inst,
	})
	if err != nil {
		return nil, err
	}
	a.graph = graph

	a.logger.Info("assistant initialized",
		slog.String("name", a.name),
		slog.String("model", a.modelName))
	return a, nil
}

// Chat runs one turn on threadID (DefaultThread when empty) and returns the
// assistant's reply. It never fails; errors are described in the reply.
func (a *Agent) Chat(ctx context.Context, message, threadID string) (reply string) {
	if threadID == "" {
		threadID = DefaultThread
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("chat panicked", slog.String("thread_id", threadID), slog.Any("panic", r))
			reply = fmt.Sprintf("I encountered an error: %v", r)
		}
	}()

	reply = a.runTurn(ctx, message, threadID)

	a.memory.append(threadID, UserMessage(message), AssistantMessage(reply))
	a.publish(ctx, EventTurnCompleted, threadID, TurnCompleted{
		ThreadID: threadID,
		Route:    Route(NewState(message)),
		Message:  message,
		Reply:    reply,
		Duration: time.Since(start),
	})
	return reply
}

func (a *Agent) runTurn(ctx context.Context, message, threadID string) string {
	fctx := flowgraph.NewContext(ctx,
		flowgraph.WithLogger(a.logger),
		flowgraph.WithCheckpointer(a.store))

	result, err := a.graph.Run(fctx, NewState(message),
		flowgraph.WithCheckpointing(a.store),
		flowgraph.WithThreadID(threadID),
		flowgraph.WithMerge(mergeTurn),
		flowgraph.WithObservabilityLogger(a.logger),
		flowgraph.WithMetricsRecorder(a.inst.metrics),
		flowgraph.WithTracing(a.tracing))
	if err != nil {
		a.logger.Error("chat failed",
			slog.String("thread_id", threadID),
			slog.String("error", err.Error()))
		return "I encountered an error: " + err.Error()
	}

	last, ok := result.LastReply()
	if !ok {
		return noReplyText
	}
	return last.Content
}

// ProcessDocument ingests ref directly, outside the conversation graph, and
// describes the outcome.
func (a *Agent) ProcessDocument(ctx context.Context, ref string) string {
	var res documents.Result
	_ = a.inst.observe(ctx, "documents", func(ctx context.Context) error {
		res = a.docs.Ingest(ctx, ref)
		if !res.Success {
			return errors.New(res.Message)
		}
		return nil
	})
	return a.documentReply(ctx, res)
}

// ProcessDocuments ingests refs concurrently and returns one reply per ref,
// in order.
func (a *Agent) ProcessDocuments(ctx context.Context, refs []string) []string {
	var results []documents.Result
	if b, ok := a.docs.(batchIngester); ok {
		results = b.IngestAll(ctx, refs, a.batchConcurrency)
	} else {
		results = make([]documents.Result, len(refs))
		for i, ref := range refs {
			results[i] = a.docs.Ingest(ctx, ref)
		}
	}

	replies := make([]string, len(results))
	for i, res := range results {
		replies[i] = a.documentReply(ctx, res)
	}
	return replies
}

func (a *Agent) documentReply(ctx context.Context, res documents.Result) string {
	a.publish(ctx, EventDocumentProcessed, "", DocumentProcessed{
		Filename: res.Filename,
		Success:  res.Success,
		Message:  res.Message,
	})
	if !res.Success {
		return res.Message
	}
	return fmt.Sprintf("Successfully processed '%s'. Content: %d words, %d characters. "+
		"The document content is now available for our conversation.",
		res.Filename, res.WordCount, res.CharCount)
}

// WebSearch runs a search outside the graph and formats the hits as a
// numbered list.
func (a *Agent) WebSearch(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return noSearchResults
	}

	var results []search.Result
	err := a.inst.observe(ctx, "search", func(ctx context.Context) error {
		var err error
		results, err = a.search.Search(ctx, query, webSearchLimit)
		return err
	})
	if err != nil {
		return "Error performing web search: " + err.Error()
	}
	a.publish(ctx, EventSearchCompleted, "", SearchCompleted{Query: query, Results: len(results)})

	if len(results) == 0 {
		return noSearchResults
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Web search results for '%s':\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s**\n", i+1, r.Title)
		fmt.Fprintf(&sb, "   URL: %s\n", r.URL)
		if r.Description != "" {
			fmt.Fprintf(&sb, "   Description: %s\n", r.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ResetConversation clears the thread's short-term memory. Durable history
// survives unless the agent was built WithResetClearsHistory. Calling it
// repeatedly is harmless.
func (a *Agent) ResetConversation(threadID string) {
	if threadID == "" {
		threadID = DefaultThread
	}
	a.memory.clear(threadID)

	if a.resetClearsHistory {
		if err := a.store.DeleteThread(threadID); err != nil {
			a.logger.Warn("failed to clear conversation history",
				slog.String("thread_id", threadID),
				slog.String("error", err.Error()))
		}
	}
	a.logger.Info("conversation reset", slog.String("thread_id", threadID))
	a.publish(context.Background(), EventConversationReset, threadID, nil)
}

// History returns the durable message history of threadID, oldest first.
// Only turns that ran to completion are included.
func (a *Agent) History(threadID string) []Message {
	if threadID == "" {
		threadID = DefaultThread
	}
	state, found, err := flowgraph.LoadCompletedState[ConversationState](a.store, threadID)
	if err != nil {
		a.logger.Warn("failed to load conversation history",
			slog.String("thread_id", threadID),
			slog.String("error", err.Error()))
		return nil
	}
	if !found {
		return nil
	}
	return state.Messages
}

// ShortTermMemory returns the recent exchanges on threadID since the last
// reset.
func (a *Agent) ShortTermMemory(threadID string) []Message {
	if threadID == "" {
		threadID = DefaultThread
	}
	return a.memory.messages(threadID)
}

// Info describes the running assistant.
type Info struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	Description      string   `json:"description,omitempty"`
	Model            string   `json:"model,omitempty"`
	Capabilities     []string `json:"capabilities"`
	DocumentFormats  []string `json:"document_formats,omitempty"`
	SearchAvailable  bool     `json:"search_available"`
	QueryStrategy    string   `json:"query_strategy"`
	ResetClearsStore bool     `json:"reset_clears_history"`
}

func (a *Agent) Info() Info {
	info := Info{
		Name:             a.name,
		Version:          Version,
		Description:      a.description,
		Model:            a.modelName,
		Capabilities:     []string{"chat", "documents", "web_search"},
		QueryStrategy:    a.queryStrategy,
		ResetClearsStore: a.resetClearsHistory,
	}
	if f, ok := a.docs.(interface{ SupportedFormats() []string }); ok {
		info.DocumentFormats = f.SupportedFormats()
	}
	_, unavailable := a.search.(search.Unavailable)
	info.SearchAvailable = !unavailable
	return info
}

// Events subscribes h to the agent's events of the given types (all types
// when none are given).
func (a *Agent) Events(h event.Handler, types ...string) (*event.Subscription, error) {
	return a.bus.Subscribe(types, h)
}

// Close releases the checkpoint store and, if the agent created it, the
// event bus.
func (a *Agent) Close() error {
	var errs []error
	if a.ownBus {
		errs = append(errs, a.bus.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

func (a *Agent) publish(ctx context.Context, eventType, threadID string, payload any) {
	if err := a.bus.Publish(ctx, event.New(eventType, eventSource, threadID, payload)); err != nil {
		a.logger.Debug("event not published",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
	}
}
