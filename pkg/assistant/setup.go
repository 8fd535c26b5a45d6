package assistant

import (
	"fmt"
	"log/slog"

	"github.com/randalmurphal/victoruno/pkg/config"
	"github.com/randalmurphal/victoruno/pkg/documents"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/llm"
	"github.com/randalmurphal/victoruno/pkg/search"
)

// FromSettings wires an Agent from resolved settings: the model adapter, the
// checkpoint store, the document processor and web search. opts are applied
// last and may replace any of them.
func FromSettings(s config.Settings, logger *slog.Logger, opts ...Option) (*Agent, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		client llm.Client
		label  string
	)
	switch s.ModelProvider {
	case "claude":
		client = llm.NewClaudeCLI(llm.WithTimeout(s.ModelTimeout))
		label = "claude"
	default:
		client = llm.NewOllama(s.OllamaHost, s.OllamaModel)
		label = s.OllamaModel
	}
	model := ModelFromClient(client,
		WithRetries(s.ModelRetries),
		WithCallTimeout(s.ModelTimeout),
		WithModelLogger(logger))

	store, err := openStore(s)
	if err != nil {
		return nil, err
	}

	var searcher SearchCapability = search.Unavailable{}
	if s.SearchEnabled {
		searcher = search.NewDuckDuckGo(
			search.WithEndpoint(s.SearchEndpoint),
			search.WithTimeout(s.SearchTimeout),
			search.WithLogger(logger))
	}

	base := []Option{
		WithName(s.AgentName),
		WithDescription(s.AgentDescription),
		WithModelLabel(label),
		WithStore(store),
		WithDocuments(documents.NewProcessor(
			documents.WithMaxFileSize(s.MaxFileSize),
			documents.WithFormats(s.SupportedFormats),
			documents.WithLogger(logger))),
		WithSearch(searcher),
		WithQueryStrategy(s.SearchQueryStrategy),
		WithResetClearsHistory(s.ResetClearsHistory),
		WithLogger(logger),
		WithMetrics(s.Metrics),
		WithTracing(s.Tracing),
	}

	agent, err := New(model, append(base, opts...)...)
	if err != nil {
		store.Close()
		return nil, err
	}
	if agent.store != store {
		// A WithStore in opts replaced the configured store.
		store.Close()
	}
	return agent, nil
}

// openStore is replaced in tests.
var openStore = openConfiguredStore

func openConfiguredStore(s config.Settings) (checkpoint.Store, error) {
	if s.StoreKind == "memory" {
		return checkpoint.NewMemoryStore(), nil
	}
	store, err := checkpoint.NewSQLiteStore(s.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}
	return store, nil
}
