package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Query extraction strategies for web research.
const (
	QueryLiteral = "literal"
	QueryWords   = "words"
)

// Settings is the resolved configuration of one assistant process.
type Settings struct {
	OllamaHost  string
	OllamaModel string
	// ModelProvider selects the language model adapter: "ollama" or "claude".
	ModelProvider string
	ModelRetries  int
	ModelTimeout  time.Duration

	AgentName          string
	AgentDescription   string
	ResetClearsHistory bool

	WebHost string
	WebPort int

	MaxFileSize      int64
	SupportedFormats []string

	DataDir      string
	DocumentsDir string

	// StoreKind is "memory" or "sqlite"; StorePath locates the database.
	StoreKind string
	StorePath string

	SearchEnabled       bool
	SearchEndpoint      string
	SearchTimeout       time.Duration
	SearchQueryStrategy string

	LogLevel slog.Level
	Metrics  bool
	Tracing  bool
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	dataDir := expandHome("~/.victoruno")
	return Settings{
		OllamaHost:    "http://localhost:11434",
		OllamaModel:   "llama2",
		ModelProvider: "ollama",
		ModelRetries:  3,
		ModelTimeout:  5 * time.Minute,

		AgentName:        "VictorUno",
		AgentDescription: "Personal agent for research, development, and optimization",

		WebHost: "0.0.0.0",
		WebPort: 8000,

		MaxFileSize:      10 * 1024 * 1024,
		SupportedFormats: []string{"pdf", "txt", "docx", "md"},

		DataDir:      dataDir,
		DocumentsDir: filepath.Join(dataDir, "documents"),

		StoreKind: "sqlite",
		StorePath: filepath.Join(dataDir, "threads.db"),

		SearchEnabled:       true,
		SearchEndpoint:      "https://html.duckduckgo.com/html/",
		SearchTimeout:       15 * time.Second,
		SearchQueryStrategy: QueryLiteral,

		LogLevel: slog.LevelInfo,
	}
}

// FromConfig layers c over Defaults.
func FromConfig(c Config) (Settings, error) {
	d := Defaults()
	s := Settings{
		OllamaHost:    c.String("ollama.host", d.OllamaHost),
		OllamaModel:   c.String("ollama.model", d.OllamaModel),
		ModelProvider: strings.ToLower(c.String("model.provider", d.ModelProvider)),
		ModelRetries:  c.Int("model.retries", d.ModelRetries),
		ModelTimeout:  c.Duration("model.timeout", d.ModelTimeout),

		AgentName:          c.String("agent.name", d.AgentName),
		AgentDescription:   c.String("agent.description", d.AgentDescription),
		ResetClearsHistory: c.Bool("agent.reset_clears_history", false),

		WebHost: c.String("web.host", d.WebHost),
		WebPort: c.Int("web.port", d.WebPort),

		MaxFileSize:      c.Int64("documents.max_file_size", d.MaxFileSize),
		SupportedFormats: c.StringSlice("documents.supported_formats", d.SupportedFormats),

		DataDir: expandHome(c.String("data_dir", d.DataDir)),

		StoreKind: strings.ToLower(c.String("store.kind", d.StoreKind)),

		SearchEnabled:       c.Bool("search.enabled", d.SearchEnabled),
		SearchEndpoint:      c.String("search.endpoint", d.SearchEndpoint),
		SearchTimeout:       c.Duration("search.timeout", d.SearchTimeout),
		SearchQueryStrategy: strings.ToLower(c.String("search.query_strategy", d.SearchQueryStrategy)),

		Metrics: c.Bool("telemetry.metrics", false),
		Tracing: c.Bool("telemetry.tracing", false),
	}

	// Paths under the data dir follow it unless set explicitly.
	s.DocumentsDir = expandHome(c.String("documents.dir", filepath.Join(s.DataDir, "documents")))
	s.StorePath = expandHome(c.String("store.path", filepath.Join(s.DataDir, "threads.db")))

	if err := s.LogLevel.UnmarshalText([]byte(c.String("log.level", "info"))); err != nil {
		return s, fmt.Errorf("log.level: %w", err)
	}

	return s, s.Validate()
}

// Load reads path (optional; "" or a missing file means defaults), then
// applies environment overrides.
func Load(path string) (Settings, error) {
	c := New(nil)
	if path != "" {
		loaded, err := FromFile(expandHome(path))
		switch {
		case err == nil:
			c = loaded
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", slog.String("path", path))
		default:
			return Settings{}, err
		}
	}
	ApplyEnv(c, os.LookupEnv)
	return FromConfig(c)
}

// Validate rejects settings the assistant cannot run with.
func (s Settings) Validate() error {
	var errs []error
	if s.WebPort <= 0 || s.WebPort > 65535 {
		errs = append(errs, fmt.Errorf("web.port out of range: %d", s.WebPort))
	}
	if s.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("documents.max_file_size must be positive: %d", s.MaxFileSize))
	}
	switch s.ModelProvider {
	case "ollama", "claude":
	default:
		errs = append(errs, fmt.Errorf("model.provider must be ollama or claude: %q", s.ModelProvider))
	}
	switch s.StoreKind {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.kind must be memory or sqlite: %q", s.StoreKind))
	}
	switch s.SearchQueryStrategy {
	case QueryLiteral, QueryWords:
	default:
		errs = append(errs, fmt.Errorf("search.query_strategy must be %s or %s: %q", QueryLiteral, QueryWords, s.SearchQueryStrategy))
	}
	return errors.Join(errs...)
}

// EnsureDirs creates the data and documents directories.
func (s Settings) EnsureDirs() error {
	for _, dir := range []string{s.DataDir, s.DocumentsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// WebAddr is host:port for the web server.
func (s Settings) WebAddr() string {
	return fmt.Sprintf("%s:%d", s.WebHost, s.WebPort)
}
