package documents

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sourcegraph/conc/iter"

	fgerrors "github.com/randalmurphal/victoruno/pkg/flowgraph/errors"
	"github.com/randalmurphal/victoruno/pkg/flowgraph/registry"
)

// DefaultMaxFileSize is the default upper bound on a document, 10 MiB.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// ErrUnsupportedFormat is returned for files no extractor can read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extractor reads a file and returns its text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Processor ingests documents. Safe for concurrent use.
type Processor struct {
	maxFileSize int64
	extractors  *registry.Registry[string, Extractor]
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithMaxFileSize sets the size limit in bytes.
func WithMaxFileSize(n int64) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxFileSize = n
		}
	}
}

// WithFormats restricts the processor to the given extensions ("pdf",
// ".txt"). Unknown names are ignored.
func WithFormats(formats []string) Option {
	return func(p *Processor) {
		keep := make(map[string]bool, len(formats))
		for _, f := range formats {
			keep[normalizeExt(f)] = true
		}
		// Markdown and HTML are text formats and ride along with txt.
		if keep[".txt"] {
			keep[".md"], keep[".html"], keep[".htm"] = true, true, true
		}
		for ext := range p.extractors.All() {
			if !keep[ext] {
				p.extractors.Delete(ext)
			}
		}
	}
}

// WithExtractor registers (or replaces) the extractor for ext.
func WithExtractor(ext string, e Extractor) Option {
	return func(p *Processor) {
		p.extractors.Register(normalizeExt(ext), e)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor returns a processor with the built-in extractors for
// txt, md, html, htm, docx and pdf.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		maxFileSize: DefaultMaxFileSize,
		extractors:  registry.New[string, Extractor](),
		logger:      slog.Default(),
	}
	p.extractors.RegisterAll([]string{".txt", ".md"}, ExtractorFunc(extractText))
	p.extractors.RegisterAll([]string{".html", ".htm"}, ExtractorFunc(extractHTML))
	p.extractors.Register(".docx", ExtractorFunc(extractDOCX))
	p.extractors.Register(".pdf", ExtractorFunc(extractPDF))

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest reads the document at ref. It fails closed: a missing file, an
// oversized file, or an unreadable format yields Success false.
func (p *Processor) Ingest(ctx context.Context, ref string) Result {
	name := filepath.Base(ref)

	content, info, err := p.ingest(ctx, ref)
	if err != nil {
		p.logger.Error("document processing failed",
			slog.String("path", ref),
			slog.String("error", err.Error()))
		return failure(name, ref, err)
	}

	ext := strings.ToLower(filepath.Ext(ref))
	p.logger.Info("document processed",
		slog.String("path", ref),
		slog.Int64("size_bytes", info.Size()))
	return success(name, ref, info.Size(), ext, mime.TypeByExtension(ext), content)
}

func (p *Processor) ingest(ctx context.Context, ref string) (string, fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	info, err := os.Stat(ref)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, inputError(fmt.Errorf("file not found: %s", ref))
	}
	if err != nil {
		return "", nil, inputError(err)
	}
	if info.IsDir() {
		return "", nil, inputError(fmt.Errorf("not a file: %s", ref))
	}
	if info.Size() > p.maxFileSize {
		return "", nil, inputError(fmt.Errorf("file too large: %d bytes (max: %d)", info.Size(), p.maxFileSize))
	}

	ext := strings.ToLower(filepath.Ext(ref))
	if extractor, ok := p.extractors.Get(ext); ok {
		content, err := extractor.Extract(ctx, ref)
		if err != nil {
			return "", nil, fgerrors.NewCapabilityError(fgerrors.KindCapabilityError, "documents", err)
		}
		return content, info, nil
	}

	// Unknown extension: accept it only if it is clearly text.
	content, err := extractPlainUTF(ref)
	if err != nil {
		return "", nil, inputError(fmt.Errorf("%w: %s", ErrUnsupportedFormat, displayExt(ext)))
	}
	return content, info, nil
}

// IngestAll processes refs with at most concurrency workers and returns
// results in input order.
func (p *Processor) IngestAll(ctx context.Context, refs []string, concurrency int) []Result {
	mapper := iter.Mapper[string, Result]{MaxGoroutines: max(concurrency, 1)}
	return mapper.Map(refs, func(ref *string) Result {
		return p.Ingest(ctx, *ref)
	})
}

// SupportedFormats lists the readable extensions without the dot, sorted.
func (p *Processor) SupportedFormats() []string {
	exts := registry.SortedKeys(p.extractors)
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = strings.TrimPrefix(e, ".")
	}
	return out
}

// IsSupported reports whether path has an extension with a registered
// extractor.
func (p *Processor) IsSupported(path string) bool {
	return slices.Contains(p.SupportedFormats(), strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

func inputError(err error) error {
	return fgerrors.NewCapabilityError(fgerrors.KindInputError, "documents", err)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func displayExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}
