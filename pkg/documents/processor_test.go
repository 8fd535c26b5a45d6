package documents

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fgerrors "github.com/randalmurphal/victoruno/pkg/flowgraph/errors"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIngest_Text(t *testing.T) {
	p := NewProcessor()
	path := writeFile(t, "notes.txt", []byte("The quick brown fox\njumps over"))

	res := p.Ingest(context.Background(), path)

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "notes.txt", res.Filename)
	assert.Equal(t, ".txt", res.Extension)
	assert.Equal(t, "The quick brown fox\njumps over", res.Content)
	assert.Equal(t, 6, res.WordCount)
	assert.Equal(t, 30, res.CharCount)
	assert.Equal(t, int64(30), res.SizeBytes)
	assert.Equal(t, "Successfully processed notes.txt", res.Message)
}

func TestIngest_TextEncodings(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf8 with bom", []byte("\xef\xbb\xbfhello"), "hello"},
		{"utf16 le bom", []byte("\xff\xfeh\x00i\x00"), "hi"},
		{"latin1", []byte("caf\xe9"), "café"},
	}

	p := NewProcessor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Ingest(context.Background(), writeFile(t, "doc.md", tt.data))
			require.True(t, res.Success, res.Message)
			assert.Equal(t, tt.want, res.Content)
		})
	}
}

func TestIngest_HTML(t *testing.T) {
	page := `<html><head><title>Menu</title><style>body{color:red}</style>
<script>alert("x")</script></head>
<body><h1>Lunch</h1><p>Soup  of the day</p><p>   </p></body></html>`
	res := NewProcessor().Ingest(context.Background(), writeFile(t, "menu.html", []byte(page)))

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Menu\nLunch\nSoup\nof the day", res.Content)
	assert.NotContains(t, res.Content, "alert")
	assert.NotContains(t, res.Content, "color")
}

func TestIngest_DOCX(t *testing.T) {
	const body = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Quarterly </w:t></w:r><w:r><w:t>report</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Region</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Sales</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>North</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>42</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:t>Done.</w:t></w:r></w:p>
</w:body>
</w:document>`

	path := filepath.Join(t.TempDir(), "report.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	res := NewProcessor().Ingest(context.Background(), path)

	require.True(t, res.Success, res.Message)
	want := strings.Join([]string{
		"Quarterly report",
		"\n--- Table ---",
		"Region | Sales",
		"North | 42",
		"--- End Table ---\n",
		"Done.",
	}, "\n")
	assert.Equal(t, want, res.Content)
}

func TestIngest_DOCXWithoutBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, zip.NewWriter(f).Close())
	require.NoError(t, f.Close())

	res := NewProcessor().Ingest(context.Background(), path)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "word/document.xml missing")
}

func TestIngest_Failures(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope.txt")

	t.Run("missing file", func(t *testing.T) {
		res := NewProcessor().Ingest(context.Background(), missing)
		assert.False(t, res.Success)
		assert.Equal(t, "Error processing document: file not found: "+missing, res.Message)
		assert.Equal(t, "nope.txt", res.Filename)
		assert.Empty(t, res.Content)
		assert.Zero(t, res.WordCount)
		assert.Zero(t, res.CharCount)
	})

	t.Run("too large", func(t *testing.T) {
		path := writeFile(t, "big.txt", []byte("0123456789"))
		res := NewProcessor(WithMaxFileSize(5)).Ingest(context.Background(), path)
		assert.False(t, res.Success)
		assert.Equal(t, "Error processing document: file too large: 10 bytes (max: 5)", res.Message)
	})

	t.Run("binary with unknown extension", func(t *testing.T) {
		path := writeFile(t, "blob.bin", []byte{0x00, 0x9f, 0x92, 0x96})
		res := NewProcessor().Ingest(context.Background(), path)
		assert.False(t, res.Success)
		assert.Equal(t, "Error processing document: unsupported file format: .bin", res.Message)
	})

	t.Run("directory", func(t *testing.T) {
		res := NewProcessor().Ingest(context.Background(), dir)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "not a file")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res := NewProcessor().Ingest(ctx, writeFile(t, "a.txt", []byte("a")))
		assert.False(t, res.Success)
	})
}

func TestIngest_UnknownTextExtension(t *testing.T) {
	res := NewProcessor().Ingest(context.Background(), writeFile(t, "server.log", []byte("started ok")))
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "started ok", res.Content)
}

func TestIngest_ErrorKinds(t *testing.T) {
	p := NewProcessor()
	_, _, err := p.ingest(context.Background(), filepath.Join(t.TempDir(), "x.txt"))
	assert.Equal(t, fgerrors.KindInputError, fgerrors.KindOf(err))

	_, _, err = p.ingest(context.Background(), writeFile(t, "bad.pdf", []byte("not a pdf")))
	assert.Equal(t, fgerrors.KindCapabilityError, fgerrors.KindOf(err))
}

func TestIngestAll_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var refs []string
	for _, name := range []string{"a.txt", "b.txt", "missing.txt", "c.txt"} {
		path := filepath.Join(dir, name)
		if name != "missing.txt" {
			require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
		}
		refs = append(refs, path)
	}

	results := NewProcessor().IngestAll(context.Background(), refs, 2)

	require.Len(t, results, 4)
	for i, res := range results {
		assert.Equal(t, filepath.Base(refs[i]), res.Filename)
	}
	assert.True(t, results[0].Success)
	assert.False(t, results[2].Success)
	assert.Equal(t, "c.txt", results[3].Content)
}

func TestSupportedFormats(t *testing.T) {
	p := NewProcessor()
	assert.Equal(t, []string{"docx", "htm", "html", "md", "pdf", "txt"}, p.SupportedFormats())
	assert.True(t, p.IsSupported("/x/Report.PDF"))
	assert.False(t, p.IsSupported("archive.tar"))

	restricted := NewProcessor(WithFormats([]string{"pdf", ".DOCX"}))
	assert.Equal(t, []string{"docx", "pdf"}, restricted.SupportedFormats())

	withText := NewProcessor(WithFormats([]string{"txt"}))
	assert.Equal(t, []string{"htm", "html", "md", "txt"}, withText.SupportedFormats())
}

func TestWithExtractor(t *testing.T) {
	p := NewProcessor(WithExtractor("csv", ExtractorFunc(func(context.Context, string) (string, error) {
		return "custom", nil
	})))
	res := p.Ingest(context.Background(), writeFile(t, "data.csv", []byte("a,b")))
	require.True(t, res.Success)
	assert.Equal(t, "custom", res.Content)
}
