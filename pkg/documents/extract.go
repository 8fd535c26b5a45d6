package documents

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var errNotText = errors.New("could not decode file with any supported encoding")

// textDecoders are tried in order after UTF-8. Latin-1 accepts any byte
// sequence, so it is the effective floor.
var textDecoders = []encoding.Encoding{
	unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM),
	charmap.ISO8859_1,
	charmap.Windows1252,
}

// extractText reads a text file, falling back through legacy encodings.
func extractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	return decodeText(data)
}

func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff"), nil
	}
	for _, enc := range textDecoders {
		if out, err := enc.NewDecoder().Bytes(data); err == nil {
			return string(out), nil
		}
	}
	return "", errNotText
}

// extractPlainUTF accepts only UTF-8 (or BOM-marked UTF-16) text without
// NUL bytes; it is the probe for files of unknown type.
func extractPlainUTF(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) && !bytes.ContainsRune(data, 0) {
		return string(data), nil
	}
	if out, err := textDecoders[0].NewDecoder().Bytes(data); err == nil && utf8.Valid(out) {
		return string(out), nil
	}
	return "", errNotText
}

// extractHTML returns the visible text of an HTML file, one phrase per line.
func extractHTML(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read html file: %w", err)
	}
	defer f.Close()
	return HTMLText(f)
}

// HTMLText returns the visible text of an HTML document, one phrase per
// line. Script and style contents are dropped.
func HTMLText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var raw strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				raw.WriteByte('\n')
			}
		}
		if n.Type == html.TextNode {
			raw.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapseLines(raw.String()), nil
}

// collapseLines trims every line, splits on runs of two spaces, and drops
// empty chunks.
func collapseLines(s string) string {
	var chunks []string
	for _, line := range strings.Split(s, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if p := strings.TrimSpace(phrase); p != "" {
				chunks = append(chunks, p)
			}
		}
	}
	return strings.Join(chunks, "\n")
}

// extractPDF returns the text of every non-empty page under a page header.
func extractPDF(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("read pdf file: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, fmt.Sprintf("--- Page %d ---\n[Error extracting text]", i))
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", i, text))
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractDOCX reads word/document.xml from the archive. Paragraphs become
// lines; tables are rendered row by row with " | " between cells.
func extractDOCX(_ context.Context, path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("read docx file: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return docxText(rc)
	}
	return "", errors.New("read docx file: word/document.xml missing")
}

func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines    []string
		para     strings.Builder
		cell     strings.Builder
		row      []string
		table    []string
		tblDepth int
		inText   bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br":
				para.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := para.String()
				para.Reset()
				if tblDepth > 0 {
					if cell.Len() > 0 && text != "" {
						cell.WriteByte(' ')
					}
					cell.WriteString(text)
				} else if strings.TrimSpace(text) != "" {
					lines = append(lines, text)
				}
			case "tc":
				row = append(row, strings.TrimSpace(cell.String()))
				cell.Reset()
			case "tr":
				table = append(table, strings.Join(row, " | "))
				row = nil
			case "tbl":
				tblDepth--
				if tblDepth == 0 && len(table) > 0 {
					lines = append(lines, "\n--- Table ---")
					lines = append(lines, table...)
					lines = append(lines, "--- End Table ---\n")
					table = nil
				}
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
