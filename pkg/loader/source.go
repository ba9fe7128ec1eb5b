// Package loader reads the regulatory source text that backs the passage index.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-act-advisor-be/internal/pkg/logger"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
)

// PDFParser is the subset of the eino parser used here.
type PDFParser interface {
	Parse(ctx context.Context, reader io.Reader, opts ...einoParser.Option) ([]*schema.Document, error)
}

type SourceLoader struct {
	pdf    PDFParser
	logger logger.ILogger
}

// NewSourceLoader builds a loader with an eino PDF parser splitting by page.
func NewSourceLoader(ctx context.Context, log logger.ILogger) (*SourceLoader, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: true})
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF parser: %w", err)
	}
	return &SourceLoader{pdf: p, logger: log}, nil
}

func NewSourceLoaderWithParser(p PDFParser, log logger.ILogger) *SourceLoader {
	return &SourceLoader{pdf: p, logger: log}
}

// Load returns the full source text. PDF pages are prefixed with "[Page N]"
// so retrieved passages keep a page citation.
func (l *SourceLoader) Load(ctx context.Context, path string) (string, error) {
	start := time.Now()

	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = l.loadPDF(ctx, path)
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	}
	if err != nil {
		return "", fmt.Errorf("load source %s: %w", path, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("load source %s: no text extracted", path)
	}

	l.logger.Info("LOADER", "Source text loaded", map[string]interface{}{
		"path":        path,
		"chars":       len(text),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return text, nil
}

func (l *SourceLoader) loadPDF(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	docs, err := l.pdf.Parse(ctx, file,
		einoParser.WithURI(path),
		einoParser.WithExtraMeta(map[string]any{"source_file_path": path}),
	)
	if err != nil {
		return "", fmt.Errorf("pdf parser failed: %w", err)
	}

	var b strings.Builder
	for i, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d] %s", i+1, content)
	}
	return b.String(), nil
}
