// Package extract turns raw uploaded documents into ordered text chunks.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/creditlens/creditlens/internal/domain"
	"github.com/ledongthuc/pdf"
)

// Kind classifies a document by its file extension.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindAudio   Kind = "audio"
	KindUnknown Kind = "unknown"
)

// KindOf returns the document kind for a file path.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".txt", ".md":
		return KindText
	case ".png", ".jpg", ".jpeg":
		return KindImage
	case ".mp3", ".wav", ".m4a":
		return KindAudio
	default:
		return KindUnknown
	}
}

// Result is the outcome of extracting one document. Unsupported kinds produce
// an explicit Unsupported result rather than a silent skip, so callers can
// report partial ingestion.
type Result struct {
	Kind        Kind
	Chunks      []domain.Chunk
	Unsupported bool
}

// Extractor extracts text chunks from local document files.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads a document and returns its ordered text chunks. PDF documents
// yield one chunk per page. Image OCR and audio transcription are not wired to
// a backend and report Unsupported. Extraction never returns a nil chunk
// sequence on success, only possibly an empty one.
func (e *Extractor) Extract(path string) (*Result, error) {
	kind := KindOf(path)

	switch kind {
	case KindPDF:
		chunks, err := extractPDF(path)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExtraction,
				fmt.Sprintf("failed to extract %s", filepath.Base(path)), err)
		}
		return &Result{Kind: kind, Chunks: chunks}, nil

	case KindText:
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExtraction,
				fmt.Sprintf("failed to read %s", filepath.Base(path)), err)
		}
		text := strings.TrimSpace(string(content))
		if text == "" {
			return &Result{Kind: kind, Chunks: []domain.Chunk{}}, nil
		}
		return &Result{Kind: kind, Chunks: []domain.Chunk{domain.NewChunk(text)}}, nil

	case KindImage, KindAudio, KindUnknown:
		return &Result{Kind: kind, Unsupported: true}, nil
	}

	return &Result{Kind: KindUnknown, Unsupported: true}, nil
}

// LoadDir extracts every supported document in a directory, in file-name
// order, and returns the combined chunk sequence. Unsupported entries are
// skipped; a missing directory is an error because an empty corpus cannot
// back an index build.
func (e *Extractor) LoadDir(dir string) ([]domain.Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var chunks []domain.Chunk
	for _, name := range names {
		result, err := e.Extract(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if result.Unsupported {
			continue
		}
		chunks = append(chunks, result.Chunks...)
	}

	return chunks, nil
}

func extractPDF(path string) ([]domain.Chunk, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	chunks := make([]domain.Chunk, 0, reader.NumPage())
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		chunks = append(chunks, domain.NewChunk(text))
	}

	return chunks, nil
}
