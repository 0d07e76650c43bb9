// Package extract converts uploaded document files to plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor turns supported file formats into plain text ready for chunking.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// SupportedExtensions lists the formats Extract handles natively. Anything
// else is treated as plain text.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".xlsx", ".txt", ".md", ".rst", ".csv", ".json"}
}

// ExtractFile reads the file at path and extracts its text.
func (e *Extractor) ExtractFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.Extract(content, strings.ToLower(filepath.Ext(path)))
}

// Extract converts content to plain text based on the file extension
// (including the leading dot). Unknown extensions fall back to plain text.
func (e *Extractor) Extract(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDocx(content)
	case ".xlsx":
		return extractWorkbook(content)
	default:
		return extractPlain(content)
	}
}
