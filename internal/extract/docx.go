package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// docx files are OOXML zip packages; the body lives in word/document.xml.
const docxBodyPath = "word/document.xml"

// runText matches <w:t> text runs with or without attributes
// (e.g. <w:t xml:space="preserve">). Matching runs instead of paragraphs
// keeps text from attribute-laden real-world documents.
var runText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// paragraphEnd marks paragraph boundaries so extracted text keeps some
// structure for sentence-based chunking.
var paragraphEnd = regexp.MustCompile(`</w:p>`)

func extractDocx(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract docx: not a zip: %w", err)
	}
	var body []byte
	for _, f := range zr.File {
		if f.Name != docxBodyPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("extract docx: open %s: %w", f.Name, err)
		}
		body, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("extract docx: read %s: %w", f.Name, err)
		}
		break
	}
	if body == nil {
		return "", fmt.Errorf("extract docx: %s not found", docxBodyPath)
	}

	xml := paragraphEnd.ReplaceAllString(string(body), "\n")
	var b strings.Builder
	for _, m := range runText.FindAllStringSubmatch(xml, -1) {
		b.WriteString(m[1])
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String()), nil
}
