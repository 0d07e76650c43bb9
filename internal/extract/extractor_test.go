package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func TestExtractPlain(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte("hello world"), ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractPlainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte{'h', 'i', 0xff, '!'}, ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "hi") || !strings.HasSuffix(got, "!") {
		t.Errorf("got %q", got)
	}
}

func TestExtractUnknownExtensionFallsBack(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte("log line"), ".log")
	if err != nil {
		t.Fatal(err)
	}
	if got != "log line" {
		t.Errorf("got %q", got)
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	e := NewExtractor()
	doc := buildDocx(t, `<w:document><w:body>`+
		`<w:p w:rsidR="00A"><w:r><w:t>First paragraph.</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t xml:space="preserve">Second </w:t></w:r><w:r><w:t>part.</w:t></w:r></w:p>`+
		`</w:body></w:document>`)
	got, err := e.Extract(doc, ".docx")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "First paragraph.") {
		t.Errorf("missing first paragraph: %q", got)
	}
	if !strings.Contains(got, "Second") || !strings.Contains(got, "part.") {
		t.Errorf("missing runs with attributes: %q", got)
	}
}

func TestExtractDocxNotAZip(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for invalid docx")
	}
}

func TestExtractDocxMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("other.xml")
	_, _ = w.Write([]byte("<x/>"))
	zw.Close()
	e := NewExtractor()
	if _, err := e.Extract(buf.Bytes(), ".docx"); err == nil {
		t.Error("expected error when word/document.xml is absent")
	}
}
