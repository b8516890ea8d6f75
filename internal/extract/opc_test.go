package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
)

func buildOPC(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create part %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write part %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

const slideXMLTemplate = `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody>
    <a:p><a:r><a:t>TITLE</a:t></a:r></a:p>
    <a:p><a:r><a:t>BODY</a:t></a:r></a:p>
  </p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`

func slideXML(title, body string) string {
	s := strings.Replace(slideXMLTemplate, "TITLE", title, 1)
	return strings.Replace(s, "BODY", body, 1)
}

func TestSlidesExtractor(t *testing.T) {
	// slide10 before slide2 in the archive to exercise numeric ordering
	data := buildOPC(t, map[string]string{
		"ppt/slides/slide10.xml": slideXML("Rollout", "Phase two regions"),
		"ppt/slides/slide1.xml":  slideXML("Offline Sync", "Queue edits locally"),
		"ppt/slides/slide2.xml":  slideXML("Review Flow", "PM signs off"),
		"ppt/presentation.xml":   "<p:presentation/>",
	})

	got, err := NewSlidesExtractor().Extract(context.Background(), data, "deck.pptx")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Metadata["slides"] != "3" {
		t.Errorf("slides metadata = %q, want %q", got.Metadata["slides"], "3")
	}

	first := strings.Index(got.Text, "## Slide 1")
	second := strings.Index(got.Text, "## Slide 2")
	last := strings.Index(got.Text, "## Slide 10")
	if first == -1 || second == -1 || last == -1 {
		t.Fatalf("missing slide heading in:\n%s", got.Text)
	}
	if !(first < second && second < last) {
		t.Errorf("slides out of order in:\n%s", got.Text)
	}
	if !strings.Contains(got.Text, "Queue edits locally") {
		t.Errorf("missing slide body in:\n%s", got.Text)
	}
}

func TestSlidesExtractorRejects(t *testing.T) {
	tests := []struct {
		name  string
		parts map[string]string
	}{
		{"no slides", map[string]string{"ppt/presentation.xml": "<p:presentation/>"}},
		{"empty slides", map[string]string{"ppt/slides/slide1.xml": slideXML("", "")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildOPC(t, tt.parts)
			if _, err := NewSlidesExtractor().Extract(context.Background(), data, "deck.pptx"); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	t.Run("not a zip", func(t *testing.T) {
		_, err := NewSlidesExtractor().Extract(context.Background(), []byte("plain text"), "deck.pptx")
		if err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestWordExtractor(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Project Kickoff Notes</w:t></w:r></w:p>
    <w:p><w:r><w:t>Users need </w:t></w:r><w:r><w:t>offline editing.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Before</w:t></w:r><w:br/><w:r><w:t>After</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildOPC(t, map[string]string{"word/document.xml": doc})

	got, err := NewWordExtractor().Extract(context.Background(), data, "notes.docx")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	// runs within one paragraph join without a separator
	if !strings.Contains(got.Text, "Users need offline editing.") {
		t.Errorf("split runs not joined in:\n%q", got.Text)
	}
	if !strings.Contains(got.Text, "Before\nAfter") {
		t.Errorf("line break not honored in:\n%q", got.Text)
	}
}

func TestWordExtractorRejects(t *testing.T) {
	t.Run("missing body part", func(t *testing.T) {
		data := buildOPC(t, map[string]string{"word/styles.xml": "<w:styles/>"})
		if _, err := NewWordExtractor().Extract(context.Background(), data, "notes.docx"); err == nil {
			t.Error("expected error, got nil")
		}
	})
	t.Run("empty body", func(t *testing.T) {
		data := buildOPC(t, map[string]string{
			"word/document.xml": `<w:document xmlns:w="ns"><w:body><w:p/></w:body></w:document>`,
		})
		if _, err := NewWordExtractor().Extract(context.Background(), data, "notes.docx"); err == nil {
			t.Error("expected error, got nil")
		}
	})
}
