package extract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/junhopark/prdforge/internal/domain"
	"github.com/xuri/excelize/v2"
)

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry(NewTextExtractor(), NewCSVExtractor())

	if !reg.Supports(domain.DocumentKindText) {
		t.Error("expected text kind to be supported")
	}
	if reg.Supports(domain.DocumentKindImage) {
		t.Error("did not expect image kind to be supported")
	}

	_, err := reg.Extract(context.Background(), domain.DocumentKindImage, []byte("x"), "photo.png")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}

	got, err := reg.Extract(context.Background(), domain.DocumentKindText, []byte("hello requirements"), "notes.txt")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != "hello requirements" {
		t.Errorf("unexpected text: %q", got.Text)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"crlf", "a\r\nb\r\n", "a\nb"},
		{"trailing spaces", "a   \nb\t\n", "a\nb"},
		{"blank run", "a\n\n\n\n\nb", "a\n\nb"},
		{"surrounding whitespace", "\n\n  a  \n\n", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeText(tt.input); got != tt.want {
				t.Errorf("normalizeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextExtractor(t *testing.T) {
	e := NewTextExtractor()

	if _, err := e.Extract(context.Background(), []byte("   \n  "), "empty.txt"); err == nil {
		t.Error("expected error for empty document")
	}
	if _, err := e.Extract(context.Background(), []byte{0xff, 0xfe, 0x00}, "binary.txt"); err == nil {
		t.Error("expected error for non-UTF-8 document")
	}

	got, err := e.Extract(context.Background(), []byte("# Kickoff notes\r\n\r\nusers need exports\r\n"), "notes.md")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != "# Kickoff notes\n\nusers need exports" {
		t.Errorf("unexpected text: %q", got.Text)
	}
}

func TestCSVExtractor(t *testing.T) {
	input := "feature,priority,notes\nexport,high,\"needs markdown, html\"\nsearch,low,later\n"

	e := NewCSVExtractor()
	got, err := e.Extract(context.Background(), []byte(input), "backlog.csv")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	lines := strings.Split(got.Text, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 rendered lines, got %d: %q", len(lines), got.Text)
	}
	if lines[0] != "| feature | priority | notes |" {
		t.Errorf("unexpected header row: %q", lines[0])
	}
	if !strings.Contains(lines[2], "needs markdown, html") {
		t.Errorf("quoted cell lost: %q", lines[2])
	}
	if got.Metadata["rows"] != "3" || got.Metadata["columns"] != "3" {
		t.Errorf("unexpected metadata: %v", got.Metadata)
	}

	if _, err := e.Extract(context.Background(), []byte(""), "empty.csv"); err == nil {
		t.Error("expected error for empty csv")
	}
}

func TestExcelExtractor(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", "requirement")
	_ = f.SetCellValue(sheet, "B1", "owner")
	_ = f.SetCellValue(sheet, "A2", "SSO login")
	_ = f.SetCellValue(sheet, "B2", "platform team")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("build workbook: %v", err)
	}

	e := NewExcelExtractor()
	got, err := e.Extract(context.Background(), buf.Bytes(), "backlog.xlsx")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(got.Text, "## "+sheet) {
		t.Errorf("sheet heading missing: %q", got.Text)
	}
	if !strings.Contains(got.Text, "SSO login") {
		t.Errorf("cell content missing: %q", got.Text)
	}
	if got.Metadata["sheets"] != "1" {
		t.Errorf("unexpected metadata: %v", got.Metadata)
	}

	if _, err := e.Extract(context.Background(), []byte("not a workbook"), "broken.xlsx"); err == nil {
		t.Error("expected error for invalid workbook")
	}
}

func TestEmailExtractorPlain(t *testing.T) {
	raw := "From: pm@example.com\r\n" +
		"To: dev@example.com\r\n" +
		"Subject: export requirements\r\n" +
		"\r\n" +
		"We need markdown export by Q3.\r\n"

	e := NewEmailExtractor()
	got, err := e.Extract(context.Background(), []byte(raw), "thread.eml")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(got.Text, "Subject: export requirements") {
		t.Errorf("headers missing: %q", got.Text)
	}
	if !strings.Contains(got.Text, "We need markdown export by Q3.") {
		t.Errorf("body missing: %q", got.Text)
	}
	if got.Metadata["from"] != "pm@example.com" {
		t.Errorf("unexpected metadata: %v", got.Metadata)
	}
}

func TestEmailExtractorMultipart(t *testing.T) {
	raw := "From: pm@example.com\r\n" +
		"Subject: login flow\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Login must support SSO.\r\n" +
		"--b1\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>Login must support <b>SSO</b>.</p>\r\n" +
		"--b1--\r\n"

	e := NewEmailExtractor()
	got, err := e.Extract(context.Background(), []byte(raw), "thread.eml")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	// text/plain part wins over text/html
	if !strings.Contains(got.Text, "Login must support SSO.") {
		t.Errorf("plain part missing: %q", got.Text)
	}
	if strings.Contains(got.Text, "<p>") {
		t.Errorf("html leaked into output: %q", got.Text)
	}
}

func TestEmailExtractorHTMLOnly(t *testing.T) {
	raw := "From: pm@example.com\r\n" +
		"Subject: dashboard\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<h1>Dashboard</h1><p>Show weekly active users.</p>\r\n"

	e := NewEmailExtractor()
	got, err := e.Extract(context.Background(), []byte(raw), "thread.eml")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(got.Text, "# Dashboard") {
		t.Errorf("expected markdown heading, got %q", got.Text)
	}
	if !strings.Contains(got.Text, "Show weekly active users.") {
		t.Errorf("body missing: %q", got.Text)
	}
}

func TestChatExtractor(t *testing.T) {
	input := "[10:01] alice: we need offline mode\n" +
		"[10:01] alice: for the mobile app\n" +
		"[10:02] bob: agreed, and sync when back online\n" +
		"random system notice\n"

	e := NewChatExtractor()
	got, err := e.Extract(context.Background(), []byte(input), "standup.log")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(got.Text, "alice: we need offline mode for the mobile app") {
		t.Errorf("consecutive messages not merged: %q", got.Text)
	}
	if got.Metadata["participants"] != "alice, bob" {
		t.Errorf("unexpected participants: %v", got.Metadata)
	}
	if got.Metadata["messages"] != "2" {
		t.Errorf("unexpected message count: %v", got.Metadata)
	}
}

func TestChatExtractorPlainLog(t *testing.T) {
	// Logs without speaker structure still pass through as text
	e := NewChatExtractor()
	got, err := e.Extract(context.Background(), []byte("just some notes\nwithout speakers\n"), "notes.log")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Metadata["messages"] != "0" {
		t.Errorf("unexpected metadata: %v", got.Metadata)
	}
	if !strings.Contains(got.Text, "just some notes") {
		t.Errorf("raw text lost: %q", got.Text)
	}
}

func TestHTMLExtractor(t *testing.T) {
	page := `<html><head><title>Feature brief</title></head><body>
		<nav>home | about</nav>
		<article><h2>Goals</h2><p>Reduce churn by improving onboarding.</p>
		<p>Ship a guided setup wizard with progress tracking so new accounts reach first value quickly.</p></article>
		<footer>copyright</footer></body></html>`

	e := NewHTMLExtractor()
	got, err := e.Extract(context.Background(), []byte(page), "brief.html")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(got.Text, "Reduce churn by improving onboarding.") {
		t.Errorf("article content missing: %q", got.Text)
	}
}

type fakeDescriber struct {
	text string
	err  error
}

func (f *fakeDescriber) DescribeImage(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestImageExtractor(t *testing.T) {
	e := NewImageExtractor(&fakeDescriber{text: "Whiteboard: login flow -> dashboard"})

	got, err := e.Extract(context.Background(), pngBytes(t, 200, 100), "board.png")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != "Whiteboard: login flow -> dashboard" {
		t.Errorf("unexpected text: %q", got.Text)
	}
	if got.Metadata["width"] != "200" || got.Metadata["height"] != "100" || got.Metadata["format"] != "png" {
		t.Errorf("unexpected metadata: %v", got.Metadata)
	}
}

func TestImageExtractorRejects(t *testing.T) {
	e := NewImageExtractor(&fakeDescriber{text: "x"})

	if _, err := e.Extract(context.Background(), []byte("not an image"), "x.png"); err == nil {
		t.Error("expected error for undecodable image")
	}
	if _, err := e.Extract(context.Background(), pngBytes(t, 10, 10), "tiny.png"); err == nil {
		t.Error("expected error for image below minimum size")
	}

	failing := NewImageExtractor(&fakeDescriber{err: errors.New("vision down")})
	if _, err := failing.Extract(context.Background(), pngBytes(t, 200, 200), "board.png"); err == nil {
		t.Error("expected error when transcription fails")
	}
}
