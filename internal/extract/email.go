package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/junhopark/prdforge/internal/domain"
)

// EmailExtractor parses RFC 5322 messages (.eml). The headers people make
// decisions in (From, To, Subject, Date) are kept at the top of the text so
// the extractor can attribute requirements to their sender.
type EmailExtractor struct {
	converter *md.Converter
}

// NewEmailExtractor creates an email extractor.
func NewEmailExtractor() *EmailExtractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &EmailExtractor{converter: converter}
}

func (e *EmailExtractor) Kind() domain.DocumentKind {
	return domain.DocumentKindEmail
}

func (e *EmailExtractor) Extract(_ context.Context, data []byte, _ string) (*ParsedContent, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse email: %w", err)
	}

	body, err := e.readBody(msg)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, h := range []string{"From", "To", "Cc", "Date", "Subject"} {
		if v := msg.Header.Get(h); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", h, decodeHeader(v))
		}
	}
	b.WriteString("\n")
	b.WriteString(body)

	meta := map[string]string{
		"subject": decodeHeader(msg.Header.Get("Subject")),
		"from":    decodeHeader(msg.Header.Get("From")),
	}
	return &ParsedContent{Text: normalizeText(b.String()), Metadata: meta}, nil
}

// readBody resolves the message body, preferring text/plain over text/html
// for multipart messages. HTML bodies are converted to markdown.
func (e *EmailExtractor) readBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Untyped messages are treated as plain text
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return e.readMultipart(msg.Body, params["boundary"])
	}

	raw, err := decodeTransferEncoding(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return e.converter.ConvertString(string(raw))
	}
	return string(raw), nil
}

func (e *EmailExtractor) readMultipart(body io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", fmt.Errorf("multipart email without boundary")
	}

	var plain, html string
	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read email part: %w", err)
		}

		partType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(partType, "multipart/"):
			nested, err := e.readMultipart(part, params["boundary"])
			if err == nil && plain == "" {
				plain = nested
			}
		case partType == "text/plain":
			raw, err := decodeTransferEncoding(part, part.Header.Get("Content-Transfer-Encoding"))
			if err == nil && plain == "" {
				plain = string(raw)
			}
		case partType == "text/html":
			raw, err := decodeTransferEncoding(part, part.Header.Get("Content-Transfer-Encoding"))
			if err == nil && html == "" {
				html = string(raw)
			}
		}
	}

	if plain != "" {
		return plain, nil
	}
	if html != "" {
		return e.converter.ConvertString(html)
	}
	return "", fmt.Errorf("email has no readable text part")
}

func decodeTransferEncoding(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return io.ReadAll(base64.NewDecoder(base64.StdEncoding, r))
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(r))
	default:
		return io.ReadAll(r)
	}
}

var headerDecoder = mime.WordDecoder{}

func decodeHeader(v string) string {
	decoded, err := headerDecoder.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}
