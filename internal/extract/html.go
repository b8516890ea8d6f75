package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"github.com/junhopark/prdforge/internal/domain"
)

// HTMLExtractor extracts article content from saved web pages. Readability
// strips navigation and boilerplate; the remaining content is converted to
// markdown so headings and lists survive.
type HTMLExtractor struct {
	converter *md.Converter
}

// NewHTMLExtractor creates an HTML extractor.
func NewHTMLExtractor() *HTMLExtractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &HTMLExtractor{converter: converter}
}

func (e *HTMLExtractor) Kind() domain.DocumentKind {
	return domain.DocumentKindHTML
}

func (e *HTMLExtractor) Extract(_ context.Context, data []byte, filename string) (*ParsedContent, error) {
	// Saved pages have no live URL; readability only needs one to resolve
	// relative links.
	pageURL := &url.URL{Scheme: "file", Path: "/" + filename}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		// Pages readability cannot segment are converted whole
		markdown, convErr := e.converter.ConvertString(string(data))
		if convErr != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		return e.result("", markdown)
	}

	markdown, err := e.converter.ConvertString(article.Content)
	if err != nil {
		// Fall back to the plain-text rendition readability already built
		markdown = article.TextContent
	}
	return e.result(article.Title, markdown)
}

func (e *HTMLExtractor) result(title, markdown string) (*ParsedContent, error) {
	text := normalizeText(markdown)
	if title != "" {
		text = normalizeText("# " + title + "\n\n" + text)
	}
	if text == "" {
		return nil, fmt.Errorf("html document has no readable content")
	}
	meta := map[string]string{}
	if title != "" {
		meta["title"] = title
	}
	return &ParsedContent{Text: text, Metadata: meta}, nil
}
