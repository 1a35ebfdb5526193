package crawl

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-shiori/go-readability"
)

// DescriptionExtractor pulls the readable body text out of a listing detail
// page.
type DescriptionExtractor struct{}

func NewDescriptionExtractor() *DescriptionExtractor {
	return &DescriptionExtractor{}
}

func (e *DescriptionExtractor) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	u, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(data), u)
	if err != nil {
		return "", fmt.Errorf("failed to extract description: %w", err)
	}

	text := collapseSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no description extracted from HTML data")
	}

	slog.Debug("Description extracted", "url", pageURL, "length", len(text))

	return text, nil
}
