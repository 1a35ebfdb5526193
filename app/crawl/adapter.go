package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PortalAdapter is the config driven Adapter used for every portal: a
// Fetcher for transport and an Extractor for the document format.
type PortalAdapter struct {
	config      *Config
	fetcher     Fetcher
	extractor   Extractor
	description *DescriptionExtractor
	known       LinkIndex
}

func NewPortalAdapter(config *Config, fetcher Fetcher, extractor Extractor) *PortalAdapter {
	a := &PortalAdapter{
		config:    config,
		fetcher:   fetcher,
		extractor: extractor,
	}
	if config.Settings.FetchDetails {
		a.description = NewDescriptionExtractor()
	}
	return a
}

// NewAdapter builds the fetcher and extractor a portal config asks for. Each
// call returns an independent instance. known may be nil.
func NewAdapter(config *Config, client *http.Client, userAgent, browserPath string, known LinkIndex) (*PortalAdapter, error) {
	timeout := time.Duration(config.Settings.Timeout) * time.Second

	var fetcher Fetcher
	switch config.Settings.Renderer {
	case RendererHTTP:
		fetcher = NewHTTPFetcher(client, userAgent, timeout)
	case RendererBrowser:
		wait := time.Duration(config.Settings.WaitSeconds) * time.Second
		fetcher = NewBrowserFetcher(userAgent, browserPath, timeout, config.Settings.WaitSelector, wait)
	default:
		return nil, fmt.Errorf("unknown renderer %q", config.Settings.Renderer)
	}

	var extractor Extractor
	switch config.Settings.Format {
	case FormatHTML:
		extractor = NewHTMLExtractor(config.Name, config.Selectors, config.Settings.LocationSuffix)
	case FormatFeed:
		extractor = NewFeedExtractor(config.Name, config.Settings.LocationSuffix)
	default:
		return nil, fmt.Errorf("unknown format %q", config.Settings.Format)
	}

	a := NewPortalAdapter(config, fetcher, extractor)
	a.known = known
	return a, nil
}

// PageURL expands the {type} and {page} placeholders of the portal URL.
// page counts from 1; the portal's first_page setting maps it to the
// source's own numbering.
func (a *PortalAdapter) PageURL(partition Partition, page int) string {
	sourcePage := a.config.Settings.FirstPage + page - 1
	return strings.NewReplacer(
		"{type}", url.PathEscape(partition.PropertyType),
		"{page}", strconv.Itoa(sourcePage),
	).Replace(a.config.URL)
}

func (a *PortalAdapter) FetchPage(ctx context.Context, partition Partition, page int) (Page, error) {
	pageURL := a.PageURL(partition, page)

	data, err := a.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %s: %v", ErrNavigation, pageURL, err)
	}

	result, err := a.extractor.Extract(data, pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %s: %v", ErrNavigation, pageURL, err)
	}

	result.URL = pageURL
	result.Last = !strings.Contains(a.config.URL, "{page}")

	if a.description != nil {
		a.enrich(ctx, &result)
	}

	return result, nil
}

// enrich fills empty descriptions from detail pages. Listings already in the
// catalog are skipped since ingestion only refreshes their price and last
// seen time. Failures leave the record as extracted.
func (a *PortalAdapter) enrich(ctx context.Context, page *Page) {
	for i := range page.Records {
		rec := &page.Records[i]
		if rec.Description != "" || ctx.Err() != nil {
			continue
		}
		if a.isKnown(ctx, rec.CanonicalLink) {
			continue
		}

		data, err := a.fetcher.Fetch(ctx, rec.CanonicalLink)
		if err != nil {
			slog.Debug("Failed to fetch detail page", "portal", a.config.Name, "url", rec.CanonicalLink, "error", err)
			continue
		}

		text, err := a.description.Run(data, rec.CanonicalLink)
		if err != nil {
			slog.Debug("Failed to extract description", "portal", a.config.Name, "url", rec.CanonicalLink, "error", err)
			continue
		}
		rec.Description = text
	}
}

func (a *PortalAdapter) isKnown(ctx context.Context, link string) bool {
	if a.known == nil {
		return false
	}
	existing, err := a.known.GetListingByLink(ctx, link)
	if err != nil {
		slog.Debug("Failed to look up listing", "portal", a.config.Name, "url", link, "error", err)
		return false
	}
	return existing != nil
}

func (a *PortalAdapter) Close() error {
	if c, ok := a.fetcher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
