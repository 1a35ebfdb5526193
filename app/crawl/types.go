package crawl

import (
	"context"
	"errors"
	"fmt"

	"github.com/lysyi3m/rent-comb/app/database"
	"github.com/lysyi3m/rent-comb/app/listing"
)

var (
	// ErrExtraction marks a single card that could not be turned into a record.
	// The card is skipped and the page continues.
	ErrExtraction = errors.New("record extraction failed")
	// ErrNavigation marks a page that could not be loaded. The partition stops
	// and is retried on the next scheduled run.
	ErrNavigation = errors.New("page navigation failed")
)

// Partition is one independently crawled (portal, property type) unit.
type Partition struct {
	Portal       string
	PropertyType string
}

func (p Partition) String() string {
	if p.PropertyType == "" {
		return p.Portal
	}
	return fmt.Sprintf("%s/%s", p.Portal, p.PropertyType)
}

// Page is the result of fetching one result page of a partition.
type Page struct {
	URL      string
	Records  []listing.RawRecord
	Failures []error
	// Last is set when the source cannot have a further page.
	Last bool
}

type Adapter interface {
	FetchPage(ctx context.Context, partition Partition, page int) (Page, error)
}

// LinkIndex looks up listings already in the catalog by canonical link.
type LinkIndex interface {
	GetListingByLink(ctx context.Context, link string) (*database.Listing, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns a fetched document into records. Card level problems are
// reported in Page.Failures; an error means the document itself is unusable.
type Extractor interface {
	Extract(data []byte, pageURL string) (Page, error)
}

// Configuration types

type Config struct {
	Name          string         // Derived from filename (without .yml extension)
	URL           string         `yaml:"url"`
	PropertyTypes []string       `yaml:"property_types"`
	Settings      ConfigSettings `yaml:"settings"`
	Selectors     Selectors      `yaml:"selectors"`
}

type ConfigSettings struct {
	Enabled            bool   `yaml:"enabled"`
	RefreshInterval    int    `yaml:"refresh_interval"` // seconds
	Timeout            int    `yaml:"timeout"`          // seconds
	Renderer           string `yaml:"renderer"`         // http or browser
	Format             string `yaml:"format"`           // html or feed
	FirstPage          int    `yaml:"first_page"`
	MaxPages           int    `yaml:"max_pages"`
	UnchangedThreshold int    `yaml:"unchanged_threshold"`
	WaitSelector       string `yaml:"wait_selector"`
	WaitSeconds        int    `yaml:"wait_seconds"`
	LocationSuffix     string `yaml:"location_suffix"`
	FetchDetails       bool   `yaml:"fetch_details"`
}

type Selectors struct {
	Card        string `yaml:"card"`
	Link        string `yaml:"link"`
	Title       string `yaml:"title"`
	Price       string `yaml:"price"`
	Location    string `yaml:"location"`
	Area        string `yaml:"area"`
	Bedrooms    string `yaml:"bedrooms"`
	Bathrooms   string `yaml:"bathrooms"`
	Image       string `yaml:"image"`
	ExternalID  string `yaml:"external_id"`
	Description string `yaml:"description"`
}

const (
	RendererHTTP    = "http"
	RendererBrowser = "browser"

	FormatHTML = "html"
	FormatFeed = "feed"
)

// Partitions expands a portal into one partition per configured property type.
func (c *Config) Partitions() []Partition {
	if len(c.PropertyTypes) == 0 {
		return []Partition{{Portal: c.Name}}
	}
	partitions := make([]Partition, 0, len(c.PropertyTypes))
	for _, pt := range c.PropertyTypes {
		partitions = append(partitions, Partition{Portal: c.Name, PropertyType: pt})
	}
	return partitions
}
