package api

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/rent-comb/app/cfg"
	"github.com/lysyi3m/rent-comb/app/database"
)

// Generator renders catalog listings as an RSS 2.0 channel.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(filter database.ListingFilter, listings []database.Listing) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	title := "Rent Comb listings"
	var scope []string
	if filter.Source != "" {
		scope = append(scope, filter.Source)
	}
	if filter.Sector != "" {
		scope = append(scope, filter.Sector)
	}
	if len(scope) > 0 {
		title += " (" + strings.Join(scope, ", ") + ")"
	}

	base := cfg.Get().PublicURL()
	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", base, 4)
	g.writeElement(&buf, "description", "Newest active rental listings", 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(base+"/feeds/listings")))

	lastBuildDate := time.Now().In(time.Local)
	if len(listings) > 0 {
		lastBuildDate = listings[0].CreatedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Rent-Comb/%s", cfg.Get().Version), 4)

	for _, l := range listings {
		g.writeItem(&buf, l)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, l database.Listing) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"true\">")
	xml.EscapeText(buf, []byte(l.CanonicalLink))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", l.Title, 6)
	g.writeElement(buf, "link", l.CanonicalLink, 6)
	g.writeElement(buf, "description", describe(l), 6)
	g.writeElement(buf, "pubDate", l.CreatedAt.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "category", l.Sector, 6)
	g.writeElement(buf, "category", l.Source, 6)

	if l.ImageURL != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"image/jpeg\" />\n",
			html.EscapeString(l.ImageURL)))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

// describe builds a one-line summary: price, location, area and rooms when known.
func describe(l database.Listing) string {
	var parts []string
	if l.Price != nil {
		parts = append(parts, "$"+strconv.FormatFloat(*l.Price, 'f', -1, 64))
	}
	if l.RawLocation != "" {
		parts = append(parts, l.RawLocation)
	}
	if l.Area != nil {
		parts = append(parts, strconv.FormatFloat(*l.Area, 'f', -1, 64)+" m²")
	}
	if l.Bedrooms != nil {
		parts = append(parts, fmt.Sprintf("%d hab", *l.Bedrooms))
	}
	if l.Bathrooms != nil {
		parts = append(parts, fmt.Sprintf("%d baños", *l.Bathrooms))
	}
	if len(parts) == 0 {
		return l.Description
	}
	return strings.Join(parts, " · ")
}
