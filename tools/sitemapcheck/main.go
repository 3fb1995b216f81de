package main

import (
	"encoding/xml"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/romangod6/sitemap-aggregator/internal/models"
	"github.com/romangod6/sitemap-aggregator/internal/sitemap"
	"github.com/spf13/afero"
)

func main() {
	indexPath := "globalsitemap.xml"
	if len(os.Args) > 1 {
		indexPath = os.Args[1]
	}

	index, err := sitemap.Read(afero.NewOsFs(), indexPath)
	if err != nil {
		log.Fatalf("Error reading sitemap index: %v", err)
	}

	locations := index.Locations()
	fmt.Printf("Total sitemaps found: %d\n\n", len(locations))

	c := colly.NewCollector(
		colly.UserAgent("Sitemap Aggregator Check v1.0"),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(30 * time.Second)

	failed := 0
	for i, loc := range locations {
		s, err := fetchSitemap(c, loc)
		if err != nil {
			failed++
			fmt.Printf("%d/%d %s: error: %v\n", i+1, len(locations), loc, err)
			continue
		}
		fmt.Printf("%d/%d %s: %d URLs\n", i+1, len(locations), loc, len(s.URLs))
	}

	if failed > 0 {
		log.Fatalf("%d of %d sitemaps could not be read", failed, len(locations))
	}
}

// fetchSitemap downloads a project sitemap and decodes its urlset.
func fetchSitemap(collector *colly.Collector, url string) (*models.Sitemap, error) {
	c := collector.Clone()

	var body []byte
	status := 0
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	if err := c.Visit(url); err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("status %d", status)
	}

	var s models.Sitemap
	if err := xml.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("failed to decode sitemap: %w", err)
	}

	return &s, nil
}
