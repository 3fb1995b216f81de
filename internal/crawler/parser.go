// internal/crawler/parser.go
package crawler

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/romangod6/sitemap-aggregator/internal/models"
	"golang.org/x/net/html"
)

// Format selects how the landing page is parsed.
type Format string

const (
	FormatAuto Format = "auto"
	FormatRST  Format = "rst"
	FormatHTML Format = "html"
)

// SitemapSuffix is appended to a project's origin to form its candidate URL.
const SitemapSuffix = "/sitemap.xml"

var ErrMalformedLink = errors.New("malformed project link")

var (
	cardDirective = regexp.MustCompile(`^(\s*)\.\. grid-item-card::(.*)$`)
	linkOption    = regexp.MustCompile(`^\s*:link:\s*(\S+)\s*$`)
	absoluteLink  = regexp.MustCompile(`^https?://`)
	originPrefix  = regexp.MustCompile(`^(https?://[^/]+)`)
)

// card is a title/link pair read from one card of the landing page.
type card struct {
	title string
	link  string
}

// ParseLandingPage extracts the documentation projects from the landing page
// content. Each card yields at most one project; cards without an absolute
// link are skipped.
func ParseLandingPage(content string, format Format) ([]models.Project, error) {
	var cards []card
	var err error

	switch resolveFormat(content, format) {
	case FormatRST:
		cards = parseRSTCards(content)
	case FormatHTML:
		cards, err = parseHTMLCards(content)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown landing page format %q", format)
	}

	projects := make([]models.Project, 0, len(cards))
	for _, c := range cards {
		sitemapURL, err := SitemapURLFor(c.link)
		if err != nil {
			return nil, err
		}
		projects = append(projects, models.Project{
			Name:       c.title,
			Link:       c.link,
			SitemapURL: sitemapURL,
		})
	}

	return projects, nil
}

// SitemapURLFor keeps scheme and host of link and appends SitemapSuffix.
func SitemapURLFor(link string) (string, error) {
	m := originPrefix.FindStringSubmatch(link)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedLink, link)
	}
	return m[1] + SitemapSuffix, nil
}

func resolveFormat(content string, format Format) Format {
	if format != FormatAuto && format != "" {
		return format
	}
	if strings.HasPrefix(strings.TrimSpace(content), "<") {
		return FormatHTML
	}
	return FormatRST
}

// parseRSTCards walks the reStructuredText source once. A grid-item-card
// directive opens a card; its :link: option must sit in the option block
// (indented, before the first blank line).
func parseRSTCards(content string) []card {
	var cards []card
	var current *card
	indent := 0
	inOptions := false

	flush := func() {
		if current != nil && absoluteLink.MatchString(current.link) {
			cards = append(cards, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if m := cardDirective.FindStringSubmatch(line); m != nil {
			flush()
			current = &card{title: strings.TrimSpace(m[2])}
			indent = len(m[1])
			inOptions = true
			continue
		}

		if current == nil {
			continue
		}

		if strings.TrimSpace(line) == "" {
			inOptions = false
			continue
		}

		lineIndent := len(line) - len(strings.TrimLeft(line, " \t"))
		// anything at or left of the directive closes the card
		if lineIndent <= indent {
			flush()
			continue
		}

		if inOptions && current.link == "" {
			if m := linkOption.FindStringSubmatch(line); m != nil {
				current.link = m[1]
			}
		}
	}
	flush()

	return cards
}

// parseHTMLCards reads sphinx-design cards from the rendered landing page.
func parseHTMLCards(content string) ([]card, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	var cards []card
	doc.Find(".sd-card").Each(func(_ int, s *goquery.Selection) {
		title := strings.Join(strings.Fields(s.Find(".sd-card-title").First().Text()), " ")
		href, exists := s.Find("a.sd-stretched-link").First().Attr("href")
		if !exists || !absoluteLink.MatchString(href) {
			return
		}
		cards = append(cards, card{title: title, link: strings.TrimSpace(href)})
	})

	return cards, nil
}
