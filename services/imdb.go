package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"

	xhtml "golang.org/x/net/html"
)

const defaultTop250URL = "https://www.imdb.com/chart/top"

var imdbIDPattern = regexp.MustCompile(`tt\d+`)

// IMDBService scrapes the IMDB Top 250 chart
type IMDBService struct {
	URL    string
	client *http.Client
}

// Top250 holds chart membership by IMDB id and by title
type Top250 struct {
	ids    map[string]struct{}
	titles map[string]struct{}
}

// Len returns the number of charted movies
func (t Top250) Len() int {
	if len(t.ids) > len(t.titles) {
		return len(t.ids)
	}
	return len(t.titles)
}

// Contains reports whether a movie is on the chart.
// The IMDB id is preferred; the title is a fallback for movies without one.
func (t Top250) Contains(imdbID, title string) bool {
	if imdbID != "" {
		if _, ok := t.ids[imdbID]; ok {
			return true
		}
	}
	_, ok := t.titles[normalizeTitle(title)]
	return ok
}

// NewTop250 builds a chart set, mainly for tests
func NewTop250(entries map[string]string) Top250 {
	top := Top250{ids: map[string]struct{}{}, titles: map[string]struct{}{}}
	for id, title := range entries {
		top.add(id, title)
	}
	return top
}

func (t *Top250) add(imdbID, title string) {
	if imdbID != "" {
		t.ids[imdbID] = struct{}{}
	}
	if title != "" {
		t.titles[normalizeTitle(title)] = struct{}{}
	}
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(html.UnescapeString(title)))
}

type imdbChart struct {
	ItemListElement []struct {
		Item struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"item"`
	} `json:"itemListElement"`
}

// NewIMDBService creates a new IMDB scraper
func NewIMDBService(chartURL string) *IMDBService {
	if chartURL == "" {
		chartURL = defaultTop250URL
	}
	return &IMDBService{URL: chartURL, client: newHTTPClient()}
}

// Top250 fetches and parses the chart page
func (s *IMDBService) Top250(ctx context.Context) (Top250, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Top250{}, fmt.Errorf("failed to create imdb request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept-Language", "en-US")

	resp, err := do(s.client, "imdb", "top 250", req)
	if err != nil {
		return Top250{}, err
	}
	defer closeBody("imdb", resp.Body)

	doc, err := xhtml.Parse(resp.Body)
	if err != nil {
		return Top250{}, fmt.Errorf("failed to parse imdb chart: %w", err)
	}

	script := findLDJSON(doc)
	if script == "" {
		return Top250{}, fmt.Errorf("imdb chart has no ld+json block")
	}

	var chart imdbChart
	if err := json.Unmarshal([]byte(script), &chart); err != nil {
		return Top250{}, fmt.Errorf("failed to decode imdb chart: %w", err)
	}

	top := NewTop250(nil)
	for _, el := range chart.ItemListElement {
		top.add(imdbIDPattern.FindString(el.Item.URL), el.Item.Name)
	}
	return top, nil
}

// findLDJSON returns the text of the first application/ld+json script
func findLDJSON(n *xhtml.Node) string {
	if n.Type == xhtml.ElementNode && n.Data == "script" {
		for _, attr := range n.Attr {
			if attr.Key == "type" && attr.Val == "application/ld+json" {
				var sb strings.Builder
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == xhtml.TextNode {
						sb.WriteString(c.Data)
					}
				}
				return sb.String()
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s := findLDJSON(c); s != "" {
			return s
		}
	}
	return ""
}
