package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	kgerrors "kg-extractor/backend/pkg/errors"
	"kg-extractor/backend/pkg/logger"
)

const userAgent = "kg-extractor/1.0 (knowledge graph extraction)"

// maxDisambiguationOptions bounds the options reported on an ambiguous lookup
const maxDisambiguationOptions = 20

// WikipediaLookup resolves a candidate name to its canonical article URL by fetching
// the article page directly, without search suggestions.
type WikipediaLookup struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWikipediaLookup creates a lookup against a MediaWiki site such as
// https://en.wikipedia.org
func NewWikipediaLookup(baseURL string, timeout time.Duration) *WikipediaLookup {
	return &WikipediaLookup{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Get(),
	}
}

// Lookup returns the canonical page URL for name. Redirect pages resolve to their
// target. Missing pages yield ErrLookupNotFound, disambiguation pages
// ErrLookupAmbiguous.
func (w *WikipediaLookup) Lookup(ctx context.Context, name string) (string, error) {
	title := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if title == "" {
		return "", kgerrors.NewLookupNotFound(name)
	}
	pageURL := w.baseURL + "/wiki/" + url.PathEscape(title)

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", kgerrors.NewLookupFailed(name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", kgerrors.NewLookupFailed(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", kgerrors.NewLookupNotFound(name)
	}
	if resp.StatusCode != http.StatusOK {
		return "", kgerrors.NewLookupFailed(name, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", kgerrors.NewLookupFailed(name, err)
	}

	if isDisambiguation(doc) {
		return "", kgerrors.NewLookupAmbiguous(name, disambiguationOptions(doc))
	}

	canonical, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href")
	if !ok || canonical == "" {
		// Fall back to the URL that was actually served
		canonical = resp.Request.URL.String()
	}

	w.logger.Debug("Wikipedia page found",
		zap.String("name", name),
		zap.String("canonical", canonical),
	)
	return canonical, nil
}

// isDisambiguation detects MediaWiki disambiguation pages
func isDisambiguation(doc *goquery.Document) bool {
	if doc.Find("#disambigbox, .disambigbox, #setindexbox").Length() > 0 {
		return true
	}
	if doc.Find(`meta[property="mw:PageProp/disambiguation"]`).Length() > 0 {
		return true
	}
	return doc.Find(`#catlinks a[title="Category:All disambiguation pages"], #catlinks a[title="Category:Disambiguation pages"]`).Length() > 0
}

// disambiguationOptions lists the article titles linked from list items
func disambiguationOptions(doc *goquery.Document) []string {
	var options []string
	seen := make(map[string]bool)
	doc.Find("#mw-content-text li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		link := li.Find(`a[href^="/wiki/"]`).First()
		title, ok := link.Attr("title")
		if !ok || title == "" || strings.Contains(title, ":") || seen[title] {
			return true
		}
		seen[title] = true
		options = append(options, title)
		return len(options) < maxDisambiguationOptions
	})
	return options
}
