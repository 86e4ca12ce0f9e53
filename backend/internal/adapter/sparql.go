package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"kg-extractor/backend/internal/enrich"
	kgerrors "kg-extractor/backend/pkg/errors"
	"kg-extractor/backend/pkg/logger"
)

const sparqlResultsJSON = "application/sparql-results+json"

// SPARQLClient runs SELECT queries over the SPARQL 1.1 protocol. One request per
// call, no pooling beyond what net/http does.
type SPARQLClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSPARQLClient creates a client for an endpoint such as https://dbpedia.org/sparql
func NewSPARQLClient(endpoint string, timeout time.Duration) *SPARQLClient {
	return &SPARQLClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Get(),
	}
}

// sparqlResponse is the W3C SPARQL 1.1 Query Results JSON format
type sparqlResponse struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

type sparqlValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Select runs query and flattens each binding row to variable -> value
func (c *SPARQLClient) Select(ctx context.Context, query string) ([]enrich.Binding, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("format", sparqlResultsJSON)

	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, kgerrors.NewSPARQLQueryFailed(c.endpoint, 0, err)
	}
	req.Header.Set("Accept", sparqlResultsJSON)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, kgerrors.NewSPARQLQueryFailed(c.endpoint, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, kgerrors.NewSPARQLQueryFailed(c.endpoint, resp.StatusCode, fmt.Errorf("%s", body))
	}

	var parsed sparqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, kgerrors.NewSPARQLQueryFailed(c.endpoint, resp.StatusCode, fmt.Errorf("decode results: %w", err))
	}

	rows := make([]enrich.Binding, 0, len(parsed.Results.Bindings))
	for _, b := range parsed.Results.Bindings {
		row := make(enrich.Binding, len(b))
		for name, v := range b {
			row[name] = v.Value
		}
		rows = append(rows, row)
	}

	c.logger.Debug("SPARQL query answered",
		zap.Int("rows", len(rows)),
		zap.Duration("latency", time.Since(start)),
	)
	return rows, nil
}
