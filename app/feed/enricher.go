package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/rss-catalog/app/database"
)

var metaPrefixes = []string{"og:", "twitter:"}

// Enricher fetches an article's page and stores its Open Graph and Twitter
// card meta tags in Article.Data, plus the readable content of the page.
type Enricher struct {
	articles   database.ArticleRepository
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewEnricher(articles database.ArticleRepository, httpClient *http.Client, userAgent string, timeout time.Duration) *Enricher {
	return &Enricher{
		articles:   articles,
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (e *Enricher) Run(ctx context.Context, articleID int64) error {
	article, err := e.articles.GetArticle(ctx, articleID)
	if err != nil {
		return err
	}
	if article == nil {
		slog.Debug("Article not found for enrichment", "article_id", articleID)
		return nil
	}

	page, err := e.fetchPage(ctx, article.URL)
	if err != nil {
		return err
	}

	meta, err := ExtractMeta(page)
	if err != nil {
		return err
	}

	data := database.Data{}
	for k, v := range article.Data {
		data[k] = v
	}
	for k, v := range meta {
		data[k] = v
	}

	content, err := ExtractContent(page)
	if err != nil {
		slog.Debug("Content not extracted", "article_id", article.ID, "url", article.URL, "error", err)
		content = article.Content
	}

	if err := e.articles.UpdateArticleEnrichment(ctx, article.ID, data, content); err != nil {
		return err
	}

	slog.Debug("Article enriched", "article_id", article.ID, "meta", len(meta), "content_length", len(content))
	return nil
}

func (e *Enricher) fetchPage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > DefaultMaxBodySize {
		return nil, fmt.Errorf("page exceeds %d bytes", DefaultMaxBodySize)
	}

	return data, nil
}

// ExtractMeta returns the og:* and twitter:* meta tags of an HTML page. The
// first occurrence of a repeated property wins.
func ExtractMeta(page []byte) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	meta := make(map[string]string)
	doc.Find("head meta").Each(func(i int, s *goquery.Selection) {
		property := strings.ToLower(strings.TrimSpace(s.AttrOr("property", s.AttrOr("name", ""))))
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if property == "" || content == "" {
			return
		}

		for _, prefix := range metaPrefixes {
			if strings.HasPrefix(property, prefix) {
				if _, seen := meta[property]; !seen {
					meta[property] = content
				}
				return
			}
		}
	})

	return meta, nil
}

// ExtractContent returns the readable main content of an HTML page
func ExtractContent(page []byte) (string, error) {
	if len(page) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(page), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	return article.Content, nil
}
