package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

type OutcomeKind int

const (
	OutcomeNetworkError OutcomeKind = iota
	OutcomeNotModified
	OutcomeHTTPError
	OutcomeParsed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeNotModified:
		return "not_modified"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeParsed:
		return "parsed"
	default:
		return "unknown"
	}
}

type FetchRequest struct {
	URL          string
	ETag         string
	LastModified *time.Time
}

// FetchOutcome is the classified result of one conditional GET.
// Items, ETag, LastModified and Malformed are only set for OutcomeParsed.
type FetchOutcome struct {
	Kind          OutcomeKind
	Status        int
	Items         []*gofeed.Item
	ETag          string
	LastModified  *time.Time
	ContentLength int64
	Malformed     bool
	Err           error
}

// Failed reports whether the outcome counts against the feed
func (o *FetchOutcome) Failed() bool {
	switch o.Kind {
	case OutcomeNotModified:
		return false
	case OutcomeParsed:
		return o.Malformed
	default:
		return true
	}
}

type FeedFetcher interface {
	Fetch(ctx context.Context, req FetchRequest) *FetchOutcome
}

var _ FeedFetcher = (*Fetcher)(nil)

// Fetcher performs conditional GETs. It never retries and never writes to
// storage; the caller applies the outcome.
type Fetcher struct {
	httpClient  *http.Client
	parser      *Parser
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
}

// DefaultMaxBodySize caps a response body when no limit is configured
const DefaultMaxBodySize int64 = 10 << 20

// NewFetcher reads at most maxBodySize bytes of a feed; a larger body is
// reported as malformed. Zero means DefaultMaxBodySize.
func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string, timeout time.Duration, maxBodySize int64) *Fetcher {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &Fetcher{
		httpClient:  httpClient,
		parser:      parser,
		userAgent:   userAgent,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) *FetchOutcome {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return &FetchOutcome{Kind: OutcomeNetworkError, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	httpReq.Header.Set("User-Agent", f.userAgent)
	if req.ETag != "" {
		httpReq.Header.Set("If-None-Match", req.ETag)
	}
	if req.LastModified != nil {
		httpReq.Header.Set("If-Modified-Since", req.LastModified.UTC().Format(http.TimeFormat))
	}

	slog.Debug("Feed request", "url", req.URL, "etag", req.ETag, "last_modified", req.LastModified)

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return &FetchOutcome{Kind: OutcomeNetworkError, Err: fmt.Errorf("failed to fetch feed: %w", err)}
	}
	defer resp.Body.Close()

	slog.Debug("Feed response",
		"url", req.URL,
		"status", resp.StatusCode,
		"etag", resp.Header.Get("ETag"),
		"last_modified", resp.Header.Get("Last-Modified"),
		"content_length", resp.ContentLength)

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &FetchOutcome{Kind: OutcomeNotModified, Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return &FetchOutcome{
			Kind:   OutcomeHTTPError,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("HTTP error: %s", resp.Status),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return &FetchOutcome{
			Kind:   OutcomeNetworkError,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("failed to read response body: %w", err),
		}
	}

	outcome := &FetchOutcome{
		Kind:          OutcomeParsed,
		Status:        resp.StatusCode,
		ETag:          resp.Header.Get("ETag"),
		LastModified:  parseHTTPDate(resp.Header.Get("Last-Modified")),
		ContentLength: resp.ContentLength,
	}

	if int64(len(data)) > f.maxBodySize {
		outcome.Malformed = true
		outcome.Err = fmt.Errorf("feed body exceeds %d bytes", f.maxBodySize)
		return outcome
	}

	items, err := f.parser.Run(data)
	if err != nil {
		outcome.Malformed = true
		outcome.Err = err
		return outcome
	}

	outcome.Items = items
	return outcome
}

func parseHTTPDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if t, err := http.ParseTime(value); err == nil {
		return &t
	}

	if t, err := dateparse.ParseAny(value); err == nil {
		return &t
	}

	return nil
}
