// Package openlibrary is the HTTP client for the Open Library catalog.
// It owns identifier normalization, cover URL construction, and the
// translation of transport failures into the upstream error taxonomy.
package openlibrary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	domainerrors "github.com/shelfmark/shelfmark-server/internal/errors"
)

// Config holds catalog endpoints and per-operation deadlines.
type Config struct {
	BaseURL      string
	CoverBaseURL string
	// SearchTimeout bounds search and detail requests.
	SearchTimeout time.Duration
	// SuggestTimeout bounds autocomplete requests, which must stay snappy.
	SuggestTimeout time.Duration
}

// Client provides access to the Open Library search and works APIs.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	cfg         Config
}

// NewClient creates an Open Library client. Outbound requests are rate
// limited to stay well inside the catalog's courtesy limits.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = 30 * time.Second
	}
	if cfg.SuggestTimeout == 0 {
		cfg.SuggestTimeout = 10 * time.Second
	}
	return &Client{
		// Per-call deadlines come from contexts, not a client-wide timeout.
		httpClient:  &http.Client{},
		rateLimiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 10),
		logger:      logger,
		cfg:         cfg,
	}
}

// wait blocks until the rate limiter allows a request.
func (c *Client) wait(ctx context.Context) error {
	return c.rateLimiter.Wait(ctx)
}

// get issues a GET and decodes the JSON body into out.
// Transport and status failures come back as upstream domain errors.
func (c *Client) get(ctx context.Context, url string, decode func(*http.Response) error) error {
	if err := c.wait(ctx); err != nil {
		return c.mapTransportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "shelfmark-server/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("catalog rejected request", "url", url, "status", resp.StatusCode)
		return domainerrors.UpstreamRejected(fmt.Sprintf("catalog returned status %d", resp.StatusCode))
	}

	if err := decode(resp); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUpstreamRejected, "catalog returned malformed response")
	}
	return nil
}

// mapTransportError folds raw transport failures into the upstream
// taxonomy so callers never see net internals.
func (c *Client) mapTransportError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return domainerrors.UpstreamTimeout("catalog did not respond in time").WithCause(err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return domainerrors.UpstreamUnavailable("catalog is unreachable").WithCause(err)
	}
}

// coverURL builds a covers CDN URL for a cover id, or nil when the work
// has no cover. Size is "S", "M" or "L".
func (c *Client) coverURL(coverID int64, size string) *string {
	if coverID == 0 {
		return nil
	}
	u := fmt.Sprintf("%s/b/id/%d-%s.jpg", c.cfg.CoverBaseURL, coverID, size)
	return &u
}

// summarize converts a raw search doc into a BookSummary.
func (c *Client) summarize(doc *searchDoc, coverSize string, withRating bool) BookSummary {
	s := BookSummary{
		ID:       NormalizeWorkID(doc.Key),
		Title:    doc.Title,
		CoverURL: c.coverURL(doc.CoverID, coverSize),
	}

	if s.Title == "" {
		s.Title = "Unknown Title"
	}

	s.Author = "Unknown Author"
	if len(doc.AuthorName) > 0 {
		s.Author = doc.AuthorName[0]
	}

	if doc.FirstPublishYear > 0 {
		year := doc.FirstPublishYear
		s.PublishYear = &year
	}

	if len(doc.ISBN) > 0 {
		isbn := doc.ISBN[0]
		s.ISBN = &isbn
	}

	if len(doc.Subject) > 0 {
		s.Genres = doc.Subject[:min(len(doc.Subject), 5)]
		s.Description = joinSubjects(doc.Subject)
	} else {
		s.Description = "No description available"
	}

	if withRating && doc.RatingsAverage > 0 {
		rating := doc.RatingsAverage
		s.Rating = &rating
	}

	return s
}

// joinSubjects builds the fallback description from the first subjects.
func joinSubjects(subjects []string) string {
	n := min(len(subjects), 3)
	out := ""
	for i := range n {
		if i > 0 {
			out += ", "
		}
		out += subjects[i]
	}
	return out
}
