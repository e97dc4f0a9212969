package openlibrary

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// searchFields trims the search payload to what BookSummary needs.
	searchFields = "key,title,author_name,first_publish_year,cover_i,isbn,subject,ratings_average"
	// suggestFields is the minimal autocomplete field set.
	suggestFields = "key,title,author_name,cover_i"
)

// SearchParams describes one catalog search.
type SearchParams struct {
	Query string
	Genre string // appended as a subject: token
	Sort  string // catalog sort key, e.g. "new" or "rating"
	Page  int    // 1-based
	Limit int
}

// Search queries the catalog. An empty query with a genre or year-only
// filter still needs some term, so the broad term "fiction" stands in.
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}

	q := strings.TrimSpace(p.Query)
	switch {
	case p.Genre != "" && q == "":
		q = "subject:" + p.Genre
	case p.Genre != "":
		q += " subject:" + p.Genre
	case q == "":
		q = "fiction"
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("fields", searchFields)
	params.Set("page", strconv.Itoa(p.Page))
	params.Set("limit", strconv.Itoa(p.Limit))
	if p.Sort != "" {
		params.Set("sort", p.Sort)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	defer cancel()

	c.logger.Debug("searching catalog", "query", q, "page", p.Page)

	var raw searchResponse
	err := c.get(ctx, c.cfg.BaseURL+"/search.json?"+params.Encode(), func(resp *http.Response) error {
		return json.UnmarshalRead(resp.Body, &raw)
	})
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		Books: make([]BookSummary, 0, len(raw.Docs)),
		Total: raw.NumFound,
		Page:  p.Page,
	}
	for i := range raw.Docs {
		result.Books = append(result.Books, c.summarize(&raw.Docs[i], "M", false))
	}

	return result, nil
}

// Suggest returns lightweight autocomplete entries for a partial query.
// Small covers, few fields, short deadline.
func (c *Client) Suggest(ctx context.Context, query string, limit int) ([]BookSummary, error) {
	if limit < 1 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("fields", suggestFields)
	params.Set("limit", strconv.Itoa(limit))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SuggestTimeout)
	defer cancel()

	var raw searchResponse
	err := c.get(ctx, c.cfg.BaseURL+"/search.json?"+params.Encode(), func(resp *http.Response) error {
		return json.UnmarshalRead(resp.Body, &raw)
	})
	if err != nil {
		return nil, err
	}

	out := make([]BookSummary, 0, len(raw.Docs))
	for i := range raw.Docs {
		out = append(out, c.summarize(&raw.Docs[i], "S", false))
	}
	return out, nil
}

// SearchSubject returns the top rated works for one genre. Used by the
// recommendation aggregator, so ratings are included.
func (c *Client) SearchSubject(ctx context.Context, genre string, limit int) ([]BookSummary, error) {
	if limit < 1 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", fmt.Sprintf("subject:%q", genre))
	params.Set("fields", searchFields)
	params.Set("sort", "rating")
	params.Set("limit", strconv.Itoa(limit))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	defer cancel()

	var raw searchResponse
	err := c.get(ctx, c.cfg.BaseURL+"/search.json?"+params.Encode(), func(resp *http.Response) error {
		return json.UnmarshalRead(resp.Body, &raw)
	})
	if err != nil {
		return nil, err
	}

	out := make([]BookSummary, 0, len(raw.Docs))
	for i := range raw.Docs {
		s := c.summarize(&raw.Docs[i], "M", true)
		s.RecommendedBy = genre
		out = append(out, s)
	}
	return out, nil
}

// GetWork fetches the full detail record for one work id.
func (c *Client) GetWork(ctx context.Context, id string) (*WorkDetail, error) {
	id = NormalizeWorkID(id)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	defer cancel()

	var raw workResponse
	err := c.get(ctx, c.cfg.BaseURL+"/works/"+url.PathEscape(id)+".json", func(resp *http.Response) error {
		return json.UnmarshalRead(resp.Body, &raw)
	})
	if err != nil {
		return nil, err
	}

	detail := &WorkDetail{
		ID:          NormalizeWorkID(raw.Key),
		Title:       raw.Title,
		Description: string(raw.Description),
		Subjects:    raw.Subjects,
	}
	if detail.ID == "" {
		detail.ID = id
	}
	if detail.Description == "" {
		detail.Description = "No description available"
	}
	if len(raw.Covers) > 0 {
		detail.CoverURL = c.coverURL(raw.Covers[0], "L")
	}

	return detail, nil
}
