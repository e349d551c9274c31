package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const searchPath = "/api/v2/search"

// Status is a federated post as returned by the search API. Content is
// HTML; strip it before classification.
type Status struct {
	Id        string  `json:"id"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"created_at"`
	Url       string  `json:"url"`
	Account   Account `json:"account"`
}

type Account struct {
	Username    string `json:"username"`
	Acct        string `json:"acct"`
	DisplayName string `json:"display_name"`
}

// The search endpoint also returns accounts and hashtags; only statuses
// are of interest here
type searchResponse struct {
	Statuses []Status `json:"statuses"`
}

// Client issues authenticated search requests against one instance
type Client struct {
	host  string
	token string
	http  *http.Client
}

func NewClient(host string, token string) *Client {
	return &Client{
		host:  strings.TrimRight(host, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SearchStatuses returns one page of status results for query. maxID is
// the pagination cursor; empty asks for the newest page.
func (c *Client) SearchStatuses(ctx context.Context, query string, maxID string, limit int) ([]Status, error) {
	u, err := url.Parse(c.host + searchPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search url: %w", err)
	}

	q := u.Query()
	q.Set("q", query)
	q.Set("type", "statuses")
	q.Set("limit", strconv.Itoa(limit))
	if maxID != "" {
		q.Set("max_id", maxID)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return parsed.Statuses, nil
}
