// Package confluence provides a thin client for the Confluence Cloud REST API.
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides access to the Confluence Cloud REST API using Basic Auth.
type Client struct {
	baseURL    string // site URL, e.g. "https://yourorg.atlassian.net"
	email      string
	apiToken   string
	httpClient *http.Client
}

// NewClient creates a Confluence API client using Basic Auth (email + API token).
func NewClient(baseURL, email, apiToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Space is a Confluence space.
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Page is the subset of Confluence page fields the assistant works with.
type Page struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	SpaceKey string `json:"space_key"`
	URL      string `json:"url"`
	Body     string `json:"body,omitempty"` // storage-format body, when expanded
}

// ListSpaces returns the spaces visible to the authenticated user.
func (c *Client) ListSpaces(ctx context.Context, limit int) ([]Space, error) {
	if limit <= 0 {
		limit = 25
	}
	endpoint := fmt.Sprintf("%s/wiki/rest/api/space?limit=%d", c.baseURL, limit)
	var out struct {
		Results []Space `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Search finds pages whose title or text matches the query, optionally
// restricted to a space.
func (c *Client) Search(ctx context.Context, query, spaceKey string, limit int) ([]Page, error) {
	if limit <= 0 {
		limit = 10
	}
	escaped := escapeCQL(query)
	cql := fmt.Sprintf(`type = page AND (title ~ "%s" OR text ~ "%s")`, escaped, escaped)
	if spaceKey != "" {
		cql += fmt.Sprintf(` AND space = "%s"`, escapeCQL(spaceKey))
	}

	qs := url.Values{}
	qs.Set("cql", cql)
	qs.Set("limit", strconv.Itoa(limit))
	qs.Set("expand", "space")
	endpoint := fmt.Sprintf("%s/wiki/rest/api/content/search?%s", c.baseURL, qs.Encode())

	var out struct {
		Results []rawPage `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	pages := make([]Page, 0, len(out.Results))
	for _, raw := range out.Results {
		pages = append(pages, raw.toPage(c.baseURL))
	}
	return pages, nil
}

// GetPageByID returns a page with its storage-format body.
func (c *Client) GetPageByID(ctx context.Context, id string) (*Page, error) {
	endpoint := fmt.Sprintf("%s/wiki/rest/api/content/%s?expand=body.storage,space", c.baseURL, url.PathEscape(id))
	var raw rawPage
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	page := raw.toPage(c.baseURL)
	return &page, nil
}

// GetPageByTitle returns the page with an exact title match in a space,
// or nil when no such page exists.
func (c *Client) GetPageByTitle(ctx context.Context, spaceKey, title string) (*Page, error) {
	qs := url.Values{}
	qs.Set("spaceKey", spaceKey)
	qs.Set("title", title)
	qs.Set("expand", "space")
	endpoint := fmt.Sprintf("%s/wiki/rest/api/content?%s", c.baseURL, qs.Encode())

	var out struct {
		Results []rawPage `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, nil
	}
	page := out.Results[0].toPage(c.baseURL)
	return &page, nil
}

// CreatePage creates a page with a storage-format body and returns it.
func (c *Client) CreatePage(ctx context.Context, spaceKey, title, storageBody string) (*Page, error) {
	payload := map[string]interface{}{
		"type":  "page",
		"title": title,
		"space": map[string]string{"key": spaceKey},
		"body": map[string]interface{}{
			"storage": map[string]string{
				"value":          storageBody,
				"representation": "storage",
			},
		},
	}
	endpoint := fmt.Sprintf("%s/wiki/rest/api/content", c.baseURL)
	var raw rawPage
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &raw); err != nil {
		return nil, err
	}
	page := raw.toPage(c.baseURL)
	if page.SpaceKey == "" {
		page.SpaceKey = spaceKey
	}
	return &page, nil
}

type rawPage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space *struct {
		Key string `json:"key"`
	} `json:"space"`
	Body *struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

func (r rawPage) toPage(baseURL string) Page {
	page := Page{ID: r.ID, Title: r.Title}
	if r.Space != nil {
		page.SpaceKey = r.Space.Key
	}
	if r.Body != nil {
		page.Body = r.Body.Storage.Value
	}
	if r.Links.WebUI != "" {
		page.URL = baseURL + "/wiki" + r.Links.WebUI
	}
	return page
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.email, c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("confluence API error (HTTP %d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("confluence API error (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// escapeCQL escapes characters that would break out of a quoted CQL string.
func escapeCQL(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	return strings.ReplaceAll(text, `"`, `\"`)
}
