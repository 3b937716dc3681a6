// Package jira provides a thin client for the Jira Cloud REST API v3.
package jira

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

// Client provides access to the Jira Cloud REST API using Basic Auth.
type Client struct {
	baseURL    string // site URL, e.g. "https://yourorg.atlassian.net"
	email      string
	apiToken   string
	projectKey string // default project key for text searches
	httpClient *http.Client
}

// NewClient creates a Jira API client using Basic Auth (email + API token).
func NewClient(baseURL, email, apiToken, defaultProject string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		projectKey: defaultProject,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// DefaultProject returns the configured default project key.
func (c *Client) DefaultProject() string {
	return c.projectKey
}

// BrowseURL returns the human-facing URL for an issue key.
func (c *Client) BrowseURL(key string) string {
	return fmt.Sprintf("%s/browse/%s", c.baseURL, key)
}

// SearchAssigned returns issues assigned to the authenticated user,
// most recently updated first.
func (c *Client) SearchAssigned(ctx context.Context, maxResults int) ([]Issue, error) {
	jql := "assignee = currentUser() ORDER BY updated DESC"
	return c.search(ctx, jql, maxResults)
}

// SearchByText searches issues whose summary or description matches the
// given text, optionally restricted to the default project.
func (c *Client) SearchByText(ctx context.Context, text string, maxResults int) ([]Issue, error) {
	escaped := EscapeJQL(text)
	parts := []string{fmt.Sprintf(`text ~ "%s"`, escaped)}
	if c.projectKey != "" {
		parts = append(parts, fmt.Sprintf("project = %s", c.projectKey))
	}
	jql := strings.Join(parts, " AND ") + " ORDER BY updated DESC"
	return c.search(ctx, jql, maxResults)
}

func (c *Client) search(ctx context.Context, jql string, maxResults int) ([]Issue, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	qs := url.Values{}
	qs.Set("jql", jql)
	qs.Set("maxResults", strconv.Itoa(maxResults))
	qs.Set("fields", "summary,status,assignee")

	var out struct {
		Issues []rawIssue `json:"issues"`
	}
	endpoint := fmt.Sprintf("%s/rest/api/3/search/jql?%s", c.baseURL, qs.Encode())
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(out.Issues))
	for _, raw := range out.Issues {
		issues = append(issues, raw.toIssue(c.baseURL))
	}
	return issues, nil
}

// GetIssue returns the details of a single issue by key.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=summary,status,assignee,description,priority,labels,created,updated", c.baseURL, url.PathEscape(key))
	var raw rawIssue
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	issue := raw.toIssue(c.baseURL)
	return &issue, nil
}

// AddComment adds a plain-text comment to an issue.
func (c *Client) AddComment(ctx context.Context, key, body string) error {
	payload := map[string]interface{}{
		"body": textToADF(body),
	}
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/comment", c.baseURL, url.PathEscape(key))
	return c.do(ctx, http.MethodPost, endpoint, payload, nil)
}

// AddWorklog records time spent on an issue. started must be in Jira's
// ISO 8601 format (see FormatStarted); comment may be empty.
func (c *Client) AddWorklog(ctx context.Context, key string, seconds int, comment, started string) error {
	if seconds <= 0 {
		return fmt.Errorf("worklog seconds must be positive, got %d", seconds)
	}
	payload := map[string]interface{}{
		"timeSpentSeconds": seconds,
		"started":          started,
	}
	if comment != "" {
		payload["comment"] = textToADF(comment)
	}
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/worklog", c.baseURL, url.PathEscape(key))
	return c.do(ctx, http.MethodPost, endpoint, payload, nil)
}

// GetWorklogs returns the worklogs recorded on an issue.
func (c *Client) GetWorklogs(ctx context.Context, key string) ([]Worklog, error) {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/worklog", c.baseURL, url.PathEscape(key))
	var out struct {
		Worklogs []struct {
			TimeSpent        string `json:"timeSpent"`
			TimeSpentSeconds int    `json:"timeSpentSeconds"`
			Started          string `json:"started"`
		} `json:"worklogs"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	logs := make([]Worklog, 0, len(out.Worklogs))
	for _, w := range out.Worklogs {
		logs = append(logs, Worklog{
			IssueKey:         key,
			TimeSpent:        w.TimeSpent,
			TimeSpentSeconds: w.TimeSpentSeconds,
			Started:          w.Started,
		})
	}
	return logs, nil
}

// ListTransitions returns the transitions available for an issue.
func (c *Client) ListTransitions(ctx context.Context, key string) ([]Transition, error) {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", c.baseURL, url.PathEscape(key))
	var out struct {
		Transitions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			To   struct {
				Name string `json:"name"`
			} `json:"to"`
		} `json:"transitions"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	transitions := make([]Transition, 0, len(out.Transitions))
	for _, t := range out.Transitions {
		transitions = append(transitions, Transition{ID: t.ID, Name: t.Name, ToStatus: t.To.Name})
	}
	return transitions, nil
}

// ApplyTransition moves an issue through the given transition.
func (c *Client) ApplyTransition(ctx context.Context, key, transitionID string) error {
	payload := map[string]interface{}{
		"transition": map[string]string{"id": transitionID},
	}
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", c.baseURL, url.PathEscape(key))
	return c.do(ctx, http.MethodPost, endpoint, payload, nil)
}

// do performs an authenticated JSON request. A nil out skips response
// decoding. Non-2xx responses are converted to errors carrying Jira's
// structured error messages when available.
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
		return parseAPIError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// parseAPIError extracts Jira's structured error for actionable diagnostics.
func parseAPIError(status int, body []byte) error {
	var jiraErr struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if json.Unmarshal(body, &jiraErr) == nil {
		var parts []string
		parts = append(parts, jiraErr.ErrorMessages...)
		for field, msg := range jiraErr.Errors {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
		}
		if len(parts) > 0 {
			return fmt.Errorf("jira API error (HTTP %d): %s", status, strings.Join(parts, "; "))
		}
	}
	return fmt.Errorf("jira API error (HTTP %d): %s", status, string(body))
}

// textToADF wraps plain text in a minimal Atlassian Document Format body,
// required by the v3 comment and worklog endpoints.
func textToADF(text string) map[string]interface{} {
	return map[string]interface{}{
		"type":    "doc",
		"version": 1,
		"content": []interface{}{
			map[string]interface{}{
				"type": "paragraph",
				"content": []interface{}{
					map[string]interface{}{"type": "text", "text": text},
				},
			},
		},
	}
}
