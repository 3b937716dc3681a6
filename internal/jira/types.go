package jira

import (
	"fmt"
	"strings"
	"time"
)

// Issue is the subset of Jira issue fields the assistant works with.
type Issue struct {
	Key      string `json:"key"`
	Summary  string `json:"summary"`
	Status   string `json:"status"`
	Assignee string `json:"assignee,omitempty"`
	URL      string `json:"url"`
}

// Worklog is a single time entry on an issue.
type Worklog struct {
	IssueKey         string `json:"issue_key"`
	TimeSpent        string `json:"time_spent"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
	Started          string `json:"started"`
}

// Transition is a workflow transition available on an issue.
type Transition struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ToStatus string `json:"to_status"`
}

// rawIssue mirrors the wire shape of the search and issue endpoints.
type rawIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
	} `json:"fields"`
}

func (r rawIssue) toIssue(baseURL string) Issue {
	issue := Issue{
		Key:     r.Key,
		Summary: r.Fields.Summary,
		Status:  r.Fields.Status.Name,
		URL:     fmt.Sprintf("%s/browse/%s", baseURL, r.Key),
	}
	if r.Fields.Assignee != nil {
		issue.Assignee = r.Fields.Assignee.DisplayName
	}
	return issue
}

// EscapeJQL escapes characters that would break out of a quoted JQL string.
func EscapeJQL(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	return strings.ReplaceAll(text, `"`, `\"`)
}

// FormatSeconds renders a duration in seconds as Jira-style "2h 30m".
func FormatSeconds(seconds int) string {
	if seconds <= 0 {
		return "0m"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatStarted renders a time in the ISO 8601 variant Jira's worklog
// endpoint requires.
func FormatStarted(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000-0700")
}
