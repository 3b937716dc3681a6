package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "user@example.com", "token", "PROJ")
}

func TestSearchAssigned(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/search/jql", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("jql"), "assignee = currentUser()")

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "user@example.com", user)
		assert.Equal(t, "token", pass)

		_, _ = w.Write([]byte(`{"issues":[
			{"key":"PROJ-1","fields":{"summary":"Fix login","status":{"name":"In Progress"},"assignee":{"displayName":"Maria"}}},
			{"key":"PROJ-2","fields":{"summary":"Update docs","status":{"name":"To Do"},"assignee":null}}
		]}`))
	})

	issues, err := client.SearchAssigned(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "PROJ-1", issues[0].Key)
	assert.Equal(t, "In Progress", issues[0].Status)
	assert.Equal(t, "Maria", issues[0].Assignee)
	assert.Empty(t, issues[1].Assignee)
	assert.Contains(t, issues[0].URL, "/browse/PROJ-1")
}

func TestSearchByTextEscapesQuotes(t *testing.T) {
	var gotJQL string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotJQL = r.URL.Query().Get("jql")
		_, _ = w.Write([]byte(`{"issues":[]}`))
	})

	_, err := client.SearchByText(context.Background(), `login "bug"`, 5)
	require.NoError(t, err)
	assert.Contains(t, gotJQL, `text ~ "login \"bug\""`)
	assert.Contains(t, gotJQL, "project = PROJ")
}

func TestAddWorklog(t *testing.T) {
	var payload map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/issue/PROJ-1/worklog", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusCreated)
	})

	started := FormatStarted(time.Date(2024, 5, 19, 9, 0, 0, 0, time.UTC))
	err := client.AddWorklog(context.Background(), "PROJ-1", 5400, "pairing", started)
	require.NoError(t, err)
	assert.Equal(t, float64(5400), payload["timeSpentSeconds"])
	assert.Equal(t, started, payload["started"])
}

func TestAddWorklogRejectsNonPositive(t *testing.T) {
	client := NewClient("https://example.atlassian.net", "u", "t", "PROJ")
	err := client.AddWorklog(context.Background(), "PROJ-1", 0, "", "2024-05-19T09:00:00.000+0000")
	assert.Error(t, err)
}

func TestAPIErrorParsing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorMessages":["Issue does not exist"],"errors":{}}`))
	})

	_, err := client.GetIssue(context.Background(), "PROJ-999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.Contains(t, err.Error(), "Issue does not exist")
}

func TestListTransitions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"transitions":[
			{"id":"21","name":"In Progress","to":{"name":"In Progress"}},
			{"id":"31","name":"Done","to":{"name":"Done"}}
		]}`))
	})

	transitions, err := client.ListTransitions(context.Background(), "PROJ-1")
	require.NoError(t, err)
	require.Len(t, transitions, 2)
	assert.Equal(t, "21", transitions[0].ID)
	assert.Equal(t, "Done", transitions[1].ToStatus)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "2h 30m", FormatSeconds(9000))
	assert.Equal(t, "1h", FormatSeconds(3600))
	assert.Equal(t, "45m", FormatSeconds(2700))
	assert.Equal(t, "0m", FormatSeconds(0))
}

func TestEscapeJQL(t *testing.T) {
	assert.Equal(t, `a \"b\" c`, EscapeJQL(`a "b" c`))
	assert.Equal(t, `back\\slash`, EscapeJQL(`back\slash`))
}
