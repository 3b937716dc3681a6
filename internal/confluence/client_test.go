package confluence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "user@example.com", "token")
}

func TestSearchBuildsCQL(t *testing.T) {
	var gotCQL string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content/search", r.URL.Path)
		gotCQL = r.URL.Query().Get("cql")
		_, _ = w.Write([]byte(`{"results":[
			{"id":"100","title":"Onboarding","space":{"key":"DEV"},"_links":{"webui":"/spaces/DEV/pages/100"}}
		]}`))
	})

	pages, err := client.Search(context.Background(), "onboarding", "DEV", 10)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "100", pages[0].ID)
	assert.Equal(t, "DEV", pages[0].SpaceKey)
	assert.Contains(t, pages[0].URL, "/wiki/spaces/DEV/pages/100")
	assert.Contains(t, gotCQL, `title ~ "onboarding"`)
	assert.Contains(t, gotCQL, `space = "DEV"`)
}

func TestSearchEscapesQuery(t *testing.T) {
	var gotCQL string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCQL = r.URL.Query().Get("cql")
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	_, err := client.Search(context.Background(), `plan "Q3"`, "", 5)
	require.NoError(t, err)
	assert.Contains(t, gotCQL, `title ~ "plan \"Q3\""`)
}

func TestGetPageByIDExpandsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content/100", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("expand"), "body.storage")
		_, _ = w.Write([]byte(`{"id":"100","title":"Runbook","space":{"key":"OPS"},"body":{"storage":{"value":"<p>steps</p>"}}}`))
	})

	page, err := client.GetPageByID(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "Runbook", page.Title)
	assert.Equal(t, "<p>steps</p>", page.Body)
}

func TestGetPageByTitleNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	page, err := client.GetPageByTitle(context.Background(), "DEV", "No such page")
	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestCreatePage(t *testing.T) {
	var payload map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"id":"200","title":"Incidente - Caida SAP","_links":{"webui":"/spaces/INC/pages/200"}}`))
	})

	page, err := client.CreatePage(context.Background(), "INC", "Incidente - Caida SAP", "<p>detalle</p>")
	require.NoError(t, err)
	assert.Equal(t, "200", page.ID)
	assert.Equal(t, "INC", page.SpaceKey)
	assert.Equal(t, "page", payload["type"])

	body := payload["body"].(map[string]interface{})["storage"].(map[string]interface{})
	assert.Equal(t, "<p>detalle</p>", body["value"])
	assert.Equal(t, "storage", body["representation"])
}

func TestAPIErrorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"No permission to view content"}`))
	})

	_, err := client.GetPageByID(context.Background(), "100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
	assert.Contains(t, err.Error(), "No permission")
}
