package wikiagent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvaldes/atlasbot/internal/assistant"
	"github.com/mvaldes/atlasbot/internal/confluence"
	"github.com/mvaldes/atlasbot/internal/provider"
)

type fakeClient struct {
	spaces     []confluence.Space
	searchHits []confluence.Page
	pages      map[string]confluence.Page

	created  []confluence.Page
	failWith error
}

func (f *fakeClient) ListSpaces(context.Context, int) ([]confluence.Space, error) {
	return f.spaces, f.failWith
}

func (f *fakeClient) Search(context.Context, string, string, int) ([]confluence.Page, error) {
	return f.searchHits, f.failWith
}

func (f *fakeClient) GetPageByID(_ context.Context, id string) (*confluence.Page, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if page, ok := f.pages[id]; ok {
		return &page, nil
	}
	return nil, fmt.Errorf("confluence API error (HTTP 404): page not found")
}

func (f *fakeClient) GetPageByTitle(_ context.Context, _, title string) (*confluence.Page, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, page := range f.pages {
		if page.Title == title {
			return &page, nil
		}
	}
	return nil, nil
}

func (f *fakeClient) CreatePage(_ context.Context, spaceKey, title, body string) (*confluence.Page, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	page := confluence.Page{ID: fmt.Sprintf("%d", 100+len(f.created)), Title: title, SpaceKey: spaceKey, Body: body}
	f.created = append(f.created, page)
	return &page, nil
}

func newSession() *assistant.Session {
	return assistant.NewSession(time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC), 20)
}

func handle(t *testing.T, mock *provider.MockProvider, client Client, session *assistant.Session, message string) assistant.Outcome {
	t.Helper()
	agent := New(mock, client)
	session.AppendUser(message)
	outcome, err := agent.Handle(context.Background(), message, session)
	require.NoError(t, err)
	return outcome
}

func searchPages() []confluence.Page {
	return []confluence.Page{
		{ID: "1", Title: "Guía de despliegue", SpaceKey: "DEV"},
		{ID: "2", Title: "Sprint Planning 2024-05", SpaceKey: "DEV"},
		{ID: "3", Title: "Runbook de base de datos", SpaceKey: "DEV"},
		{ID: "4", Title: "Plan de capacidad Q3", SpaceKey: "DEV"},
	}
}

func TestSmartSearchPartitionsCeremonyPages(t *testing.T) {
	client := &fakeClient{searchHits: searchPages()}
	session := newSession()

	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "smart_search", `{"query":"despliegue"}`),
		provider.TextResponse("Encontré 3 páginas relevantes (1 filtrada)"),
	)
	handle(t, mock, client, session, "busca despliegue")

	memory := session.Memory(assistant.DomainWiki)
	require.Len(t, memory.Candidates.Relevant, 3)
	require.Len(t, memory.Candidates.Filtered, 1)
	assert.Equal(t, "2", memory.Candidates.Filtered[0].ID)
	// Numbering covers the relevant subset only.
	assert.Equal(t, "1", memory.Candidates.Relevant[0].ID)
	assert.Equal(t, "3", memory.Candidates.Relevant[1].ID)
}

func TestOptionReferenceResolvesAgainstRelevantSubset(t *testing.T) {
	client := &fakeClient{
		searchHits: searchPages(),
		pages: map[string]confluence.Page{
			"3": {ID: "3", Title: "Runbook de base de datos", SpaceKey: "DEV", Body: "<p>pasos</p>"},
		},
	}
	session := newSession()

	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "smart_search", `{"query":"despliegue"}`),
		provider.TextResponse("1. Guía, 2. Runbook, 3. Plan"),
	)
	handle(t, mock, client, session, "busca despliegue")

	// "opción 2" is the 2nd relevant page (the runbook), not the 2nd raw
	// search hit (the sprint planning page).
	mock = provider.NewMockProvider(
		provider.ToolCallResponse("c2", "get_page", `{"reference":"opción 2"}`),
		provider.TextResponse("Runbook de base de datos: pasos"),
	)
	outcome := handle(t, mock, client, session, "opción 2")

	assert.Contains(t, outcome.Text(), "Runbook")
	assert.Equal(t, "3", session.Memory(assistant.DomainWiki).Current.ID)
}

func TestSmartSearchReferenceShortCircuit(t *testing.T) {
	client := &fakeClient{searchHits: searchPages()}
	session := newSession()

	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "smart_search", `{"query":"despliegue"}`),
		provider.TextResponse("listado"),
	)
	handle(t, mock, client, session, "busca despliegue")

	// A follow-up query that names a previous result must not hit the API
	// again: the candidates stay untouched.
	client.searchHits = nil
	mock = provider.NewMockProvider(
		provider.ToolCallResponse("c2", "smart_search", `{"query":"guía de despliegue"}`),
		provider.TextResponse("Es la Guía de despliegue"),
	)
	handle(t, mock, client, session, "la guía de despliegue")

	memory := session.Memory(assistant.DomainWiki)
	assert.Len(t, memory.Candidates.Relevant, 3)
	require.NotNil(t, memory.Current)
	assert.Equal(t, "1", memory.Current.ID)
}

func TestCreatePage(t *testing.T) {
	client := &fakeClient{}
	session := newSession()

	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "create_page", `{"space":"DEV","title":"Notas de release","body":"<p>v2</p>"}`),
		provider.TextResponse("Página creada"),
	)
	handle(t, mock, client, session, "crea una página de notas de release")

	require.Len(t, client.created, 1)
	assert.Equal(t, "Notas de release", client.created[0].Title)
	assert.Equal(t, "DEV", client.created[0].SpaceKey)
}

func TestGetPageByNumericID(t *testing.T) {
	client := &fakeClient{pages: map[string]confluence.Page{
		"987": {ID: "987", Title: "Onboarding", Body: "<p>hola</p>"},
	}}
	session := newSession()

	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "get_page", `{"reference":"987"}`),
		provider.TextResponse("Onboarding"),
	)
	outcome := handle(t, mock, client, session, "abre la página 987")
	assert.Contains(t, outcome.Text(), "Onboarding")
}

func TestCustomFilter(t *testing.T) {
	client := &fakeClient{searchHits: []confluence.Page{
		{ID: "1", Title: "Acta semanal"},
		{ID: "2", Title: "Diseño del sistema"},
	}}
	session := newSession()

	agent := New(provider.NewMockProvider(
		provider.ToolCallResponse("c1", "smart_search", `{"query":"sistema"}`),
		provider.TextResponse("ok"),
	), client, WithFilter(func(title string) bool {
		return title == "Acta semanal"
	}))

	session.AppendUser("busca sistema")
	_, err := agent.Handle(context.Background(), "", session)
	require.NoError(t, err)

	memory := session.Memory(assistant.DomainWiki)
	require.Len(t, memory.Candidates.Filtered, 1)
	assert.Equal(t, "1", memory.Candidates.Filtered[0].ID)
}

func TestDefaultFilter(t *testing.T) {
	assert.True(t, DefaultFilter("Sprint Planning 2024-05"))
	assert.True(t, DefaultFilter("Daily Scrum notas"))
	assert.False(t, DefaultFilter("Guía de despliegue"))
}

func TestHandleDecline(t *testing.T) {
	session := newSession()
	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", assistant.DeclineToolName, `{"reason":"es una consulta de jira"}`),
	)
	agent := New(mock, &fakeClient{})
	session.AppendUser("imputa 2h a PROJ-1")
	outcome, err := agent.Handle(context.Background(), "", session)
	require.NoError(t, err)
	assert.True(t, outcome.IsDeclined())
}
