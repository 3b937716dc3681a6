package issueagent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvaldes/atlasbot/internal/assistant"
	"github.com/mvaldes/atlasbot/internal/assistant/resolve"
	"github.com/mvaldes/atlasbot/internal/jira"
	"github.com/mvaldes/atlasbot/internal/provider"
)

type fakeClient struct {
	assigned    []jira.Issue
	searchHits  []jira.Issue
	worklogs    map[string][]jira.Worklog
	transitions []jira.Transition

	addedWorklogs []addedWorklog
	comments      []string
	applied       []string
	failWith      error
}

type addedWorklog struct {
	key     string
	seconds int
	started string
}

func (f *fakeClient) SearchAssigned(context.Context, int) ([]jira.Issue, error) {
	return f.assigned, f.failWith
}

func (f *fakeClient) SearchByText(context.Context, string, int) ([]jira.Issue, error) {
	return f.searchHits, f.failWith
}

func (f *fakeClient) GetIssue(_ context.Context, key string) (*jira.Issue, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, issue := range append(append([]jira.Issue{}, f.assigned...), f.searchHits...) {
		if issue.Key == key {
			return &issue, nil
		}
	}
	return nil, fmt.Errorf("jira API error (HTTP 404): Issue does not exist")
}

func (f *fakeClient) AddComment(_ context.Context, key, body string) error {
	f.comments = append(f.comments, key+": "+body)
	return f.failWith
}

func (f *fakeClient) AddWorklog(_ context.Context, key string, seconds int, _, started string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.addedWorklogs = append(f.addedWorklogs, addedWorklog{key: key, seconds: seconds, started: started})
	return nil
}

func (f *fakeClient) GetWorklogs(_ context.Context, key string) ([]jira.Worklog, error) {
	return f.worklogs[key], f.failWith
}

func (f *fakeClient) ListTransitions(context.Context, string) ([]jira.Transition, error) {
	return f.transitions, f.failWith
}

func (f *fakeClient) ApplyTransition(_ context.Context, key, id string) error {
	f.applied = append(f.applied, key+":"+id)
	return f.failWith
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

func TestHandleListAssignedIssues(t *testing.T) {
	client := &fakeClient{assigned: []jira.Issue{
		{Key: "PROJ-1", Summary: "Arreglar login", Status: "In Progress"},
		{Key: "PROJ-2", Summary: "Actualizar docs", Status: "To Do"},
	}}
	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "list_my_issues", `{}`),
		provider.TextResponse("Tienes 2 historias: 1. PROJ-1 Arreglar login, 2. PROJ-2 Actualizar docs"),
	)

	session := newSession()
	outcome := handle(t, mock, client, session, "¿qué historias tengo asignadas?")

	assert.Contains(t, outcome.Text(), "PROJ-1")
	assert.Contains(t, outcome.Text(), "PROJ-2")

	// The search results become the reference candidates.
	memory := session.Memory(assistant.DomainIssue)
	require.Len(t, memory.Candidates.Relevant, 2)
	assert.Equal(t, "PROJ-1", memory.Candidates.Relevant[0].ID)
}

func TestHandleOptionReferenceAfterSearch(t *testing.T) {
	client := &fakeClient{assigned: []jira.Issue{
		{Key: "PROJ-1", Summary: "Arreglar login"},
		{Key: "PROJ-2", Summary: "Actualizar docs"},
	}}
	session := newSession()

	// First turn populates candidates.
	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "list_my_issues", `{}`),
		provider.TextResponse("1. PROJ-1, 2. PROJ-2"),
	)
	handle(t, mock, client, session, "mis historias")

	// "opción 2" resolves against them.
	mock = provider.NewMockProvider(
		provider.ToolCallResponse("c2", "get_issue", `{"reference":"opción 2"}`),
		provider.TextResponse("PROJ-2: Actualizar docs"),
	)
	outcome := handle(t, mock, client, session, "opción 2")

	assert.Contains(t, outcome.Text(), "PROJ-2")
	assert.Equal(t, "PROJ-2", session.Memory(assistant.DomainIssue).Current.ID)
}

func TestHandleAddWorklogNormalizesDateAndDuration(t *testing.T) {
	client := &fakeClient{assigned: []jira.Issue{{Key: "PROJ-1", Summary: "Arreglar login"}}}
	session := newSession()

	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "add_worklog", `{"reference":"PROJ-1","duration":"1h 30m","date":"ayer"}`),
		provider.TextResponse("Imputadas 1h 30m en PROJ-1 el 2024-05-19"),
	)
	handle(t, mock, client, session, "imputa 1h 30m a PROJ-1 de ayer")

	require.Len(t, client.addedWorklogs, 1)
	assert.Equal(t, "PROJ-1", client.addedWorklogs[0].key)
	assert.Equal(t, 5400, client.addedWorklogs[0].seconds)
	assert.Contains(t, client.addedWorklogs[0].started, "2024-05-19")
}

func TestHandleAddWorklogRejectsBareNumber(t *testing.T) {
	client := &fakeClient{}
	session := newSession()

	// The tool fails with a parse error and the model rephrases it.
	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "add_worklog", `{"reference":"PROJ-1","duration":"90"}`),
		provider.TextResponse("¿90 minutos o 90 horas? Indica la unidad, por ejemplo \"90m\"."),
	)
	outcome := handle(t, mock, client, session, "imputa 90 a PROJ-1")

	assert.Empty(t, client.addedWorklogs)
	assert.Contains(t, outcome.Text(), "unidad")
}

func TestHandleWorklogDaySummary(t *testing.T) {
	client := &fakeClient{
		assigned: []jira.Issue{{Key: "PROJ-1"}, {Key: "PROJ-2"}},
		worklogs: map[string][]jira.Worklog{
			"PROJ-1": {
				{IssueKey: "PROJ-1", TimeSpentSeconds: 7200, Started: "2024-05-20T09:00:00.000+0000"},
				{IssueKey: "PROJ-1", TimeSpentSeconds: 3600, Started: "2024-05-17T09:00:00.000+0000"},
			},
			"PROJ-2": {
				{IssueKey: "PROJ-2", TimeSpentSeconds: 5400, Started: "2024-05-20T12:00:00.000+0000"},
			},
		},
	}
	session := newSession()

	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "worklog_day_summary", `{"date":"hoy"}`),
		provider.TextResponse("Llevas 3h 30m hoy, te faltan 4h 30m"),
	)
	agent := New(mock, client)
	session.AppendUser("¿cuántas horas llevo hoy?")
	_, err := agent.Handle(context.Background(), "", session)
	require.NoError(t, err)

	summary, err := agent.daySummary(context.Background(), session.ReferenceDate)
	require.NoError(t, err)
	assert.Equal(t, 12600, summary.TotalSeconds)
	assert.Equal(t, ExpectedDaySeconds-12600, summary.MissingSeconds)
	assert.False(t, summary.Complete)
	assert.Len(t, summary.Entries, 2)
}

func TestHandleApplyTransitionByName(t *testing.T) {
	client := &fakeClient{
		assigned:    []jira.Issue{{Key: "PROJ-1", Summary: "Arreglar login"}},
		transitions: []jira.Transition{{ID: "21", Name: "In Progress"}, {ID: "31", Name: "Done", ToStatus: "Done"}},
	}
	session := newSession()

	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "apply_transition", `{"reference":"PROJ-1","transition":"done"}`),
		provider.TextResponse("PROJ-1 movida a Done"),
	)
	handle(t, mock, client, session, "pasa PROJ-1 a done")

	require.Len(t, client.applied, 1)
	assert.Equal(t, "PROJ-1:31", client.applied[0])
}

func TestHandleAddCommentUsesCurrentItem(t *testing.T) {
	client := &fakeClient{assigned: []jira.Issue{{Key: "PROJ-7", Summary: "Migrar BBDD"}}}
	session := newSession()
	session.Memory(assistant.DomainIssue).SetCurrent(resolve.Candidate{ID: "PROJ-7", Title: "Migrar BBDD"})

	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", "add_comment", `{"reference":"esta","text":"listo en staging"}`),
		provider.TextResponse("Comentario añadido a PROJ-7"),
	)
	handle(t, mock, client, session, "comenta que está listo en staging")

	require.Len(t, client.comments, 1)
	assert.Equal(t, "PROJ-7: listo en staging", client.comments[0])
}

func TestResolveKeyPrefersExplicitKey(t *testing.T) {
	agent := New(provider.NewMockProvider(), &fakeClient{})
	memory := newSession().Memory(assistant.DomainIssue)

	key, err := agent.resolveKey(memory, "proj-42")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-42", key)
}

func TestResolveKeyNoContext(t *testing.T) {
	agent := New(provider.NewMockProvider(), &fakeClient{})
	memory := newSession().Memory(assistant.DomainIssue)

	_, err := agent.resolveKey(memory, "la primera")
	assert.Error(t, err)
}

func TestHandleDecline(t *testing.T) {
	client := &fakeClient{}
	session := newSession()

	mock := provider.NewMockProvider(
		provider.ToolCallResponse("c1", assistant.DeclineToolName, `{"reason":"es una consulta de wiki"}`),
	)
	agent := New(mock, client)
	session.AppendUser("busca la página de onboarding")
	outcome, err := agent.Handle(context.Background(), "", session)
	require.NoError(t, err)
	assert.True(t, outcome.IsDeclined())
}
