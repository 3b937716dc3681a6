package issueagent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mvaldes/atlasbot/internal/assistant"
	"github.com/mvaldes/atlasbot/internal/assistant/resolve"
	"github.com/mvaldes/atlasbot/internal/assistant/timeparse"
	"github.com/mvaldes/atlasbot/internal/assistant/tools"
	"github.com/mvaldes/atlasbot/internal/jira"
)

// ExpectedDaySeconds is a full working day, used by the day summary.
const ExpectedDaySeconds = 8 * 3600

var issueKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*-\d+$`)

// buildRegistry binds the agent's operation set to the session's working
// memory. A fresh registry is built per turn so closures see the right
// session.
func (a *Agent) buildRegistry(session *assistant.Session) *tools.Registry {
	memory := session.Memory(assistant.DomainIssue)
	r := tools.NewRegistry()

	r.Register(&tools.Func{
		ToolName:        "list_my_issues",
		ToolDescription: "Lista las issues asignadas al usuario actual, ordenadas por actualización reciente.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"max_results": map[string]interface{}{"type": "integer", "description": "Máximo de issues a devolver (por defecto 10)"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				MaxResults int `json:"max_results"`
			}
			_ = json.Unmarshal(input, &in)

			issues, err := a.client.SearchAssigned(ctx, in.MaxResults)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			memory.SetCandidates(issuesToCandidates(issues))
			return &tools.Result{
				Success: true,
				Data:    issues,
				Summary: fmt.Sprintf("%d issues asignadas", len(issues)),
			}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "search_issues",
		ToolDescription: "Busca issues por texto en el título o la descripción.",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"query"},
			"properties": map[string]interface{}{
				"query":       map[string]interface{}{"type": "string"},
				"max_results": map[string]interface{}{"type": "integer"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Query      string `json:"query"`
				MaxResults int    `json:"max_results"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}

			// A query that is itself a reference to earlier results is
			// resolved locally instead of hitting the API.
			if resolved, err := resolve.Resolve(in.Query, memory.Candidates); err == nil {
				memory.SetCurrent(resolved.Candidate)
				return &tools.Result{
					Success: true,
					Data:    resolved.Candidate,
					Summary: fmt.Sprintf("referencia resuelta a %s", resolved.Candidate.ID),
				}, nil
			}

			issues, err := a.client.SearchByText(ctx, in.Query, in.MaxResults)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			memory.SetCandidates(issuesToCandidates(issues))
			return &tools.Result{
				Success: true,
				Data:    issues,
				Summary: fmt.Sprintf("%d issues encontradas para %q", len(issues), in.Query),
			}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "get_issue",
		ToolDescription: "Obtiene los detalles de una issue. Acepta una clave (PROJ-123) o una referencia a resultados anteriores (\"opción 2\", \"la primera\", parte del título).",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"reference"},
			"properties": map[string]interface{}{
				"reference": map[string]interface{}{"type": "string"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Reference string `json:"reference"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}

			key, err := a.resolveKey(memory, in.Reference)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			issue, err := a.client.GetIssue(ctx, key)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			memory.SetCurrent(issueToCandidate(*issue))
			return &tools.Result{Success: true, Data: issue, Summary: issue.Key}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "add_comment",
		ToolDescription: "Añade un comentario a una issue.",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"reference", "text"},
			"properties": map[string]interface{}{
				"reference": map[string]interface{}{"type": "string"},
				"text":      map[string]interface{}{"type": "string"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Reference string `json:"reference"`
				Text      string `json:"text"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			key, err := a.resolveKey(memory, in.Reference)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			if err := a.client.AddComment(ctx, key, in.Text); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			return &tools.Result{Success: true, Summary: fmt.Sprintf("comentario añadido a %s", key)}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "add_worklog",
		ToolDescription: "Imputa tiempo trabajado en una issue. La duración necesita unidad explícita (\"1h 30m\", \"45m\"). La fecha admite expresiones como \"ayer\" o \"lunes pasado\" y por defecto es hoy.",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"reference", "duration"},
			"properties": map[string]interface{}{
				"reference": map[string]interface{}{"type": "string"},
				"duration":  map[string]interface{}{"type": "string"},
				"date":      map[string]interface{}{"type": "string"},
				"comment":   map[string]interface{}{"type": "string"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Reference string `json:"reference"`
				Duration  string `json:"duration"`
				Date      string `json:"date"`
				Comment   string `json:"comment"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}

			key, err := a.resolveKey(memory, in.Reference)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			seconds, err := timeparse.ParseDuration(in.Duration)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			day := session.ReferenceDate
			if in.Date != "" {
				day, err = timeparse.ParseDate(in.Date, session.ReferenceDate)
				if err != nil {
					return &tools.Result{Success: false, Error: err.Error()}, nil
				}
			}

			started := jira.FormatStarted(day.Add(9 * time.Hour))
			if err := a.client.AddWorklog(ctx, key, seconds, in.Comment, started); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			return &tools.Result{
				Success: true,
				Data: map[string]interface{}{
					"issue":   key,
					"seconds": seconds,
					"date":    day.Format("2006-01-02"),
				},
				Summary: fmt.Sprintf("imputadas %s en %s (%s)", jira.FormatSeconds(seconds), key, day.Format("2006-01-02")),
			}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "worklog_day_summary",
		ToolDescription: "Resume las horas imputadas en un día en todas las issues asignadas y cuánto falta hasta la jornada de 8h. La fecha por defecto es hoy.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"date": map[string]interface{}{"type": "string"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Date string `json:"date"`
			}
			_ = json.Unmarshal(input, &in)

			day := session.ReferenceDate
			if in.Date != "" {
				var err error
				day, err = timeparse.ParseDate(in.Date, session.ReferenceDate)
				if err != nil {
					return &tools.Result{Success: false, Error: err.Error()}, nil
				}
			}
			summary, err := a.daySummary(ctx, day)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			return &tools.Result{
				Success: true,
				Data:    summary,
				Summary: fmt.Sprintf("%s imputadas el %s", jira.FormatSeconds(summary.TotalSeconds), summary.Date),
			}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "list_transitions",
		ToolDescription: "Lista los cambios de estado disponibles para una issue.",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"reference"},
			"properties": map[string]interface{}{
				"reference": map[string]interface{}{"type": "string"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Reference string `json:"reference"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			key, err := a.resolveKey(memory, in.Reference)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			transitions, err := a.client.ListTransitions(ctx, key)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			return &tools.Result{
				Success: true,
				Data:    transitions,
				Summary: fmt.Sprintf("%d transiciones para %s", len(transitions), key),
			}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "apply_transition",
		ToolDescription: "Cambia el estado de una issue. transition puede ser el id o el nombre del estado destino.",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"reference", "transition"},
			"properties": map[string]interface{}{
				"reference":  map[string]interface{}{"type": "string"},
				"transition": map[string]interface{}{"type": "string"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Reference  string `json:"reference"`
				Transition string `json:"transition"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			key, err := a.resolveKey(memory, in.Reference)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			transitionID, err := a.matchTransition(ctx, key, in.Transition)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			if err := a.client.ApplyTransition(ctx, key, transitionID); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			return &tools.Result{Success: true, Summary: fmt.Sprintf("transición aplicada a %s", key)}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "get_current_item",
		ToolDescription: "Devuelve la issue de la que se está hablando actualmente, si hay alguna.",
		Schema:          map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
		Run: func(context.Context, json.RawMessage) (*tools.Result, error) {
			if memory.Current == nil {
				return &tools.Result{Success: false, Error: "no hay ninguna issue seleccionada"}, nil
			}
			return &tools.Result{Success: true, Data: memory.Current, Summary: memory.Current.ID}, nil
		},
	})

	return r
}

// resolveKey turns a user reference into an issue key: an explicit key is
// used as-is, anything else goes through the resolver against the last
// search results, falling back to the current item for "this one" style
// references.
func (a *Agent) resolveKey(memory *assistant.WorkingMemory, reference string) (string, error) {
	ref := strings.TrimSpace(reference)
	if issueKeyPattern.MatchString(strings.ToUpper(ref)) {
		return strings.ToUpper(ref), nil
	}

	if resolved, err := resolve.Resolve(ref, memory.Candidates); err == nil {
		memory.SetCurrent(resolved.Candidate)
		return resolved.Candidate.ID, nil
	}

	if memory.Current != nil {
		return memory.Current.ID, nil
	}
	return "", fmt.Errorf("no pude identificar la issue %q; pide al usuario que aclare a cuál se refiere", reference)
}

// matchTransition accepts either a transition id or a case-insensitive
// name/target-status match.
func (a *Agent) matchTransition(ctx context.Context, key, wanted string) (string, error) {
	transitions, err := a.client.ListTransitions(ctx, key)
	if err != nil {
		return "", err
	}
	lowered := strings.ToLower(strings.TrimSpace(wanted))
	for _, t := range transitions {
		if t.ID == wanted || strings.ToLower(t.Name) == lowered || strings.ToLower(t.ToStatus) == lowered {
			return t.ID, nil
		}
	}
	names := make([]string, 0, len(transitions))
	for _, t := range transitions {
		names = append(names, t.Name)
	}
	return "", fmt.Errorf("transición %q no disponible para %s; opciones: %s", wanted, key, strings.Join(names, ", "))
}

// DaySummary aggregates worklogs across assigned issues for one day.
type DaySummary struct {
	Date           string         `json:"date"`
	TotalSeconds   int            `json:"total_seconds"`
	TotalFormatted string         `json:"total_formatted"`
	MissingSeconds int            `json:"missing_seconds"`
	Complete       bool           `json:"complete"`
	Entries        []jira.Worklog `json:"entries"`
}

func (a *Agent) daySummary(ctx context.Context, day time.Time) (*DaySummary, error) {
	issues, err := a.client.SearchAssigned(ctx, 50)
	if err != nil {
		return nil, err
	}

	target := day.Format("2006-01-02")
	summary := &DaySummary{Date: target}
	for _, issue := range issues {
		worklogs, err := a.client.GetWorklogs(ctx, issue.Key)
		if err != nil {
			return nil, err
		}
		for _, w := range worklogs {
			if len(w.Started) >= 10 && w.Started[:10] == target {
				summary.TotalSeconds += w.TimeSpentSeconds
				summary.Entries = append(summary.Entries, w)
			}
		}
	}

	summary.TotalFormatted = jira.FormatSeconds(summary.TotalSeconds)
	if summary.TotalSeconds < ExpectedDaySeconds {
		summary.MissingSeconds = ExpectedDaySeconds - summary.TotalSeconds
	} else {
		summary.Complete = true
	}
	return summary, nil
}

func issuesToCandidates(issues []jira.Issue) resolve.CandidateSet {
	set := resolve.CandidateSet{}
	for _, issue := range issues {
		set.Relevant = append(set.Relevant, issueToCandidate(issue))
	}
	return set
}

func issueToCandidate(issue jira.Issue) resolve.Candidate {
	return resolve.Candidate{
		ID:     issue.Key,
		Title:  issue.Summary,
		Status: issue.Status,
		URL:    issue.URL,
	}
}
