package wikiagent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mvaldes/atlasbot/internal/assistant"
	"github.com/mvaldes/atlasbot/internal/assistant/resolve"
	"github.com/mvaldes/atlasbot/internal/assistant/tools"
	"github.com/mvaldes/atlasbot/internal/confluence"
)

// searchOutput is what smart_search hands back to the model: the numbered
// relevant pages plus a count of filtered ones so the model can mention
// them.
type searchOutput struct {
	Relevant      []confluence.Page `json:"relevant"`
	FilteredCount int               `json:"filtered_count"`
	FilteredNote  string            `json:"filtered_note,omitempty"`
}

// buildRegistry binds the agent's operation set to the session's working
// memory.
func (a *Agent) buildRegistry(session *assistant.Session) *tools.Registry {
	memory := session.Memory(assistant.DomainWiki)
	r := tools.NewRegistry()

	r.Register(&tools.Func{
		ToolName:        "list_spaces",
		ToolDescription: "Lista los espacios de Confluence visibles para el usuario.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"limit": map[string]interface{}{"type": "integer"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Limit int `json:"limit"`
			}
			_ = json.Unmarshal(input, &in)

			spaces, err := a.client.ListSpaces(ctx, in.Limit)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			return &tools.Result{
				Success: true,
				Data:    spaces,
				Summary: fmt.Sprintf("%d espacios", len(spaces)),
			}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "smart_search",
		ToolDescription: "Busca páginas wiki por texto. Separa las páginas de ceremonias recurrentes (sprint planning, daily...) de los resultados relevantes. Si el texto es una referencia a resultados anteriores (\"opción 2\", parte de un título) la resuelve directamente.",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"query"},
			"properties": map[string]interface{}{
				"query":       map[string]interface{}{"type": "string"},
				"space":       map[string]interface{}{"type": "string", "description": "Clave de espacio opcional para acotar la búsqueda"},
				"max_results": map[string]interface{}{"type": "integer"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Query      string `json:"query"`
				Space      string `json:"space"`
				MaxResults int    `json:"max_results"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}

			// Reference short-circuit against the previous results.
			if resolved, err := resolve.Resolve(in.Query, memory.Candidates); err == nil {
				memory.SetCurrent(resolved.Candidate)
				return &tools.Result{
					Success: true,
					Data:    resolved.Candidate,
					Summary: fmt.Sprintf("referencia resuelta a %q", resolved.Candidate.Title),
				}, nil
			}

			pages, err := a.client.Search(ctx, in.Query, in.Space, in.MaxResults)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}

			set := resolve.CandidateSet{}
			out := searchOutput{}
			for _, page := range pages {
				if a.filter(page.Title) {
					set.Filtered = append(set.Filtered, pageToCandidate(page))
					out.FilteredCount++
					continue
				}
				set.Relevant = append(set.Relevant, pageToCandidate(page))
				out.Relevant = append(out.Relevant, page)
			}
			memory.SetCandidates(set)

			if out.FilteredCount > 0 {
				out.FilteredNote = fmt.Sprintf("%d páginas de ceremonias ocultas; el usuario puede pedirlas explícitamente", out.FilteredCount)
			}
			return &tools.Result{
				Success: true,
				Data:    out,
				Summary: fmt.Sprintf("%d resultados relevantes, %d filtrados", len(out.Relevant), out.FilteredCount),
			}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "get_page",
		ToolDescription: "Obtiene el contenido de una página. Acepta un id de página, un título exacto (con space) o una referencia a resultados anteriores.",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"reference"},
			"properties": map[string]interface{}{
				"reference": map[string]interface{}{"type": "string"},
				"space":     map[string]interface{}{"type": "string"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Reference string `json:"reference"`
				Space     string `json:"space"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}

			page, err := a.lookupPage(ctx, memory, in.Reference, in.Space)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			memory.SetCurrent(pageToCandidate(*page))
			return &tools.Result{Success: true, Data: page, Summary: page.Title}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "create_page",
		ToolDescription: "Crea una página wiki nueva con cuerpo en formato storage de Confluence.",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []string{"space", "title", "body"},
			"properties": map[string]interface{}{
				"space": map[string]interface{}{"type": "string"},
				"title": map[string]interface{}{"type": "string"},
				"body":  map[string]interface{}{"type": "string"},
			},
		},
		Run: func(ctx context.Context, input json.RawMessage) (*tools.Result, error) {
			var in struct {
				Space string `json:"space"`
				Title string `json:"title"`
				Body  string `json:"body"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}

			page, err := a.client.CreatePage(ctx, in.Space, in.Title, in.Body)
			if err != nil {
				return &tools.Result{Success: false, Error: err.Error()}, nil
			}
			memory.SetCurrent(pageToCandidate(*page))
			return &tools.Result{
				Success: true,
				Data:    page,
				Summary: fmt.Sprintf("página %q creada en %s", page.Title, in.Space),
			}, nil
		},
	})

	r.Register(&tools.Func{
		ToolName:        "get_current_item",
		ToolDescription: "Devuelve la página de la que se está hablando actualmente, si hay alguna.",
		Schema:          map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
		Run: func(context.Context, json.RawMessage) (*tools.Result, error) {
			if memory.Current == nil {
				return &tools.Result{Success: false, Error: "no hay ninguna página seleccionada"}, nil
			}
			return &tools.Result{Success: true, Data: memory.Current, Summary: memory.Current.Title}, nil
		},
	})

	return r
}

// lookupPage resolves a reference to a concrete page: previous results
// first, then numeric page ids, then exact title lookup when a space is
// known.
func (a *Agent) lookupPage(ctx context.Context, memory *assistant.WorkingMemory, reference, space string) (*confluence.Page, error) {
	if resolved, err := resolve.Resolve(reference, memory.Candidates); err == nil {
		return a.client.GetPageByID(ctx, resolved.Candidate.ID)
	}

	if isNumeric(reference) {
		return a.client.GetPageByID(ctx, reference)
	}

	if space != "" {
		page, err := a.client.GetPageByTitle(ctx, space, reference)
		if err != nil {
			return nil, err
		}
		if page != nil {
			return a.client.GetPageByID(ctx, page.ID)
		}
	}

	if memory.Current != nil {
		return a.client.GetPageByID(ctx, memory.Current.ID)
	}
	return nil, fmt.Errorf("no pude identificar la página %q; pide al usuario que aclare a cuál se refiere", reference)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pageToCandidate(page confluence.Page) resolve.Candidate {
	return resolve.Candidate{
		ID:    page.ID,
		Title: page.Title,
		Space: page.SpaceKey,
		URL:   page.URL,
	}
}
