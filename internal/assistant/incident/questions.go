// Package incident implements the guided incident-report dialogue: a
// fixed questionnaire collected step by step, confirmed with the user and
// submitted as a wiki page.
package incident

import "strings"

// QuestionType classifies how an answer is validated.
type QuestionType int

const (
	FreeText QuestionType = iota
	MultiLine
	SingleChoice
	DateAnswer
	RepeatableList
)

// Question is one step of the incident questionnaire.
type Question struct {
	Slot     string
	Prompt   string
	Type     QuestionType
	Options  []string // SingleChoice only
	FollowUp string   // RepeatableList only, asked after each entry
	Optional bool     // may be skipped with "no"/"ninguna"
}

// questions is the fixed, ordered incident questionnaire. The incident
// date is not asked; it is pre-filled from the session's reference date.
var questions = []Question{
	{
		Slot:   "tipo_incidente",
		Prompt: "¿Qué tipo de incidente es? (por ejemplo: caída de sistema, error de aplicación, problema de red)",
		Type:   FreeText,
	},
	{
		Slot:    "impacto",
		Prompt:  "¿Cuál es el impacto del incidente?",
		Type:    SingleChoice,
		Options: []string{"Alto", "Medio", "Bajo"},
	},
	{
		Slot:    "prioridad",
		Prompt:  "¿Qué prioridad tiene?",
		Type:    SingleChoice,
		Options: []string{"Alta", "Media", "Baja"},
	},
	{
		Slot:    "estado_actual",
		Prompt:  "¿En qué estado está el incidente?",
		Type:    SingleChoice,
		Options: []string{"Pendiente", "En Progreso", "Resuelto"},
	},
	{
		Slot:    "unidad_negocio",
		Prompt:  "¿A qué unidad de negocio afecta?",
		Type:    SingleChoice,
		Options: []string{"CROSS UNIDADES", "UNTM", "UNAONTEC", "PLACAS - SMT"},
	},
	{
		Slot:     "usuarios_soporte",
		Prompt:   "¿Qué usuarios están dando soporte? Indica uno por mensaje.",
		Type:     RepeatableList,
		FollowUp: "¿Algún usuario más? (responde \"no\" para continuar)",
		Optional: true,
	},
	{
		Slot:   "descripcion_problema",
		Prompt: "Describe el problema con el máximo detalle posible.",
		Type:   MultiLine,
	},
	{
		Slot:     "acciones_realizadas",
		Prompt:   "¿Qué acciones se han realizado? Indica una por mensaje (qué se hizo y su resultado).",
		Type:     RepeatableList,
		FollowUp: "¿Alguna acción más? (responde \"no\" para continuar)",
		Optional: true,
	},
	{
		Slot:     "fecha_resolucion",
		Prompt:   "¿Cuándo se resolvió o se espera resolver? (por ejemplo \"hoy\", \"ayer\", \"25/05/2024\"; responde \"pendiente\" si no hay fecha)",
		Type:     DateAnswer,
		Optional: true,
	},
	{
		Slot:     "observaciones",
		Prompt:   "¿Alguna observación adicional? (responde \"no\" si no hay)",
		Type:     FreeText,
		Optional: true,
	},
}

// promptFor renders a question, appending the option list for choices.
func promptFor(q Question) string {
	if q.Type != SingleChoice {
		return q.Prompt
	}
	var b strings.Builder
	b.WriteString(q.Prompt)
	b.WriteString("\nOpciones: ")
	b.WriteString(strings.Join(q.Options, " / "))
	return b.String()
}

// matchOption matches a reply against a choice list, exact first and then
// case-insensitive substring in either direction. Returns the canonical
// option text.
func matchOption(reply string, options []string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(reply))
	if lowered == "" {
		return "", false
	}
	for _, opt := range options {
		if strings.EqualFold(opt, strings.TrimSpace(reply)) {
			return opt, true
		}
	}
	for _, opt := range options {
		loweredOpt := strings.ToLower(opt)
		if strings.Contains(loweredOpt, lowered) || strings.Contains(lowered, loweredOpt) {
			return opt, true
		}
	}
	return "", false
}

// isNegative recognizes replies that close an optional question or a
// repeatable list.
func isNegative(reply string) bool {
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "no", "ninguno", "ninguna", "nada", "listo", "ya", "pendiente", "n/a":
		return true
	}
	return false
}
