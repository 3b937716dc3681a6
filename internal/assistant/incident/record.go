package incident

import (
	"fmt"
	"strings"
	"time"
)

// Record accumulates the answers of one incident dialogue.
type Record struct {
	Type           string
	Date           time.Time // pre-filled from the session reference date
	Impact         string
	Priority       string
	Status         string
	BusinessUnit   string
	SupportUsers   []string
	Description    string
	Actions        []string
	ResolutionDate time.Time // zero when still pending
	Notes          string
}

// requiredSlots must be non-empty before the record can be submitted.
var requiredSlots = []struct {
	name  string
	empty func(*Record) bool
}{
	{"tipo_incidente", func(r *Record) bool { return r.Type == "" }},
	{"fecha", func(r *Record) bool { return r.Date.IsZero() }},
	{"impacto", func(r *Record) bool { return r.Impact == "" }},
	{"prioridad", func(r *Record) bool { return r.Priority == "" }},
	{"estado_actual", func(r *Record) bool { return r.Status == "" }},
}

// MissingRequired returns the names of required slots still empty.
func (r *Record) MissingRequired() []string {
	var missing []string
	for _, slot := range requiredSlots {
		if slot.empty(r) {
			missing = append(missing, slot.name)
		}
	}
	return missing
}

// setSlot stores a scalar answer by slot name.
func (r *Record) setSlot(slot, value string) {
	switch slot {
	case "tipo_incidente":
		r.Type = value
	case "impacto":
		r.Impact = value
	case "prioridad":
		r.Priority = value
	case "estado_actual":
		r.Status = value
	case "unidad_negocio":
		r.BusinessUnit = value
	case "descripcion_problema":
		r.Description = value
	case "observaciones":
		r.Notes = value
	}
}

// setList stores a repeatable-list answer by slot name.
func (r *Record) setList(slot string, values []string) {
	switch slot {
	case "usuarios_soporte":
		r.SupportUsers = values
	case "acciones_realizadas":
		r.Actions = values
	}
}

// setDate stores a date answer by slot name.
func (r *Record) setDate(slot string, value time.Time) {
	if slot == "fecha_resolucion" {
		r.ResolutionDate = value
	}
}

// Summary renders the record for the confirmation step.
func (r *Record) Summary() string {
	var b strings.Builder
	b.WriteString("Resumen del incidente:\n")
	fmt.Fprintf(&b, "- Tipo: %s\n", r.Type)
	fmt.Fprintf(&b, "- Fecha: %s\n", r.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Impacto: %s\n", r.Impact)
	fmt.Fprintf(&b, "- Prioridad: %s\n", r.Priority)
	fmt.Fprintf(&b, "- Estado: %s\n", r.Status)
	if r.BusinessUnit != "" {
		fmt.Fprintf(&b, "- Unidad de negocio: %s\n", r.BusinessUnit)
	}
	if len(r.SupportUsers) > 0 {
		fmt.Fprintf(&b, "- Usuarios de soporte: %s\n", strings.Join(r.SupportUsers, ", "))
	}
	if r.Description != "" {
		fmt.Fprintf(&b, "- Descripción: %s\n", r.Description)
	}
	for i, action := range r.Actions {
		fmt.Fprintf(&b, "- Acción %d: %s\n", i+1, action)
	}
	if !r.ResolutionDate.IsZero() {
		fmt.Fprintf(&b, "- Fecha de resolución: %s\n", r.ResolutionDate.Format("2006-01-02"))
	}
	if r.Notes != "" {
		fmt.Fprintf(&b, "- Observaciones: %s\n", r.Notes)
	}
	return b.String()
}

// PageTitle builds the wiki page title for the record.
func (r *Record) PageTitle() string {
	return fmt.Sprintf("Incidente - %s - %s", r.Type, r.Date.Format("2006-01-02"))
}
