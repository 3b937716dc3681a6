package incident

import (
	"fmt"
	"html"
	"strings"
)

// storageBody renders the record as a Confluence storage-format table.
func storageBody(r *Record) string {
	var b strings.Builder
	b.WriteString("<table><tbody>")
	writeRow(&b, "Tipo de incidente", r.Type)
	writeRow(&b, "Fecha", r.Date.Format("2006-01-02"))
	writeRow(&b, "Impacto", r.Impact)
	writeRow(&b, "Prioridad", r.Priority)
	writeRow(&b, "Estado actual", r.Status)
	writeRow(&b, "Unidad de negocio", r.BusinessUnit)
	writeRow(&b, "Usuarios de soporte", strings.Join(r.SupportUsers, ", "))
	if !r.ResolutionDate.IsZero() {
		writeRow(&b, "Fecha de resolución", r.ResolutionDate.Format("2006-01-02"))
	}
	b.WriteString("</tbody></table>")

	b.WriteString("<h2>Descripción del problema</h2>")
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(r.Description))

	if len(r.Actions) > 0 {
		b.WriteString("<h2>Acciones realizadas</h2><ol>")
		for _, action := range r.Actions {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(action))
		}
		b.WriteString("</ol>")
	}

	if r.Notes != "" {
		b.WriteString("<h2>Observaciones</h2>")
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(r.Notes))
	}
	return b.String()
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<tr><th>%s</th><td>%s</td></tr>",
		html.EscapeString(label), html.EscapeString(value))
}
