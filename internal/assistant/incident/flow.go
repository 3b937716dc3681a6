package incident

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mvaldes/atlasbot/internal/assistant/timeparse"
	"github.com/mvaldes/atlasbot/internal/confluence"
	"github.com/mvaldes/atlasbot/internal/logging"
)

// State is the dialogue's progress.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateConfirming
	StateCompleted
	StateCancelled
)

// PageCreator creates the incident page; the wiki client satisfies it.
type PageCreator interface {
	CreatePage(ctx context.Context, spaceKey, title, storageBody string) (*confluence.Page, error)
}

// cancelKeywords abort the dialogue from any state.
var cancelKeywords = []string{"cancelar", "cancela", "olvídalo", "olvidalo", "déjalo", "dejalo", "salir"}

// Flow drives one incident-report dialogue. One instance serves one
// session; a finished flow can be restarted with Start.
type Flow struct {
	creator PageCreator
	space   string
	logger  *logging.Logger

	state         State
	step          int
	record        *Record
	listBuffer    []string
	referenceDate time.Time
}

// NewFlow creates a flow that submits pages to the given space.
func NewFlow(creator PageCreator, space string) *Flow {
	return &Flow{
		creator: creator,
		space:   space,
		logger:  logging.GetLogger("incident-flow"),
	}
}

// CurrentState returns the current dialogue state.
func (f *Flow) CurrentState() State {
	return f.state
}

// Record returns the record under construction, nil outside a dialogue.
func (f *Flow) Record() *Record {
	return f.record
}

// Active implements assistant.IncidentFlow.
func (f *Flow) Active() bool {
	return f.state == StateCollecting || f.state == StateConfirming
}

// Start implements assistant.IncidentFlow: it begins a fresh dialogue
// with the incident date pre-filled and returns the first question.
func (f *Flow) Start(_ context.Context, referenceDate time.Time) string {
	f.state = StateCollecting
	f.step = 0
	f.listBuffer = nil
	f.referenceDate = referenceDate
	f.record = &Record{Date: referenceDate}
	f.logger.InfoWithFields("incident dialogue started",
		logging.Field("date", referenceDate.Format("2006-01-02")))
	return "Vamos a registrar el incidente. Puedes escribir \"cancelar\" en cualquier momento.\n\n" + promptFor(questions[0])
}

// Handle implements assistant.IncidentFlow: it consumes one user reply
// and returns the next prompt.
func (f *Flow) Handle(ctx context.Context, message string) string {
	if isCancel(message) {
		f.state = StateCancelled
		f.record = nil
		f.listBuffer = nil
		return "Incidente cancelado. No se ha guardado nada."
	}

	switch f.state {
	case StateCollecting:
		return f.collect(message)
	case StateConfirming:
		return f.confirm(ctx, message)
	default:
		return "No hay ningún registro de incidente en curso."
	}
}

// collect validates the reply against the current question and advances.
// An invalid reply re-asks the same question without advancing.
func (f *Flow) collect(message string) string {
	q := questions[f.step]
	reply := strings.TrimSpace(message)

	switch q.Type {
	case FreeText, MultiLine:
		if reply == "" {
			return promptFor(q)
		}
		if q.Optional && isNegative(reply) {
			reply = ""
		}
		f.record.setSlot(q.Slot, reply)

	case SingleChoice:
		option, ok := matchOption(reply, q.Options)
		if !ok {
			return fmt.Sprintf("No he reconocido %q.\n%s", reply, promptFor(q))
		}
		f.record.setSlot(q.Slot, option)

	case DateAnswer:
		if q.Optional && isNegative(reply) {
			break
		}
		parsed, err := timeparse.ParseDate(reply, f.referenceDate)
		if err != nil {
			return fmt.Sprintf("No he entendido la fecha %q.\n%s", reply, promptFor(q))
		}
		f.record.setDate(q.Slot, parsed)

	case RepeatableList:
		if reply != "" && !isNegative(reply) {
			f.listBuffer = append(f.listBuffer, reply)
			return q.FollowUp
		}
		f.record.setList(q.Slot, f.listBuffer)
		f.listBuffer = nil
	}

	return f.advance()
}

// advance moves to the next question or to confirmation.
func (f *Flow) advance() string {
	f.step++
	if f.step < len(questions) {
		return promptFor(questions[f.step])
	}
	f.state = StateConfirming
	return f.record.Summary() + "\n¿Es correcto? (sí/no)"
}

// confirm handles the final yes/no step. A rejection restarts the whole
// questionnaire; submission failures keep the record so the user can
// retry without re-entering everything.
func (f *Flow) confirm(ctx context.Context, message string) string {
	switch {
	case isAffirmative(message):
		return f.submit(ctx)
	case isRejection(message):
		ref := f.referenceDate
		f.record = &Record{Date: ref}
		f.step = 0
		f.listBuffer = nil
		f.state = StateCollecting
		return "De acuerdo, empecemos de nuevo.\n\n" + promptFor(questions[0])
	default:
		return "Por favor responde \"sí\" para registrar el incidente o \"no\" para corregirlo."
	}
}

func (f *Flow) submit(ctx context.Context) string {
	if missing := f.record.MissingRequired(); len(missing) > 0 {
		return fmt.Sprintf("Faltan campos obligatorios: %s. Responde \"no\" para corregir el registro.", strings.Join(missing, ", "))
	}

	page, err := f.creator.CreatePage(ctx, f.space, f.record.PageTitle(), storageBody(f.record))
	if err != nil {
		f.logger.ErrorWithErr("incident page creation failed", err)
		return "No he podido crear la página del incidente. Tus respuestas siguen guardadas; responde \"sí\" para reintentar."
	}

	f.state = StateCompleted
	reply := fmt.Sprintf("Incidente registrado: %s", page.Title)
	if page.URL != "" {
		reply += "\n" + page.URL
	}
	f.record = nil
	return reply
}

func isCancel(message string) bool {
	lowered := strings.ToLower(strings.TrimSpace(message))
	for _, kw := range cancelKeywords {
		if lowered == kw {
			return true
		}
	}
	return false
}

func isAffirmative(message string) bool {
	switch strings.ToLower(strings.TrimSpace(message)) {
	case "sí", "si", "s", "correcto", "vale", "ok", "confirmo", "confirmar", "adelante":
		return true
	}
	return false
}

func isRejection(message string) bool {
	switch strings.ToLower(strings.TrimSpace(message)) {
	case "no", "corregir", "corrige", "mal", "incorrecto":
		return true
	}
	return false
}
