package contract

import (
	"fmt"

	"github.com/jmvidalr/corredora/core"
)

// Estado is the contract lifecycle state.
type Estado string

const (
	EstadoPendiente         = Estado("pendiente")
	EstadoActivo            = Estado("activo")
	EstadoRechazado         = Estado("rechazado")
	EstadoPendienteRevision = Estado("pendiente_revision")
)

// Evento drives a lifecycle transition.
type Evento string

const (
	// EventoAprobar activates a contract under review.
	EventoAprobar = Evento("aprobar")
	// EventoRechazar rejects a contract under review.
	EventoRechazar = Evento("rechazar")
	// EventoReenviarDocs is the client re-submitting documents or a
	// signature; it always sends the contract back to review.
	EventoReenviarDocs = Evento("reenviar_documentos")
)

var transitions = map[Estado]map[Evento]Estado{
	EstadoPendiente: {
		EventoAprobar:      EstadoActivo,
		EventoRechazar:     EstadoRechazado,
		EventoReenviarDocs: EstadoPendienteRevision,
	},
	EstadoPendienteRevision: {
		EventoAprobar:      EstadoActivo,
		EventoRechazar:     EstadoRechazado,
		EventoReenviarDocs: EstadoPendienteRevision,
	},
	// approved and rejected contracts can only go back through review
	EstadoActivo: {
		EventoReenviarDocs: EstadoPendienteRevision,
	},
	EstadoRechazado: {
		EventoReenviarDocs: EstadoPendienteRevision,
	},
}

// Transition returns the state that results from applying evento to current.
// Illegal transitions (eg. approving a rejected contract without re-review)
// are rejected with a validation error.
func Transition(current Estado, evento Evento) (Estado, error) {
	if next, ok := transitions[current][evento]; ok {
		return next, nil
	}
	return current, core.NewValidationError(
		fmt.Errorf("cannot apply %q to a contract in state %q", evento, current),
	)
}
