package reimbursement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jmvidalr/corredora/core"
)

// Estado is the claim state; aprobado and rechazado are terminal.
type Estado string

const (
	EstadoPendiente = Estado("pendiente")
	EstadoAprobado  = Estado("aprobado")
	EstadoRechazado = Estado("rechazado")
)

// CreadoPor records which role filed the claim. Agent-filed claims are
// self-attested and start approved.
const (
	CreadoPorCliente = "cliente"
	CreadoPorAgente  = "agente"
)

// Reembolso is a client's request to be repaid for a covered expense.
type Reembolso struct {
	ID          string    `json:"id"`
	ClienteID   string    `json:"cliente_id"`
	ContratoID  string    `json:"contrato_id"`
	FechaGasto  time.Time `json:"fecha_gasto"`
	Categoria   string    `json:"categoria"`
	Monto       float64   `json:"monto"`
	Descripcion string    `json:"descripcion,omitempty"`
	Recibo      string    `json:"recibo"` // file store relative path
	Estado      Estado    `json:"estado"`
	CreadoPor   string    `json:"creado_por"`

	ComentarioRevision string     `json:"comentario_revision,omitempty"`
	FechaRevision      *time.Time `json:"fecha_revision,omitempty"`
	CreatedAt          time.Time  `json:"created_at"` // UTC
}

// NewReembolso contains information needed to file a claim. Recibo is the
// persisted receipt path, set by the handler after saving the upload; a
// claim without a receipt is rejected outright.
type NewReembolso struct {
	ContratoID  string    `json:"contrato_id" validate:"required"`
	FechaGasto  time.Time `json:"fecha_gasto" validate:"required"`
	Categoria   string    `json:"categoria" validate:"required,oneof=consulta medicamentos hospitalizacion examenes otro"`
	Monto       float64   `json:"monto" validate:"required,gt=0"`
	Descripcion string    `json:"descripcion"`
	Recibo      string    `json:"recibo" validate:"required"`
}

func (nr *NewReembolso) Validate(validate *validator.Validate) error {
	nr.Descripcion = core.CleanString(nr.Descripcion)
	return validate.Struct(nr)
}

// ReviewReembolso is the agent decision payload.
type ReviewReembolso struct {
	Comentario string `json:"comentario"`
}

type QueryFilter struct {
	ClienteID  string `query:"cliente_id"`
	ContratoID string `query:"contrato_id"`
	Estado     Estado `query:"estado"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ClienteID == "" && qf.ContratoID == "" && qf.Estado == ""
}
