package contract

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/jmvidalr/corredora/core"
)

// Frecuencia is the billing cadence of a contract.
type Frecuencia string

const (
	FrecuenciaMensual    = Frecuencia("mensual")
	FrecuenciaTrimestral = Frecuencia("trimestral")
	FrecuenciaSemestral  = Frecuencia("semestral")
)

// Months returns the number of calendar months between installments.
func (f Frecuencia) Months() int {
	switch f {
	case FrecuenciaMensual:
		return 1
	case FrecuenciaTrimestral:
		return 3
	case FrecuenciaSemestral:
		return 6
	}
	return 0
}

// FormaPago is how the client pays the installments.
type FormaPago string

const (
	FormaPagoTransferencia = FormaPago("transferencia")
	FormaPagoTarjeta       = FormaPago("tarjeta")
	FormaPagoEfectivo      = FormaPago("efectivo")
)

type Contrato struct {
	ID          string    `json:"id"`
	ClienteID   string    `json:"cliente_id"`
	AgenteID    string    `json:"agente_id,omitempty"`
	ProductoID  string    `json:"producto_id"`
	Estado      Estado    `json:"estado"`
	FechaInicio time.Time `json:"fecha_inicio"`
	FechaFin    time.Time `json:"fecha_fin"`

	FrecuenciaPago Frecuencia `json:"frecuencia_pago"`
	MontoPago      float64    `json:"monto_pago"`
	FormaPago      FormaPago  `json:"forma_pago"`

	// bank account; required when FormaPago == transferencia
	Banco        string `json:"banco,omitempty"`
	NumeroCuenta string `json:"numero_cuenta,omitempty"`
	TipoCuenta   string `json:"tipo_cuenta,omitempty"`

	// client-submitted documents (file store relative paths)
	HistorialMedico string `json:"historial_medico,omitempty"`
	Firma           string `json:"firma,omitempty"`

	Beneficiarios []Beneficiario `json:"beneficiarios"`

	ComentarioRevision string    `json:"comentario_revision,omitempty"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
}

type Beneficiario struct {
	ID         string `json:"id"`
	ContratoID string `json:"contrato_id"`
	Nombre     string `json:"nombre" validate:"required"`
	Parentesco string `json:"parentesco" validate:"required"`
	Porcentaje int    `json:"porcentaje" validate:"required,gt=0,lte=100"`
}

// NewContrato contains information needed to create a new Contrato.
// The contract starts in `pendiente` with its first installment scheduled
// on FechaInicio.
type NewContrato struct {
	ClienteID   string    `json:"cliente_id" validate:"required"`
	AgenteID    string    `json:"agente_id"`
	ProductoID  string    `json:"producto_id" validate:"required"`
	FechaInicio time.Time `json:"fecha_inicio" validate:"required"`
	FechaFin    time.Time `json:"fecha_fin" validate:"required,gtfield=FechaInicio"`

	FrecuenciaPago Frecuencia `json:"frecuencia_pago" validate:"required,oneof=mensual trimestral semestral"`
	MontoPago      float64    `json:"monto_pago" validate:"required,gt=0"`
	FormaPago      FormaPago  `json:"forma_pago" validate:"required,oneof=transferencia tarjeta efectivo"`

	Banco        string `json:"banco"`
	NumeroCuenta string `json:"numero_cuenta"`
	TipoCuenta   string `json:"tipo_cuenta"`
}

func (nc *NewContrato) Validate(validate *validator.Validate) error {
	nc.Banco = core.CleanString(nc.Banco)
	nc.NumeroCuenta = core.CleanString(nc.NumeroCuenta)
	nc.TipoCuenta = core.CleanString(nc.TipoCuenta)
	return validate.Struct(nc)
}

// SubmitDocs is the client document/signature submission payload.
// File paths are set by the handler after persisting the uploads.
type SubmitDocs struct {
	HistorialMedico string         `json:"historial_medico"`
	Firma           string         `json:"firma"`
	Beneficiarios   []Beneficiario `json:"beneficiarios" validate:"omitempty,dive"`
}

func (sd *SubmitDocs) Validate(validate *validator.Validate) error {
	return validate.Struct(sd)
}

// ReviewContrato is the agent decision payload.
type ReviewContrato struct {
	Comentario string `json:"comentario"`
}

type QueryFilter struct {
	ClienteID string `query:"cliente_id"`
	AgenteID  string `query:"agente_id"`
	Estado    Estado `query:"estado"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ClienteID == "" && qf.AgenteID == "" && qf.Estado == ""
}

var bankRequiredTag = "banco_requerido"
var bankRequiredText = "bank account details are required when paying by transferencia"

// InitValidators registers the contract package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newContratoStructValidation, NewContrato{})
	core.RegisterCustomTranslation(validate, translator, bankRequiredTag, bankRequiredText)
}

// newContratoStructValidation enforces the transferencia bank-details rule.
func newContratoStructValidation(sl validator.StructLevel) {
	nc, ok := sl.Current().Interface().(NewContrato)
	if !ok || nc.FormaPago != FormaPagoTransferencia {
		return
	}
	if nc.Banco == "" {
		sl.ReportError(nc.Banco, "banco", "Banco", bankRequiredTag, "")
	}
	if nc.NumeroCuenta == "" {
		sl.ReportError(nc.NumeroCuenta, "numero_cuenta", "NumeroCuenta", bankRequiredTag, "")
	}
	if nc.TipoCuenta == "" {
		sl.ReportError(nc.TipoCuenta, "tipo_cuenta", "TipoCuenta", bankRequiredTag, "")
	}
}
