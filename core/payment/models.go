package payment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jmvidalr/corredora/core"
)

// Estado is the installment state.
type Estado string

const (
	EstadoPendiente  = Estado("pendiente")
	EstadoCompletado = Estado("completado")
)

// Pago is one billing-period installment tied to a contract.
type Pago struct {
	ID              string     `json:"id"`
	ContratoID      string     `json:"contrato_id"`
	Monto           float64    `json:"monto"`
	FechaProgramada time.Time  `json:"fecha_programada"`
	FechaPagado     *time.Time `json:"fecha_pagado,omitempty"`
	Estado          Estado     `json:"estado"`
	MetodoPago      string     `json:"metodo_pago,omitempty"`
	Referencia      string     `json:"referencia,omitempty"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
}

// RegisterPago is the payload marking a pending installment as paid.
type RegisterPago struct {
	MetodoPago string `json:"metodo_pago" validate:"required,oneof=transferencia tarjeta efectivo"`
	Referencia string `json:"referencia"`
}

func (rp *RegisterPago) Validate(validate *validator.Validate) error {
	rp.Referencia = core.CleanString(rp.Referencia)
	return validate.Struct(rp)
}

type QueryFilter struct {
	ContratoID string `query:"contrato_id"`
	Estado     Estado `query:"estado"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ContratoID == "" && qf.Estado == ""
}
