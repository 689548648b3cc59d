package product

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jmvidalr/corredora/core"
)

// TipoSeguro is an insurance line (vida, salud, automotriz, ...).
type TipoSeguro struct {
	ID          string `json:"id"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion,omitempty"`
}

// Producto is a sellable insurance product of a given type.
type Producto struct {
	ID          string    `json:"id"`
	TipoID      string    `json:"tipo_id"`
	Nombre      string    `json:"nombre"`
	Descripcion string    `json:"descripcion,omitempty"`
	PrimaBase   float64   `json:"prima_base"`
	Cobertura   float64   `json:"cobertura"`
	Activo      *bool     `json:"activo"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (p *Producto) SetActivo(activo bool) {
	p.Activo = &activo
}

type NewTipoSeguro struct {
	Nombre      string `json:"nombre" validate:"required"`
	Descripcion string `json:"descripcion"`
}

func (nt *NewTipoSeguro) Validate(validate *validator.Validate) error {
	nt.Nombre = core.CleanString(nt.Nombre)
	nt.Descripcion = core.CleanString(nt.Descripcion)
	return validate.Struct(nt)
}

type NewProducto struct {
	TipoID      string  `json:"tipo_id" validate:"required"`
	Nombre      string  `json:"nombre" validate:"required"`
	Descripcion string  `json:"descripcion"`
	PrimaBase   float64 `json:"prima_base" validate:"required,gt=0"`
	Cobertura   float64 `json:"cobertura" validate:"required,gt=0"`
}

func (np *NewProducto) Validate(validate *validator.Validate) error {
	np.Nombre = core.CleanString(np.Nombre)
	np.Descripcion = core.CleanString(np.Descripcion)
	return validate.Struct(np)
}

type UpdateProducto struct {
	Nombre      string  `json:"nombre"`
	Descripcion string  `json:"descripcion"`
	PrimaBase   float64 `json:"prima_base" validate:"omitempty,gt=0"`
	Cobertura   float64 `json:"cobertura" validate:"omitempty,gt=0"`
	Activo      *bool   `json:"activo"`
}

func (up *UpdateProducto) Validate(orig Producto, validate *validator.Validate) error {
	if nombre := core.CleanString(up.Nombre); nombre != "" {
		up.Nombre = nombre
	} else {
		up.Nombre = orig.Nombre
	}
	if descripcion := core.CleanString(up.Descripcion); descripcion != "" {
		up.Descripcion = descripcion
	} else {
		up.Descripcion = orig.Descripcion
	}
	if up.PrimaBase == 0 {
		up.PrimaBase = orig.PrimaBase
	}
	if up.Cobertura == 0 {
		up.Cobertura = orig.Cobertura
	}
	return validate.Struct(up)
}

type QueryFilter struct {
	Search string `query:"search"`
	TipoID string `query:"tipo_id"`
	Activo *bool  `query:"activo"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.TipoID == "" && qf.Activo == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
