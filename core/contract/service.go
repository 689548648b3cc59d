package contract

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jmvidalr/corredora/core"
)

var (
	// errors
	ErrNotFound = errors.New("contract not found")
)

type (
	// DocField names a client-submitted file reference on a Contrato.
	DocField string

	Repository interface {
		// CreateContrato persists the contract and its first pending
		// installment (dated FechaInicio) in a single transaction.
		CreateContrato(ctx context.Context, ctr Contrato) (Contrato, error)
		QueryContratos(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Contrato, error)
		GetContrato(ctx context.Context, id string) (Contrato, error)
		UpdateContrato(ctx context.Context, ctr Contrato) (Contrato, error)
		// UpdateContratoDocs updates only the client-owned fields (documents,
		// signature, beneficiaries) and the state; beneficiaries are replaced
		// as a set when non-nil.
		UpdateContratoDocs(ctx context.Context, ctr Contrato) (Contrato, error)
		// ClearDocRef nulls a dangling file reference (file missing on disk).
		ClearDocRef(ctx context.Context, id string, field DocField) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

const (
	DocHistorialMedico = DocField("historial_medico")
	DocFirma           = DocField("firma")
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create validates and persists a new contract in `pendiente`, together with
// its first pending installment.
func (svc *Service) Create(ctx context.Context, nc NewContrato) (Contrato, error) {
	now := time.Now().UTC()
	ctr := Contrato{
		ClienteID:      nc.ClienteID,
		AgenteID:       nc.AgenteID,
		ProductoID:     nc.ProductoID,
		Estado:         EstadoPendiente,
		FechaInicio:    nc.FechaInicio,
		FechaFin:       nc.FechaFin,
		FrecuenciaPago: nc.FrecuenciaPago,
		MontoPago:      nc.MontoPago,
		FormaPago:      nc.FormaPago,
		Banco:          nc.Banco,
		NumeroCuenta:   nc.NumeroCuenta,
		TipoCuenta:     nc.TipoCuenta,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateContrato(ctx, ctr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Contrato, error) {
	return svc.repo.QueryContratos(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Contrato, error) {
	return svc.repo.GetContrato(ctx, id)
}

// Review applies an agent decision (aprobar/rechazar) to the contract.
// Illegal transitions are rejected.
func (svc *Service) Review(ctx context.Context, id string, evento Evento, comentario string) (Contrato, error) {
	ctr, err := svc.repo.GetContrato(ctx, id)
	if err != nil {
		return Contrato{}, err
	}

	next, err := Transition(ctr.Estado, evento)
	if err != nil {
		return Contrato{}, err
	}
	ctr.Estado = next
	ctr.ComentarioRevision = comentario
	ctr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateContrato(ctx, ctr)
}

// SubmitDocs records a client document/signature submission. Only the
// client-owned fields are touched, and the contract always goes (back)
// to `pendiente_revision`.
func (svc *Service) SubmitDocs(ctx context.Context, id string, sd SubmitDocs) (Contrato, error) {
	ctr, err := svc.repo.GetContrato(ctx, id)
	if err != nil {
		return Contrato{}, err
	}

	next, err := Transition(ctr.Estado, EventoReenviarDocs)
	if err != nil {
		return Contrato{}, err
	}
	ctr.Estado = next
	if sd.HistorialMedico != "" {
		ctr.HistorialMedico = sd.HistorialMedico
	}
	if sd.Firma != "" {
		ctr.Firma = sd.Firma
	}
	ctr.Beneficiarios = sd.Beneficiarios
	ctr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateContratoDocs(ctx, ctr)
}

// ClearDocRef removes a stale file reference; called when a referenced file
// turns out to be missing on disk.
func (svc *Service) ClearDocRef(ctx context.Context, id string, field DocField) {
	if err := svc.repo.ClearDocRef(ctx, id, field); err != nil {
		svc.logger.Error("clearing stale document reference", err)
	}
}
