package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/contract"
)

var (
	// errors
	ErrNotFound = errors.New("payment not found")
	// ErrPendingPagoExists signals the one-pending-installment-per-contract
	// storage invariant; the scheduler treats it as "already scheduled".
	ErrPendingPagoExists = errors.New("a pending payment already exists for this contract")
)

type (
	Repository interface {
		CreatePago(ctx context.Context, pago Pago) (Pago, error)
		QueryPagos(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Pago, error)
		GetPago(ctx context.Context, id string) (Pago, error)
		UpdatePago(ctx context.Context, pago Pago) (Pago, error)
	}

	Service struct {
		repo    Repository
		ctrRepo contract.Repository
		logger  core.Logger
	}
)

func NewService(repo Repository, ctrRepo contract.Repository, logger core.Logger) *Service {
	return &Service{repo: repo, ctrRepo: ctrRepo, logger: logger}
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Pago, error) {
	return svc.repo.QueryPagos(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Pago, error) {
	return svc.repo.GetPago(ctx, id)
}

// Register marks a pending installment as paid and schedules the next one.
// A failed reschedule is logged but never propagated: it must not roll back
// a successful payment.
func (svc *Service) Register(ctx context.Context, id string, rp RegisterPago) (Pago, error) {
	pago, err := svc.repo.GetPago(ctx, id)
	if err != nil {
		return Pago{}, err
	}
	if pago.Estado == EstadoCompletado {
		return Pago{}, core.NewValidationError(errors.New("payment already registered"))
	}

	now := time.Now().UTC()
	pago.Estado = EstadoCompletado
	pago.FechaPagado = &now
	pago.MetodoPago = rp.MetodoPago
	pago.Referencia = rp.Referencia

	pago, err = svc.repo.UpdatePago(ctx, pago)
	if err != nil {
		return Pago{}, err
	}

	svc.scheduleNext(ctx, pago)
	return pago, nil
}

// NextScheduledDate computes the due date of the installment following one
// scheduled at `from`, per the contract's billing frequency.
func NextScheduledDate(frecuencia contract.Frecuencia, from time.Time) time.Time {
	return from.AddDate(0, frecuencia.Months(), 0)
}

// scheduleNext inserts the next pending installment for the contract of the
// just-completed payment. Fire-and-forget: every failure path is swallowed
// and logged.
func (svc *Service) scheduleNext(ctx context.Context, completed Pago) {
	ctr, err := svc.ctrRepo.GetContrato(ctx, completed.ContratoID)
	if err != nil {
		if errors.Cause(err) == contract.ErrNotFound {
			return
		}
		svc.logger.Error(fmt.Sprintf("scheduling next payment for contract %s: %v", completed.ContratoID, err), err)
		return
	}

	next := Pago{
		ContratoID:      ctr.ID,
		Monto:           ctr.MontoPago,
		FechaProgramada: NextScheduledDate(ctr.FrecuenciaPago, completed.FechaProgramada),
		Estado:          EstadoPendiente,
		CreatedAt:       time.Now().UTC(),
	}
	if _, err := svc.repo.CreatePago(ctx, next); err != nil {
		if errors.Cause(err) == ErrPendingPagoExists {
			svc.logger.Info(fmt.Sprintf("next payment already scheduled for contract %s", ctr.ID))
			return
		}
		svc.logger.Error(fmt.Sprintf("scheduling next payment for contract %s: %v", ctr.ID, err), err)
	}
}
