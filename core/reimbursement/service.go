package reimbursement

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/contract"
	"github.com/jmvidalr/corredora/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("reimbursement not found")
	ErrAlreadyDecided = errors.New("reimbursement has already been decided")
)

type (
	Repository interface {
		CreateReembolso(ctx context.Context, rmb Reembolso) (Reembolso, error)
		QueryReembolsos(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Reembolso, error)
		GetReembolso(ctx context.Context, id string) (Reembolso, error)
		UpdateReembolso(ctx context.Context, rmb Reembolso) (Reembolso, error)
		// ClearRecibo nulls a dangling receipt reference (file missing on disk).
		ClearRecibo(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		ctrRepo contract.Repository
		usrRepo user.Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, ctrRepo contract.Repository, usrRepo user.Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		ctrRepo: ctrRepo,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Create files a claim against a contract. Client-filed claims start
// `pendiente`; claims filed by an agent are self-attested and start
// `aprobado`.
func (svc *Service) Create(ctx context.Context, nr NewReembolso, creador user.User) (Reembolso, error) {
	ctr, err := svc.ctrRepo.GetContrato(ctx, nr.ContratoID)
	if err != nil {
		if errors.Cause(err) == contract.ErrNotFound {
			return Reembolso{}, core.NewValidationError(err, core.FieldError{Field: "contrato_id", Error: err.Error()})
		}
		return Reembolso{}, err
	}

	now := time.Now().UTC()
	rmb := Reembolso{
		ClienteID:   ctr.ClienteID,
		ContratoID:  ctr.ID,
		FechaGasto:  nr.FechaGasto,
		Categoria:   nr.Categoria,
		Monto:       nr.Monto,
		Descripcion: nr.Descripcion,
		Recibo:      nr.Recibo,
		Estado:      EstadoPendiente,
		CreadoPor:   CreadoPorCliente,
		CreatedAt:   now,
	}
	if creador.IsStaff() {
		rmb.Estado = EstadoAprobado
		rmb.CreadoPor = CreadoPorAgente
		rmb.FechaRevision = &now
	}
	return svc.repo.CreateReembolso(ctx, rmb)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Reembolso, error) {
	return svc.repo.QueryReembolsos(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Reembolso, error) {
	return svc.repo.GetReembolso(ctx, id)
}

// Approve resolves a pending claim as aprobado. Terminal: once decided, a
// claim cannot be re-decided.
func (svc *Service) Approve(ctx context.Context, id, comentario string) (Reembolso, error) {
	return svc.review(ctx, id, EstadoAprobado, comentario)
}

// Reject resolves a pending claim as rechazado.
func (svc *Service) Reject(ctx context.Context, id, comentario string) (Reembolso, error) {
	return svc.review(ctx, id, EstadoRechazado, comentario)
}

func (svc *Service) review(ctx context.Context, id string, estado Estado, comentario string) (Reembolso, error) {
	rmb, err := svc.repo.GetReembolso(ctx, id)
	if err != nil {
		return Reembolso{}, err
	}
	if rmb.Estado != EstadoPendiente {
		return Reembolso{}, core.NewValidationError(ErrAlreadyDecided)
	}

	now := time.Now().UTC()
	rmb.Estado = estado
	rmb.ComentarioRevision = comentario
	rmb.FechaRevision = &now

	rmb, err = svc.repo.UpdateReembolso(ctx, rmb)
	if err != nil {
		return Reembolso{}, err
	}
	svc.sendDecisionMail(ctx, rmb)
	return rmb, nil
}

// ClearRecibo removes a stale receipt reference; called when the receipt
// file turns out to be missing on disk.
func (svc *Service) ClearRecibo(ctx context.Context, id string) {
	if err := svc.repo.ClearRecibo(ctx, id); err != nil {
		svc.logger.Error("clearing stale receipt reference", err)
	}
}

func (svc *Service) sendDecisionMail(ctx context.Context, rmb Reembolso) {
	cliente, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: rmb.ClienteID})
	if err != nil || cliente.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: cliente.Nombre + " " + cliente.Apellido, Address: cliente.Email}},
		Subject: fmt.Sprintf("Tu solicitud de reembolso fue %s", rmb.Estado),
		Body: fmt.Sprintf(
			"Hola %s,\n\nTu solicitud de reembolso por $%.2f (%s) fue %s.\n\nComentario: %s",
			cliente.Nombre, rmb.Monto, rmb.Categoria, rmb.Estado, rmb.ComentarioRevision,
		),
	})
}
