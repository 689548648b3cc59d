package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/contract"
	"github.com/jmvidalr/corredora/core/payment"
)

type contratoRepository struct {
	db     *contratoTable
	pagoDB *pagoTable
}

func NewContratoRepository(db *DB) contract.Repository {
	return &contratoRepository{db: db.contrato, pagoDB: db.pago}
}

func (repo *contratoRepository) query() []contract.Contrato {
	contratos := make([]contract.Contrato, 0, len(repo.db.table))
	for _, ctr := range repo.db.table {
		contratos = append(contratos, *ctr)
	}
	sort.Slice(contratos, func(i, j int) bool { return contratos[i].CreatedAt.After(contratos[j].CreatedAt) })
	return contratos
}

// CreateContrato persists the contract together with its first pending
// installment, dated FechaInicio.
func (repo *contratoRepository) CreateContrato(ctx context.Context, ctr contract.Contrato) (contract.Contrato, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ctr.ID = uuid.New().String()
	repo.db.table[ctr.ID] = &ctr

	repo.pagoDB.Lock()
	defer repo.pagoDB.Unlock()
	pago := payment.Pago{
		ID:              uuid.New().String(),
		ContratoID:      ctr.ID,
		Monto:           ctr.MontoPago,
		FechaProgramada: ctr.FechaInicio,
		Estado:          payment.EstadoPendiente,
		CreatedAt:       ctr.CreatedAt,
	}
	repo.pagoDB.table[pago.ID] = &pago
	return ctr, nil
}

func (repo *contratoRepository) QueryContratos(ctx context.Context, filter *contract.QueryFilter, ordering []core.DBOrdering) ([]contract.Contrato, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	contratos := repo.query()
	if filter == nil || filter.IsEmpty() {
		return contratos, nil
	}

	matches := make([]contract.Contrato, 0, len(contratos))
	for _, ctr := range contratos {
		if filter.ClienteID != "" && ctr.ClienteID != filter.ClienteID {
			continue
		}
		if filter.AgenteID != "" && ctr.AgenteID != filter.AgenteID {
			continue
		}
		if filter.Estado != "" && ctr.Estado != filter.Estado {
			continue
		}
		matches = append(matches, ctr)
	}
	return matches, nil
}

func (repo *contratoRepository) GetContrato(ctx context.Context, id string) (contract.Contrato, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ctr, ok := repo.db.table[id]; ok {
		return *ctr, nil
	}
	return contract.Contrato{}, contract.ErrNotFound
}

func (repo *contratoRepository) UpdateContrato(ctx context.Context, ctr contract.Contrato) (contract.Contrato, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[ctr.ID]
	if !ok {
		return contract.Contrato{}, contract.ErrNotFound
	}
	ctr.HistorialMedico = orig.HistorialMedico
	ctr.Firma = orig.Firma
	ctr.Beneficiarios = orig.Beneficiarios
	repo.db.table[ctr.ID] = &ctr
	return ctr, nil
}

func (repo *contratoRepository) UpdateContratoDocs(ctx context.Context, ctr contract.Contrato) (contract.Contrato, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[ctr.ID]
	if !ok {
		return contract.Contrato{}, contract.ErrNotFound
	}
	orig.Estado = ctr.Estado
	orig.UpdatedAt = ctr.UpdatedAt
	if ctr.HistorialMedico != "" {
		orig.HistorialMedico = ctr.HistorialMedico
	}
	if ctr.Firma != "" {
		orig.Firma = ctr.Firma
	}
	if ctr.Beneficiarios != nil {
		benefs := make([]contract.Beneficiario, 0, len(ctr.Beneficiarios))
		for _, b := range ctr.Beneficiarios {
			b.ID = uuid.New().String()
			b.ContratoID = ctr.ID
			benefs = append(benefs, b)
		}
		orig.Beneficiarios = benefs
	}
	return *orig, nil
}

func (repo *contratoRepository) ClearDocRef(ctx context.Context, id string, field contract.DocField) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	ctr, ok := repo.db.table[id]
	if !ok {
		return contract.ErrNotFound
	}
	switch field {
	case contract.DocHistorialMedico:
		ctr.HistorialMedico = ""
	case contract.DocFirma:
		ctr.Firma = ""
	}
	return nil
}
