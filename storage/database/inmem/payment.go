package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/payment"
)

type pagoRepository struct {
	db *pagoTable
}

func NewPagoRepository(db *DB) payment.Repository {
	return &pagoRepository{db: db.pago}
}

func (repo *pagoRepository) query() []payment.Pago {
	pagos := make([]payment.Pago, 0, len(repo.db.table))
	for _, pg := range repo.db.table {
		pagos = append(pagos, *pg)
	}
	sort.Slice(pagos, func(i, j int) bool { return pagos[i].FechaProgramada.Before(pagos[j].FechaProgramada) })
	return pagos
}

// CreatePago enforces the at-most-one-pending-installment-per-contract rule
// the SQL store delegates to its partial unique index.
func (repo *pagoRepository) CreatePago(ctx context.Context, pago payment.Pago) (payment.Pago, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if pago.Estado == payment.EstadoPendiente {
		for _, pg := range repo.db.table {
			if pg.ContratoID == pago.ContratoID && pg.Estado == payment.EstadoPendiente {
				return payment.Pago{}, payment.ErrPendingPagoExists
			}
		}
	}

	pago.ID = uuid.New().String()
	repo.db.table[pago.ID] = &pago
	return pago, nil
}

func (repo *pagoRepository) QueryPagos(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Pago, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pagos := repo.query()
	if filter == nil || filter.IsEmpty() {
		return pagos, nil
	}

	matches := make([]payment.Pago, 0, len(pagos))
	for _, pg := range pagos {
		if filter.ContratoID != "" && pg.ContratoID != filter.ContratoID {
			continue
		}
		if filter.Estado != "" && pg.Estado != filter.Estado {
			continue
		}
		matches = append(matches, pg)
	}
	return matches, nil
}

func (repo *pagoRepository) GetPago(ctx context.Context, id string) (payment.Pago, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pg, ok := repo.db.table[id]; ok {
		return *pg, nil
	}
	return payment.Pago{}, payment.ErrNotFound
}

func (repo *pagoRepository) UpdatePago(ctx context.Context, pago payment.Pago) (payment.Pago, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[pago.ID]; !ok {
		return payment.Pago{}, payment.ErrNotFound
	}
	repo.db.table[pago.ID] = &pago
	return pago, nil
}
