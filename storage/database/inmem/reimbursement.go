package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/reimbursement"
)

type reembolsoRepository struct {
	db *reembolsoTable
}

func NewReembolsoRepository(db *DB) reimbursement.Repository {
	return &reembolsoRepository{db: db.reembolso}
}

func (repo *reembolsoRepository) query() []reimbursement.Reembolso {
	reembolsos := make([]reimbursement.Reembolso, 0, len(repo.db.table))
	for _, rmb := range repo.db.table {
		reembolsos = append(reembolsos, *rmb)
	}
	sort.Slice(reembolsos, func(i, j int) bool { return reembolsos[i].CreatedAt.After(reembolsos[j].CreatedAt) })
	return reembolsos
}

func (repo *reembolsoRepository) CreateReembolso(ctx context.Context, rmb reimbursement.Reembolso) (reimbursement.Reembolso, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rmb.ID = uuid.New().String()
	repo.db.table[rmb.ID] = &rmb
	return rmb, nil
}

func (repo *reembolsoRepository) QueryReembolsos(ctx context.Context, filter *reimbursement.QueryFilter, ordering []core.DBOrdering) ([]reimbursement.Reembolso, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reembolsos := repo.query()
	if filter == nil || filter.IsEmpty() {
		return reembolsos, nil
	}

	matches := make([]reimbursement.Reembolso, 0, len(reembolsos))
	for _, rmb := range reembolsos {
		if filter.ClienteID != "" && rmb.ClienteID != filter.ClienteID {
			continue
		}
		if filter.ContratoID != "" && rmb.ContratoID != filter.ContratoID {
			continue
		}
		if filter.Estado != "" && rmb.Estado != filter.Estado {
			continue
		}
		matches = append(matches, rmb)
	}
	return matches, nil
}

func (repo *reembolsoRepository) GetReembolso(ctx context.Context, id string) (reimbursement.Reembolso, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rmb, ok := repo.db.table[id]; ok {
		return *rmb, nil
	}
	return reimbursement.Reembolso{}, reimbursement.ErrNotFound
}

func (repo *reembolsoRepository) UpdateReembolso(ctx context.Context, rmb reimbursement.Reembolso) (reimbursement.Reembolso, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[rmb.ID]; !ok {
		return reimbursement.Reembolso{}, reimbursement.ErrNotFound
	}
	repo.db.table[rmb.ID] = &rmb
	return rmb, nil
}

func (repo *reembolsoRepository) ClearRecibo(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rmb, ok := repo.db.table[id]
	if !ok {
		return reimbursement.ErrNotFound
	}
	rmb.Recibo = ""
	return nil
}
