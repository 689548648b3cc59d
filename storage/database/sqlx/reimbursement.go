package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/reimbursement"
)

type reembolsoRow struct {
	ID                 string      `db:"id"`
	ClienteID          string      `db:"cliente_id"`
	ContratoID         string      `db:"contrato_id"`
	FechaGasto         null.Time   `db:"fecha_gasto"`
	Categoria          string      `db:"categoria"`
	Monto              float64     `db:"monto"`
	Descripcion        null.String `db:"descripcion"`
	Recibo             null.String `db:"recibo"`
	Estado             string      `db:"estado"`
	CreadoPor          string      `db:"creado_por"`
	ComentarioRevision null.String `db:"comentario_revision"`
	FechaRevision      null.Time   `db:"fecha_revision"`
	CreatedAt          null.Time   `db:"created_at"`
}

func newReembolsoRow(rmb reimbursement.Reembolso) reembolsoRow {
	row := reembolsoRow{
		ID:                 rmb.ID,
		ClienteID:          rmb.ClienteID,
		ContratoID:         rmb.ContratoID,
		FechaGasto:         null.NewTime(rmb.FechaGasto, !rmb.FechaGasto.IsZero()),
		Categoria:          rmb.Categoria,
		Monto:              rmb.Monto,
		Descripcion:        null.NewString(rmb.Descripcion, rmb.Descripcion != ""),
		Recibo:             null.NewString(rmb.Recibo, rmb.Recibo != ""),
		Estado:             string(rmb.Estado),
		CreadoPor:          rmb.CreadoPor,
		ComentarioRevision: null.NewString(rmb.ComentarioRevision, rmb.ComentarioRevision != ""),
		CreatedAt:          null.NewTime(rmb.CreatedAt.UTC(), !rmb.CreatedAt.IsZero()),
	}
	if rmb.FechaRevision != nil {
		row.FechaRevision = null.TimeFrom(*rmb.FechaRevision)
	}
	return row
}

func (row reembolsoRow) toReembolso() reimbursement.Reembolso {
	rmb := reimbursement.Reembolso{
		ID:                 row.ID,
		ClienteID:          row.ClienteID,
		ContratoID:         row.ContratoID,
		FechaGasto:         row.FechaGasto.Time,
		Categoria:          row.Categoria,
		Monto:              row.Monto,
		Descripcion:        row.Descripcion.String,
		Recibo:             row.Recibo.String,
		Estado:             reimbursement.Estado(row.Estado),
		CreadoPor:          row.CreadoPor,
		ComentarioRevision: row.ComentarioRevision.String,
		CreatedAt:          row.CreatedAt.Time,
	}
	if row.FechaRevision.Valid {
		t := row.FechaRevision.Time
		rmb.FechaRevision = &t
	}
	return rmb
}

var reembolsoOrderable = map[string]bool{
	"fecha_gasto":    true,
	"categoria":      true,
	"monto":          true,
	"estado":         true,
	"fecha_revision": true,
	"created_at":     true,
}

type reembolsoRepository struct {
	db *sqlx.DB
}

var _ reimbursement.Repository = (*reembolsoRepository)(nil) // interface compliance check

func NewReembolsoRepository(db *sqlx.DB) *reembolsoRepository {
	return &reembolsoRepository{db: db}
}

func (repo reembolsoRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return reimbursement.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo reembolsoRepository) CreateReembolso(ctx context.Context, rmb reimbursement.Reembolso) (reimbursement.Reembolso, error) {
	rmb.ID = uuid.New().String()
	row := newReembolsoRow(rmb)

	if _, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO reembolso (id, cliente_id, contrato_id, fecha_gasto, categoria, monto, descripcion,
			recibo, estado, creado_por, comentario_revision, fecha_revision, created_at)
		VALUES (:id, :cliente_id, :contrato_id, :fecha_gasto, :categoria, :monto, :descripcion,
			:recibo, :estado, :creado_por, :comentario_revision, :fecha_revision, :created_at)`,
		row,
	); err != nil {
		return reimbursement.Reembolso{}, errors.Wrap(err, "inserting reimbursement")
	}
	return row.toReembolso(), nil
}

func (repo reembolsoRepository) QueryReembolsos(ctx context.Context, filter *reimbursement.QueryFilter, ordering []core.DBOrdering) ([]reimbursement.Reembolso, error) {
	query := `SELECT * FROM reembolso`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.ClienteID != "" {
			conds = append(conds, `cliente_id = ?`)
			args = append(args, filter.ClienteID)
		}
		if filter.ContratoID != "" {
			conds = append(conds, `contrato_id = ?`)
			args = append(args, filter.ContratoID)
		}
		if filter.Estado != "" {
			conds = append(conds, `estado = ?`)
			args = append(args, string(filter.Estado))
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += orderBy(ordering, reembolsoOrderable, "created_at DESC")

	var rows []reembolsoRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying reimbursements")
	}

	reembolsos := make([]reimbursement.Reembolso, 0, len(rows))
	for _, row := range rows {
		reembolsos = append(reembolsos, row.toReembolso())
	}
	return reembolsos, nil
}

func (repo reembolsoRepository) GetReembolso(ctx context.Context, id string) (reimbursement.Reembolso, error) {
	if _, err := uuid.Parse(id); err != nil {
		return reimbursement.Reembolso{}, reimbursement.ErrNotFound
	}

	var row reembolsoRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM reembolso WHERE id = $1`, id); err != nil {
		return reimbursement.Reembolso{}, repo.trapNoRowsErr(err, "finding reimbursement")
	}
	return row.toReembolso(), nil
}

func (repo reembolsoRepository) UpdateReembolso(ctx context.Context, rmb reimbursement.Reembolso) (reimbursement.Reembolso, error) {
	row := newReembolsoRow(rmb)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE reembolso SET
			estado = :estado,
			comentario_revision = :comentario_revision,
			fecha_revision = :fecha_revision
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return reimbursement.Reembolso{}, errors.Wrap(err, "updating reimbursement")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reimbursement.Reembolso{}, reimbursement.ErrNotFound
	}
	return repo.GetReembolso(ctx, rmb.ID)
}

func (repo reembolsoRepository) ClearRecibo(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `UPDATE reembolso SET recibo = NULL WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "clearing receipt reference")
	}
	return nil
}
