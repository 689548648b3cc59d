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
	"github.com/jmvidalr/corredora/core/payment"
	"github.com/jmvidalr/corredora/storage/database"
)

const insertPagoQuery = `
	INSERT INTO pago (id, contrato_id, monto, fecha_programada, fecha_pagado, estado, metodo_pago, referencia, created_at)
	VALUES (:id, :contrato_id, :monto, :fecha_programada, :fecha_pagado, :estado, :metodo_pago, :referencia, :created_at)`

type pagoRow struct {
	ID              string      `db:"id"`
	ContratoID      string      `db:"contrato_id"`
	Monto           float64     `db:"monto"`
	FechaProgramada null.Time   `db:"fecha_programada"`
	FechaPagado     null.Time   `db:"fecha_pagado"`
	Estado          string      `db:"estado"`
	MetodoPago      null.String `db:"metodo_pago"`
	Referencia      null.String `db:"referencia"`
	CreatedAt       null.Time   `db:"created_at"`
}

func newPagoRow(pg payment.Pago) pagoRow {
	row := pagoRow{
		ID:              pg.ID,
		ContratoID:      pg.ContratoID,
		Monto:           pg.Monto,
		FechaProgramada: null.NewTime(pg.FechaProgramada, !pg.FechaProgramada.IsZero()),
		Estado:          string(pg.Estado),
		MetodoPago:      null.NewString(pg.MetodoPago, pg.MetodoPago != ""),
		Referencia:      null.NewString(pg.Referencia, pg.Referencia != ""),
		CreatedAt:       null.NewTime(pg.CreatedAt.UTC(), !pg.CreatedAt.IsZero()),
	}
	if pg.FechaPagado != nil {
		row.FechaPagado = null.TimeFrom(*pg.FechaPagado)
	}
	return row
}

func (row pagoRow) toPago() payment.Pago {
	pg := payment.Pago{
		ID:              row.ID,
		ContratoID:      row.ContratoID,
		Monto:           row.Monto,
		FechaProgramada: row.FechaProgramada.Time,
		Estado:          payment.Estado(row.Estado),
		MetodoPago:      row.MetodoPago.String,
		Referencia:      row.Referencia.String,
		CreatedAt:       row.CreatedAt.Time,
	}
	if row.FechaPagado.Valid {
		t := row.FechaPagado.Time
		pg.FechaPagado = &t
	}
	return pg
}

var pagoOrderable = map[string]bool{
	"monto":            true,
	"fecha_programada": true,
	"fecha_pagado":     true,
	"estado":           true,
	"created_at":       true,
}

type pagoRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*pagoRepository)(nil) // interface compliance check

func NewPagoRepository(db *sqlx.DB) *pagoRepository {
	return &pagoRepository{db: db}
}

func (repo pagoRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return payment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// CreatePago inserts a new installment. The `pago_pendiente_unico_idx`
// partial index guarantees at most one pending installment per contract;
// a violation surfaces as payment.ErrPendingPagoExists.
func (repo pagoRepository) CreatePago(ctx context.Context, pg payment.Pago) (payment.Pago, error) {
	pg.ID = uuid.New().String()
	row := newPagoRow(pg)

	if _, err := repo.db.NamedExecContext(ctx, insertPagoQuery, row); err != nil {
		if database.IsUniqueViolation(err, "pago_pendiente_unico_idx") {
			return payment.Pago{}, payment.ErrPendingPagoExists
		}
		return payment.Pago{}, errors.Wrap(err, "inserting installment")
	}
	return row.toPago(), nil
}

func (repo pagoRepository) QueryPagos(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Pago, error) {
	query := `SELECT * FROM pago`
	var conds []string
	var args []interface{}

	if filter != nil {
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
	query += orderBy(ordering, pagoOrderable, "fecha_programada ASC")

	var rows []pagoRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying installments")
	}

	pagos := make([]payment.Pago, 0, len(rows))
	for _, row := range rows {
		pagos = append(pagos, row.toPago())
	}
	return pagos, nil
}

func (repo pagoRepository) GetPago(ctx context.Context, id string) (payment.Pago, error) {
	if _, err := uuid.Parse(id); err != nil {
		return payment.Pago{}, payment.ErrNotFound
	}

	var row pagoRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM pago WHERE id = $1`, id); err != nil {
		return payment.Pago{}, repo.trapNoRowsErr(err, "finding installment")
	}
	return row.toPago(), nil
}

func (repo pagoRepository) UpdatePago(ctx context.Context, pg payment.Pago) (payment.Pago, error) {
	row := newPagoRow(pg)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE pago SET
			fecha_pagado = :fecha_pagado,
			estado = :estado,
			metodo_pago = :metodo_pago,
			referencia = :referencia
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return payment.Pago{}, errors.Wrap(err, "updating installment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payment.Pago{}, payment.ErrNotFound
	}
	return repo.GetPago(ctx, pg.ID)
}
