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
	"github.com/jmvidalr/corredora/core/contract"
	"github.com/jmvidalr/corredora/core/payment"
)

type contratoRow struct {
	ID                 string      `db:"id"`
	ClienteID          string      `db:"cliente_id"`
	AgenteID           null.String `db:"agente_id"`
	ProductoID         string      `db:"producto_id"`
	Estado             string      `db:"estado"`
	FechaInicio        null.Time   `db:"fecha_inicio"`
	FechaFin           null.Time   `db:"fecha_fin"`
	FrecuenciaPago     string      `db:"frecuencia_pago"`
	MontoPago          float64     `db:"monto_pago"`
	FormaPago          string      `db:"forma_pago"`
	Banco              null.String `db:"banco"`
	NumeroCuenta       null.String `db:"numero_cuenta"`
	TipoCuenta         null.String `db:"tipo_cuenta"`
	HistorialMedico    null.String `db:"historial_medico"`
	Firma              null.String `db:"firma"`
	ComentarioRevision null.String `db:"comentario_revision"`
	CreatedAt          null.Time   `db:"created_at"`
	UpdatedAt          null.Time   `db:"updated_at"`
}

type beneficiarioRow struct {
	ID         string `db:"id"`
	ContratoID string `db:"contrato_id"`
	Nombre     string `db:"nombre"`
	Parentesco string `db:"parentesco"`
	Porcentaje int    `db:"porcentaje"`
}

func newContratoRow(ctr contract.Contrato) contratoRow {
	return contratoRow{
		ID:                 ctr.ID,
		ClienteID:          ctr.ClienteID,
		AgenteID:           null.NewString(ctr.AgenteID, ctr.AgenteID != ""),
		ProductoID:         ctr.ProductoID,
		Estado:             string(ctr.Estado),
		FechaInicio:        null.NewTime(ctr.FechaInicio, !ctr.FechaInicio.IsZero()),
		FechaFin:           null.NewTime(ctr.FechaFin, !ctr.FechaFin.IsZero()),
		FrecuenciaPago:     string(ctr.FrecuenciaPago),
		MontoPago:          ctr.MontoPago,
		FormaPago:          string(ctr.FormaPago),
		Banco:              null.NewString(ctr.Banco, ctr.Banco != ""),
		NumeroCuenta:       null.NewString(ctr.NumeroCuenta, ctr.NumeroCuenta != ""),
		TipoCuenta:         null.NewString(ctr.TipoCuenta, ctr.TipoCuenta != ""),
		HistorialMedico:    null.NewString(ctr.HistorialMedico, ctr.HistorialMedico != ""),
		Firma:              null.NewString(ctr.Firma, ctr.Firma != ""),
		ComentarioRevision: null.NewString(ctr.ComentarioRevision, ctr.ComentarioRevision != ""),
		CreatedAt:          null.NewTime(ctr.CreatedAt.UTC(), !ctr.CreatedAt.IsZero()),
		UpdatedAt:          null.NewTime(ctr.UpdatedAt.UTC(), !ctr.UpdatedAt.IsZero()),
	}
}

func (row contratoRow) toContrato() contract.Contrato {
	return contract.Contrato{
		ID:                 row.ID,
		ClienteID:          row.ClienteID,
		AgenteID:           row.AgenteID.String,
		ProductoID:         row.ProductoID,
		Estado:             contract.Estado(row.Estado),
		FechaInicio:        row.FechaInicio.Time,
		FechaFin:           row.FechaFin.Time,
		FrecuenciaPago:     contract.Frecuencia(row.FrecuenciaPago),
		MontoPago:          row.MontoPago,
		FormaPago:          contract.FormaPago(row.FormaPago),
		Banco:              row.Banco.String,
		NumeroCuenta:       row.NumeroCuenta.String,
		TipoCuenta:         row.TipoCuenta.String,
		HistorialMedico:    row.HistorialMedico.String,
		Firma:              row.Firma.String,
		ComentarioRevision: row.ComentarioRevision.String,
		CreatedAt:          row.CreatedAt.Time,
		UpdatedAt:          row.UpdatedAt.Time,
	}
}

var contratoOrderable = map[string]bool{
	"estado":       true,
	"fecha_inicio": true,
	"fecha_fin":    true,
	"monto_pago":   true,
	"created_at":   true,
	"updated_at":   true,
}

type contratoRepository struct {
	db *sqlx.DB
}

var _ contract.Repository = (*contratoRepository)(nil) // interface compliance check

func NewContratoRepository(db *sqlx.DB) *contratoRepository {
	return &contratoRepository{db: db}
}

func (repo contratoRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return contract.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// CreateContrato inserts the contract and its first pending installment
// (dated FechaInicio) in a single transaction.
func (repo contratoRepository) CreateContrato(ctx context.Context, ctr contract.Contrato) (contract.Contrato, error) {
	ctr.ID = uuid.New().String()
	row := newContratoRow(ctr)

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return contract.Contrato{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO contrato (id, cliente_id, agente_id, producto_id, estado, fecha_inicio, fecha_fin,
			frecuencia_pago, monto_pago, forma_pago, banco, numero_cuenta, tipo_cuenta,
			historial_medico, firma, comentario_revision, created_at, updated_at)
		VALUES (:id, :cliente_id, :agente_id, :producto_id, :estado, :fecha_inicio, :fecha_fin,
			:frecuencia_pago, :monto_pago, :forma_pago, :banco, :numero_cuenta, :tipo_cuenta,
			:historial_medico, :firma, :comentario_revision, :created_at, :updated_at)`,
		row,
	); err != nil {
		return contract.Contrato{}, errors.Wrap(err, "inserting contract")
	}

	firstPago := pagoRow{
		ID:              uuid.New().String(),
		ContratoID:      ctr.ID,
		Monto:           ctr.MontoPago,
		FechaProgramada: null.TimeFrom(ctr.FechaInicio),
		Estado:          string(payment.EstadoPendiente),
		CreatedAt:       row.CreatedAt,
	}
	if _, err = tx.NamedExecContext(ctx, insertPagoQuery, firstPago); err != nil {
		return contract.Contrato{}, errors.Wrap(err, "inserting first installment")
	}

	if err = tx.Commit(); err != nil {
		return contract.Contrato{}, errors.Wrap(err, "committing tx")
	}
	return row.toContrato(), nil
}

func (repo contratoRepository) QueryContratos(ctx context.Context, filter *contract.QueryFilter, ordering []core.DBOrdering) ([]contract.Contrato, error) {
	query := `SELECT * FROM contrato`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.ClienteID != "" {
			conds = append(conds, `cliente_id = ?`)
			args = append(args, filter.ClienteID)
		}
		if filter.AgenteID != "" {
			conds = append(conds, `agente_id = ?`)
			args = append(args, filter.AgenteID)
		}
		if filter.Estado != "" {
			conds = append(conds, `estado = ?`)
			args = append(args, string(filter.Estado))
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += orderBy(ordering, contratoOrderable, "created_at DESC")

	var rows []contratoRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying contracts")
	}

	contratos := make([]contract.Contrato, 0, len(rows))
	for _, row := range rows {
		ctr := row.toContrato()
		benefs, err := repo.getBeneficiarios(ctx, ctr.ID)
		if err != nil {
			return nil, err
		}
		ctr.Beneficiarios = benefs
		contratos = append(contratos, ctr)
	}
	return contratos, nil
}

func (repo contratoRepository) GetContrato(ctx context.Context, id string) (contract.Contrato, error) {
	if _, err := uuid.Parse(id); err != nil {
		return contract.Contrato{}, contract.ErrNotFound
	}

	var row contratoRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM contrato WHERE id = $1`, id); err != nil {
		return contract.Contrato{}, repo.trapNoRowsErr(err, "finding contract")
	}
	ctr := row.toContrato()

	benefs, err := repo.getBeneficiarios(ctx, ctr.ID)
	if err != nil {
		return contract.Contrato{}, err
	}
	ctr.Beneficiarios = benefs
	return ctr, nil
}

func (repo contratoRepository) UpdateContrato(ctx context.Context, ctr contract.Contrato) (contract.Contrato, error) {
	row := newContratoRow(ctr)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE contrato SET
			agente_id = :agente_id,
			estado = :estado,
			fecha_inicio = :fecha_inicio,
			fecha_fin = :fecha_fin,
			frecuencia_pago = :frecuencia_pago,
			monto_pago = :monto_pago,
			forma_pago = :forma_pago,
			banco = :banco,
			numero_cuenta = :numero_cuenta,
			tipo_cuenta = :tipo_cuenta,
			comentario_revision = :comentario_revision,
			updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return contract.Contrato{}, errors.Wrap(err, "updating contract")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contract.Contrato{}, contract.ErrNotFound
	}
	return repo.GetContrato(ctx, ctr.ID)
}

// UpdateContratoDocs updates only the client-owned fields and the state;
// the beneficiary set is replaced when non-nil, all in one transaction.
func (repo contratoRepository) UpdateContratoDocs(ctx context.Context, ctr contract.Contrato) (contract.Contrato, error) {
	row := newContratoRow(ctr)

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return contract.Contrato{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.NamedExecContext(ctx, `
		UPDATE contrato SET
			estado = :estado,
			historial_medico = COALESCE(:historial_medico, historial_medico),
			firma = COALESCE(:firma, firma),
			updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return contract.Contrato{}, errors.Wrap(err, "updating contract documents")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contract.Contrato{}, contract.ErrNotFound
	}

	if ctr.Beneficiarios != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM beneficiario WHERE contrato_id = $1`, ctr.ID); err != nil {
			return contract.Contrato{}, errors.Wrap(err, "clearing beneficiaries")
		}
		for _, b := range ctr.Beneficiarios {
			brow := beneficiarioRow{
				ID:         uuid.New().String(),
				ContratoID: ctr.ID,
				Nombre:     b.Nombre,
				Parentesco: b.Parentesco,
				Porcentaje: b.Porcentaje,
			}
			if _, err = tx.NamedExecContext(ctx, `
				INSERT INTO beneficiario (id, contrato_id, nombre, parentesco, porcentaje)
				VALUES (:id, :contrato_id, :nombre, :parentesco, :porcentaje)`,
				brow,
			); err != nil {
				return contract.Contrato{}, errors.Wrap(err, "inserting beneficiary")
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return contract.Contrato{}, errors.Wrap(err, "committing tx")
	}
	return repo.GetContrato(ctx, ctr.ID)
}

func (repo contratoRepository) ClearDocRef(ctx context.Context, id string, field contract.DocField) error {
	var query string
	switch field {
	case contract.DocHistorialMedico:
		query = `UPDATE contrato SET historial_medico = NULL WHERE id = $1`
	case contract.DocFirma:
		query = `UPDATE contrato SET firma = NULL WHERE id = $1`
	default:
		return errors.Errorf("unknown document field %q", field)
	}
	if _, err := repo.db.ExecContext(ctx, query, id); err != nil {
		return errors.Wrap(err, "clearing document reference")
	}
	return nil
}

func (repo contratoRepository) getBeneficiarios(ctx context.Context, contratoID string) ([]contract.Beneficiario, error) {
	var rows []beneficiarioRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM beneficiario WHERE contrato_id = $1 ORDER BY nombre`, contratoID)
	if err != nil {
		return nil, errors.Wrap(err, "querying beneficiaries")
	}

	benefs := make([]contract.Beneficiario, 0, len(rows))
	for _, row := range rows {
		benefs = append(benefs, contract.Beneficiario{
			ID:         row.ID,
			ContratoID: row.ContratoID,
			Nombre:     row.Nombre,
			Parentesco: row.Parentesco,
			Porcentaje: row.Porcentaje,
		})
	}
	return benefs, nil
}
