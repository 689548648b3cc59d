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
	"github.com/jmvidalr/corredora/core/product"
)

type tipoSeguroRow struct {
	ID          string      `db:"id"`
	Nombre      string      `db:"nombre"`
	Descripcion null.String `db:"descripcion"`
}

type productoRow struct {
	ID          string      `db:"id"`
	TipoID      string      `db:"tipo_id"`
	Nombre      string      `db:"nombre"`
	Descripcion null.String `db:"descripcion"`
	PrimaBase   float64     `db:"prima_base"`
	Cobertura   float64     `db:"cobertura"`
	Activo      null.Bool   `db:"activo"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func newProductoRow(prod product.Producto) productoRow {
	row := productoRow{
		ID:          prod.ID,
		TipoID:      prod.TipoID,
		Nombre:      prod.Nombre,
		Descripcion: null.NewString(prod.Descripcion, prod.Descripcion != ""),
		PrimaBase:   prod.PrimaBase,
		Cobertura:   prod.Cobertura,
		CreatedAt:   null.NewTime(prod.CreatedAt.UTC(), !prod.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(prod.UpdatedAt.UTC(), !prod.UpdatedAt.IsZero()),
	}
	if prod.Activo != nil {
		row.Activo = null.BoolFrom(*prod.Activo)
	}
	return row
}

func (row productoRow) toProducto() product.Producto {
	prod := product.Producto{
		ID:          row.ID,
		TipoID:      row.TipoID,
		Nombre:      row.Nombre,
		Descripcion: row.Descripcion.String,
		PrimaBase:   row.PrimaBase,
		Cobertura:   row.Cobertura,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
	if row.Activo.Valid {
		prod.SetActivo(row.Activo.Bool)
	}
	return prod
}

var productoOrderable = map[string]bool{
	"nombre":     true,
	"prima_base": true,
	"cobertura":  true,
	"activo":     true,
	"created_at": true,
	"updated_at": true,
}

type productoRepository struct {
	db *sqlx.DB
}

var _ product.Repository = (*productoRepository)(nil) // interface compliance check

func NewProductoRepository(db *sqlx.DB) *productoRepository {
	return &productoRepository{db: db}
}

func (repo productoRepository) CreateTipo(ctx context.Context, tipo product.TipoSeguro) (product.TipoSeguro, error) {
	tipo.ID = uuid.New().String()
	row := tipoSeguroRow{
		ID:          tipo.ID,
		Nombre:      tipo.Nombre,
		Descripcion: null.NewString(tipo.Descripcion, tipo.Descripcion != ""),
	}
	if _, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO tipo_seguro (id, nombre, descripcion)
		VALUES (:id, :nombre, :descripcion)`,
		row,
	); err != nil {
		return product.TipoSeguro{}, errors.Wrap(err, "inserting insurance type")
	}
	return tipo, nil
}

func (repo productoRepository) QueryTipos(ctx context.Context) ([]product.TipoSeguro, error) {
	var rows []tipoSeguroRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM tipo_seguro ORDER BY nombre`); err != nil {
		return nil, errors.Wrap(err, "querying insurance types")
	}

	tipos := make([]product.TipoSeguro, 0, len(rows))
	for _, row := range rows {
		tipos = append(tipos, product.TipoSeguro{ID: row.ID, Nombre: row.Nombre, Descripcion: row.Descripcion.String})
	}
	return tipos, nil
}

func (repo productoRepository) GetTipo(ctx context.Context, id string) (product.TipoSeguro, error) {
	if _, err := uuid.Parse(id); err != nil {
		return product.TipoSeguro{}, product.ErrTipoNotFound
	}

	var row tipoSeguroRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM tipo_seguro WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return product.TipoSeguro{}, product.ErrTipoNotFound
		}
		return product.TipoSeguro{}, errors.Wrap(err, "finding insurance type")
	}
	return product.TipoSeguro{ID: row.ID, Nombre: row.Nombre, Descripcion: row.Descripcion.String}, nil
}

func (repo productoRepository) CreateProducto(ctx context.Context, prod product.Producto) (product.Producto, error) {
	prod.ID = uuid.New().String()
	row := newProductoRow(prod)

	if _, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO producto (id, tipo_id, nombre, descripcion, prima_base, cobertura, activo, created_at, updated_at)
		VALUES (:id, :tipo_id, :nombre, :descripcion, :prima_base, :cobertura, :activo, :created_at, :updated_at)`,
		row,
	); err != nil {
		return product.Producto{}, errors.Wrap(err, "inserting product")
	}
	return row.toProducto(), nil
}

func (repo productoRepository) QueryProductos(ctx context.Context, filter *product.QueryFilter, ordering []core.DBOrdering) ([]product.Producto, error) {
	query := `SELECT * FROM producto`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(nombre ILIKE ? OR descripcion ILIKE ?)`)
			search := "%" + filter.Search + "%"
			args = append(args, search, search)
		}
		if filter.TipoID != "" {
			conds = append(conds, `tipo_id = ?`)
			args = append(args, filter.TipoID)
		}
		if filter.Activo != nil {
			conds = append(conds, `activo = ?`)
			args = append(args, *filter.Activo)
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += orderBy(ordering, productoOrderable, "nombre ASC")

	var rows []productoRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying products")
	}

	productos := make([]product.Producto, 0, len(rows))
	for _, row := range rows {
		productos = append(productos, row.toProducto())
	}
	return productos, nil
}

func (repo productoRepository) GetProducto(ctx context.Context, id string) (product.Producto, error) {
	if _, err := uuid.Parse(id); err != nil {
		return product.Producto{}, product.ErrNotFound
	}

	var row productoRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM producto WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return product.Producto{}, product.ErrNotFound
		}
		return product.Producto{}, errors.Wrap(err, "finding product")
	}
	return row.toProducto(), nil
}

func (repo productoRepository) UpdateProducto(ctx context.Context, prod product.Producto) (product.Producto, error) {
	row := newProductoRow(prod)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE producto SET
			nombre = :nombre,
			descripcion = :descripcion,
			prima_base = :prima_base,
			cobertura = :cobertura,
			activo = COALESCE(:activo, activo),
			updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return product.Producto{}, errors.Wrap(err, "updating product")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return product.Producto{}, product.ErrNotFound
	}
	return repo.GetProducto(ctx, prod.ID)
}

func (repo productoRepository) DeleteProductosByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM producto WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "preparing delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting products")
	}
	return nil
}
