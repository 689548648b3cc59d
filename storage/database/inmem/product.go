package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/product"
)

type productoRepository struct {
	db     *productoTable
	tipoDB *tipoTable
}

func NewProductoRepository(db *DB) product.Repository {
	return &productoRepository{db: db.producto, tipoDB: db.tipo}
}

func (repo *productoRepository) query() []product.Producto {
	productos := make([]product.Producto, 0, len(repo.db.table))
	for _, prod := range repo.db.table {
		productos = append(productos, *prod)
	}
	sort.Slice(productos, func(i, j int) bool { return productos[i].Nombre < productos[j].Nombre })
	return productos
}

func (repo *productoRepository) CreateTipo(ctx context.Context, tipo product.TipoSeguro) (product.TipoSeguro, error) {
	repo.tipoDB.Lock()
	defer repo.tipoDB.Unlock()

	tipo.ID = uuid.New().String()
	repo.tipoDB.table[tipo.ID] = &tipo
	return tipo, nil
}

func (repo *productoRepository) QueryTipos(ctx context.Context) ([]product.TipoSeguro, error) {
	repo.tipoDB.RLock()
	defer repo.tipoDB.RUnlock()

	tipos := make([]product.TipoSeguro, 0, len(repo.tipoDB.table))
	for _, tipo := range repo.tipoDB.table {
		tipos = append(tipos, *tipo)
	}
	sort.Slice(tipos, func(i, j int) bool { return tipos[i].Nombre < tipos[j].Nombre })
	return tipos, nil
}

func (repo *productoRepository) GetTipo(ctx context.Context, id string) (product.TipoSeguro, error) {
	repo.tipoDB.RLock()
	defer repo.tipoDB.RUnlock()

	if tipo, ok := repo.tipoDB.table[id]; ok {
		return *tipo, nil
	}
	return product.TipoSeguro{}, product.ErrTipoNotFound
}

func (repo *productoRepository) CreateProducto(ctx context.Context, prod product.Producto) (product.Producto, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	prod.ID = uuid.New().String()
	repo.db.table[prod.ID] = &prod
	return prod, nil
}

func (repo *productoRepository) QueryProductos(ctx context.Context, filter *product.QueryFilter, ordering []core.DBOrdering) ([]product.Producto, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	productos := repo.query()
	if filter == nil || filter.IsEmpty() {
		return productos, nil
	}

	matches := make([]product.Producto, 0, len(productos))
	for _, prod := range productos {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			hay := strings.ToLower(prod.Nombre + " " + prod.Descripcion)
			if !strings.Contains(hay, search) {
				continue
			}
		}
		if filter.TipoID != "" && prod.TipoID != filter.TipoID {
			continue
		}
		if filter.Activo != nil && (prod.Activo == nil || *prod.Activo != *filter.Activo) {
			continue
		}
		matches = append(matches, prod)
	}
	return matches, nil
}

func (repo *productoRepository) GetProducto(ctx context.Context, id string) (product.Producto, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prod, ok := repo.db.table[id]; ok {
		return *prod, nil
	}
	return product.Producto{}, product.ErrNotFound
}

func (repo *productoRepository) UpdateProducto(ctx context.Context, prod product.Producto) (product.Producto, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[prod.ID]
	if !ok {
		return product.Producto{}, product.ErrNotFound
	}
	prod.TipoID = orig.TipoID
	prod.CreatedAt = orig.CreatedAt
	if prod.Activo == nil {
		prod.Activo = orig.Activo
	}
	repo.db.table[prod.ID] = &prod
	return prod, nil
}

func (repo *productoRepository) DeleteProductosByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
