package product

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jmvidalr/corredora/core"
)

var (
	// errors
	ErrNotFound     = errors.New("product not found")
	ErrTipoNotFound = errors.New("insurance type not found")
)

type (
	Repository interface {
		CreateTipo(ctx context.Context, tipo TipoSeguro) (TipoSeguro, error)
		QueryTipos(ctx context.Context) ([]TipoSeguro, error)
		GetTipo(ctx context.Context, id string) (TipoSeguro, error)
		CreateProducto(ctx context.Context, prod Producto) (Producto, error)
		QueryProductos(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Producto, error)
		GetProducto(ctx context.Context, id string) (Producto, error)
		UpdateProducto(ctx context.Context, prod Producto) (Producto, error)
		DeleteProductosByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateTipo(ctx context.Context, nt NewTipoSeguro) (TipoSeguro, error) {
	return svc.repo.CreateTipo(ctx, TipoSeguro{Nombre: nt.Nombre, Descripcion: nt.Descripcion})
}

func (svc *Service) QueryTipos(ctx context.Context) ([]TipoSeguro, error) {
	return svc.repo.QueryTipos(ctx)
}

func (svc *Service) Create(ctx context.Context, np NewProducto) (Producto, error) {
	if _, err := svc.repo.GetTipo(ctx, np.TipoID); err != nil {
		if errors.Cause(err) == ErrTipoNotFound {
			return Producto{}, core.NewValidationError(err, core.FieldError{Field: "tipo_id", Error: err.Error()})
		}
		return Producto{}, err
	}

	now := time.Now().UTC()
	prod := Producto{
		TipoID:      np.TipoID,
		Nombre:      np.Nombre,
		Descripcion: np.Descripcion,
		PrimaBase:   np.PrimaBase,
		Cobertura:   np.Cobertura,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	prod.SetActivo(true)
	return svc.repo.CreateProducto(ctx, prod)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Producto, error) {
	return svc.repo.QueryProductos(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Producto, error) {
	return svc.repo.GetProducto(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, up UpdateProducto) (Producto, error) {
	prod := Producto{
		ID:          id,
		Nombre:      up.Nombre,
		Descripcion: up.Descripcion,
		PrimaBase:   up.PrimaBase,
		Cobertura:   up.Cobertura,
		Activo:      up.Activo,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateProducto(ctx, prod)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteProductosByID(ctx, ids...)
}
