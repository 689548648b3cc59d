package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jmvidalr/corredora/core/product"
)

type productApi struct {
	svc      *product.Service
	validate *validator.Validate
}

func registerProductAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *product.Service,
	validate *validator.Validate,
) {
	api := productApi{svc: svc, validate: validate}

	tg := g.Group("/tipos", jwt)
	tg.GET("", api.queryTipos)
	tg.POST("", api.createTipo, adminMiddleware())

	pg := g.Group("/productos", jwt)
	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)
	pg.POST("", api.create, adminMiddleware())
	pg.PUT("/:id", api.update, adminMiddleware())
	pg.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *productApi) createTipo(ctx echo.Context) error {
	var data product.NewTipoSeguro
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTipoSeguro")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tipo, err := api.svc.CreateTipo(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating insurance type")
	}
	return ctx.JSON(http.StatusCreated, tipo)
}

func (api *productApi) queryTipos(ctx echo.Context) error {
	tipos, err := api.svc.QueryTipos(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying insurance types")
	}
	if tipos == nil {
		tipos = []product.TipoSeguro{}
	}
	return ctx.JSON(http.StatusOK, tipos)
}

func (api *productApi) create(ctx echo.Context) error {
	var data product.NewProducto
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProducto")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prod, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, prod)
}

func (api *productApi) query(ctx echo.Context) error {
	filter := new(product.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []product.Producto{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	productos, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying products")
	}
	if productos == nil {
		productos = []product.Producto{}
	}
	return ctx.JSON(http.StatusOK, productos)
}

func (api *productApi) retrieve(ctx echo.Context) error {
	prod, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == product.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding product by ID")
	}
	return ctx.JSON(http.StatusOK, prod)
}

func (api *productApi) update(ctx echo.Context) error {
	prod, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == product.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding product by ID")
	}

	var data product.UpdateProducto
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProducto")
	}
	if err := data.Validate(prod, api.validate); err != nil {
		return err
	}

	prod, err = api.svc.Update(ctx.Request().Context(), prod.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating product")
	}
	return ctx.JSON(http.StatusOK, prod)
}

func (api *productApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == product.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding product by ID")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting product")
	}
	return ctx.NoContent(http.StatusNoContent)
}
