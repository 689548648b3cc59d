package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jmvidalr/corredora/core/contract"
	"github.com/jmvidalr/corredora/core/payment"
	"github.com/jmvidalr/corredora/core/user"
)

type paymentApi struct {
	svc      *payment.Service
	ctrSvc   *contract.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerPaymentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *payment.Service,
	ctrSvc *contract.Service,
	usrSvc *user.Service,
	validate *validator.Validate,
) {
	api := paymentApi{
		svc:      svc,
		ctrSvc:   ctrSvc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	g.GET("/contratos/:id/pagos", api.queryByContract, jwt)

	pg := g.Group("/pagos", jwt)
	pg.GET("/:id", api.retrieve, staffMiddleware())
	pg.POST("/:id/registrar", api.register, staffMiddleware())
}

// Handlers

// queryByContract lists a contract's installments; clients may only see
// their own contracts' installments.
func (api *paymentApi) queryByContract(ctx echo.Context) error {
	ctr, err := api.ctrSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == contract.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding contract by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsCliente() && ctr.ClienteID != ctxUsr.ID {
		return errHttpForbidden
	}

	filter := &payment.QueryFilter{ContratoID: ctr.ID}
	if estado := ctx.QueryParam("estado"); estado != "" {
		filter.Estado = payment.Estado(estado)
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	pagos, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if pagos == nil {
		pagos = []payment.Pago{}
	}
	return ctx.JSON(http.StatusOK, pagos)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	pago, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == payment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding payment by ID")
	}
	return ctx.JSON(http.StatusOK, pago)
}

// register marks a pending installment as paid; the next installment gets
// scheduled in the background.
func (api *paymentApi) register(ctx echo.Context) error {
	var data payment.RegisterPago
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterPago")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pago, err := api.svc.Register(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == payment.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, pago)
}
