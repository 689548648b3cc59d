package echoapi

import (
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/contract"
	"github.com/jmvidalr/corredora/core/filestore"
	"github.com/jmvidalr/corredora/core/reimbursement"
	"github.com/jmvidalr/corredora/core/user"
)

type reimbursementApi struct {
	svc      *reimbursement.Service
	ctrSvc   *contract.Service
	usrSvc   *user.Service
	files    *filestore.Store
	validate *validator.Validate
}

func registerReimbursementAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *reimbursement.Service,
	ctrSvc *contract.Service,
	usrSvc *user.Service,
	files *filestore.Store,
	validate *validator.Validate,
) {
	api := reimbursementApi{
		svc:      svc,
		ctrSvc:   ctrSvc,
		usrSvc:   usrSvc,
		files:    files,
		validate: validate,
	}

	rg := g.Group("/reembolsos", jwt)
	rg.POST("", api.create)
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id/aprobar", api.approve, staffMiddleware())
	rg.PUT("/:id/rechazar", api.reject, staffMiddleware())
	rg.GET("/:id/recibo", api.downloadRecibo)
}

// Handlers

// create files a claim from a multipart form; the receipt file is mandatory
// and no claim row exists without one.
func (api *reimbursementApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	data := reimbursement.NewReembolso{
		ContratoID:  ctx.FormValue("contrato_id"),
		Categoria:   ctx.FormValue("categoria"),
		Descripcion: ctx.FormValue("descripcion"),
	}
	if raw := ctx.FormValue("fecha_gasto"); raw != "" {
		data.FechaGasto, err = parseDate(raw)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "fecha_gasto", Error: "invalid date"})
		}
	}
	if raw := ctx.FormValue("monto"); raw != "" {
		data.Monto, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "monto", Error: "invalid amount"})
		}
	}

	// claims are scoped to the caller's own contracts
	if data.ContratoID != "" && ctxUsr.IsCliente() {
		ctr, err := api.ctrSvc.GetByID(ctx.Request().Context(), data.ContratoID)
		if err != nil && errors.Cause(err) != contract.ErrNotFound {
			return errors.Wrap(err, "finding contract by ID")
		}
		if err == nil && ctr.ClienteID != ctxUsr.ID {
			return errHttpForbidden
		}
	}

	// reject the claim before touching the database when the receipt is absent
	fh, err := ctx.FormFile("recibo")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "recibo", Error: "a receipt file is required"})
	}

	// validate the form fields before persisting the upload so a rejected
	// claim leaves nothing on disk
	data.Recibo = fh.Filename
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer func() { _ = src.Close() }()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "application/pdf" {
		data.Recibo, err = api.files.SaveDocument(src, filestore.SubdirRecibos, fh.Filename, contentType)
	} else {
		data.Recibo, err = api.files.SaveImage(src, filestore.SubdirRecibos, fh.Filename, contentType)
	}
	if err != nil {
		return err
	}

	rmb, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rmb)
}

func (api *reimbursementApi) query(ctx echo.Context) error {
	filter := new(reimbursement.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []reimbursement.Reembolso{})
	}

	// clients only ever see their own claims
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsCliente() {
		filter.ClienteID = ctxUsr.ID
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reembolsos, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying reimbursements")
	}
	if reembolsos == nil {
		reembolsos = []reimbursement.Reembolso{}
	}
	return ctx.JSON(http.StatusOK, reembolsos)
}

func (api *reimbursementApi) retrieve(ctx echo.Context) error {
	rmb, err := api.getScopedReembolso(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rmb)
}

func (api *reimbursementApi) approve(ctx echo.Context) error {
	return api.review(ctx, true)
}

func (api *reimbursementApi) reject(ctx echo.Context) error {
	return api.review(ctx, false)
}

func (api *reimbursementApi) review(ctx echo.Context, approve bool) error {
	var data reimbursement.ReviewReembolso
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewReembolso")
	}

	var rmb reimbursement.Reembolso
	var err error
	if approve {
		rmb, err = api.svc.Approve(ctx.Request().Context(), ctx.Param("id"), data.Comentario)
	} else {
		rmb, err = api.svc.Reject(ctx.Request().Context(), ctx.Param("id"), data.Comentario)
	}
	if err != nil {
		if errors.Cause(err) == reimbursement.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, rmb)
}

// downloadRecibo streams the stored receipt back to the caller. A reference
// whose file has gone missing on disk is cleared and reported as not found.
func (api *reimbursementApi) downloadRecibo(ctx echo.Context) error {
	rmb, err := api.getScopedReembolso(ctx)
	if err != nil {
		return err
	}
	if rmb.Recibo == "" {
		return errHttpNotFound
	}

	f, err := api.files.Open(rmb.Recibo)
	if err != nil {
		if errors.Cause(err) == filestore.ErrNotFound {
			api.svc.ClearRecibo(ctx.Request().Context(), rmb.ID)
			return errHttpNotFound
		}
		return errors.Wrap(err, "opening stored receipt")
	}
	defer func() { _ = f.Close() }()

	contentType := mime.TypeByExtension(filepath.Ext(rmb.Recibo))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return ctx.Stream(http.StatusOK, contentType, f)
}

func (api *reimbursementApi) getScopedReembolso(ctx echo.Context) (reimbursement.Reembolso, error) {
	rmb, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == reimbursement.ErrNotFound {
			return reimbursement.Reembolso{}, errHttpNotFound
		}
		return reimbursement.Reembolso{}, errors.Wrap(err, "finding reimbursement by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return reimbursement.Reembolso{}, errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsCliente() && rmb.ClienteID != ctxUsr.ID {
		return reimbursement.Reembolso{}, errHttpForbidden
	}
	return rmb, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
