package echoapi

import (
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jmvidalr/corredora/core/contract"
	"github.com/jmvidalr/corredora/core/filestore"
	"github.com/jmvidalr/corredora/core/user"
)

type contractApi struct {
	svc      *contract.Service
	usrSvc   *user.Service
	files    *filestore.Store
	validate *validator.Validate
}

func registerContractAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *contract.Service,
	usrSvc *user.Service,
	files *filestore.Store,
	validate *validator.Validate,
) {
	api := contractApi{
		svc:      svc,
		usrSvc:   usrSvc,
		files:    files,
		validate: validate,
	}

	cg := g.Group("/contratos", jwt)
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id/aprobar", api.approve, staffMiddleware())
	cg.PUT("/:id/rechazar", api.reject, staffMiddleware())
	cg.PUT("/:id/documentos", api.submitDocs)
	cg.GET("/:id/documentos/:campo", api.downloadDoc)
}

// Handlers

func (api *contractApi) create(ctx echo.Context) error {
	var data contract.NewContrato
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContrato")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// clients can only file contracts for themselves
	if ctxUsr.IsCliente() {
		data.ClienteID = ctxUsr.ID
	}
	if data.AgenteID == "" && ctxUsr.IsAgente() {
		data.AgenteID = ctxUsr.ID
	}

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating contract")
	}
	return ctx.JSON(http.StatusCreated, ctr)
}

func (api *contractApi) query(ctx echo.Context) error {
	filter := new(contract.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []contract.Contrato{})
	}

	// clients only ever see their own contracts
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsCliente() {
		filter.ClienteID = ctxUsr.ID
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	contratos, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying contracts")
	}
	if contratos == nil {
		contratos = []contract.Contrato{}
	}
	return ctx.JSON(http.StatusOK, contratos)
}

func (api *contractApi) retrieve(ctx echo.Context) error {
	ctr, err := api.getScopedContrato(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ctr)
}

func (api *contractApi) approve(ctx echo.Context) error {
	return api.review(ctx, contract.EventoAprobar)
}

func (api *contractApi) reject(ctx echo.Context) error {
	return api.review(ctx, contract.EventoRechazar)
}

func (api *contractApi) review(ctx echo.Context, evento contract.Evento) error {
	var data contract.ReviewContrato
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewContrato")
	}

	ctr, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), evento, data.Comentario)
	if err != nil {
		if errors.Cause(err) == contract.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, ctr)
}

// submitDocs handles the client's multipart document submission: medical
// history (PDF), signature (image) and the beneficiary list as a JSON field.
func (api *contractApi) submitDocs(ctx echo.Context) error {
	ctr, err := api.getScopedContrato(ctx)
	if err != nil {
		return err
	}

	var data contract.SubmitDocs

	if fh, err := ctx.FormFile("historial_medico"); err == nil {
		path, err := api.saveUpload(fh, filestore.SubdirHistoriales, true /* document */)
		if err != nil {
			return err
		}
		data.HistorialMedico = path
	}
	if fh, err := ctx.FormFile("firma"); err == nil {
		path, err := api.saveUpload(fh, filestore.SubdirFirmas, false /* image */)
		if err != nil {
			return err
		}
		data.Firma = path
	}
	if raw := ctx.FormValue("beneficiarios"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data.Beneficiarios); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "beneficiarios must be a JSON array")
		}
	}

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctr, err = api.svc.SubmitDocs(ctx.Request().Context(), ctr.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ctr)
}

// downloadDoc streams a stored contract document back to the caller. A
// reference whose file has gone missing on disk is cleared and reported
// as not found.
func (api *contractApi) downloadDoc(ctx echo.Context) error {
	ctr, err := api.getScopedContrato(ctx)
	if err != nil {
		return err
	}

	var field contract.DocField
	var path string
	switch ctx.Param("campo") {
	case string(contract.DocHistorialMedico):
		field, path = contract.DocHistorialMedico, ctr.HistorialMedico
	case string(contract.DocFirma):
		field, path = contract.DocFirma, ctr.Firma
	default:
		return errHttpNotFound
	}
	if path == "" {
		return errHttpNotFound
	}

	f, err := api.files.Open(path)
	if err != nil {
		if errors.Cause(err) == filestore.ErrNotFound {
			api.svc.ClearDocRef(ctx.Request().Context(), ctr.ID, field)
			return errHttpNotFound
		}
		return errors.Wrap(err, "opening stored document")
	}
	defer func() { _ = f.Close() }()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return ctx.Stream(http.StatusOK, contentType, f)
}

// getScopedContrato loads the contract and enforces visibility: clients may
// only access their own contracts.
func (api *contractApi) getScopedContrato(ctx echo.Context) (contract.Contrato, error) {
	ctr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == contract.ErrNotFound {
			return contract.Contrato{}, errHttpNotFound
		}
		return contract.Contrato{}, errors.Wrap(err, "finding contract by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return contract.Contrato{}, errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsCliente() && ctr.ClienteID != ctxUsr.ID {
		return contract.Contrato{}, errHttpForbidden
	}
	return ctr, nil
}

func (api *contractApi) saveUpload(fh *multipart.FileHeader, subdir string, document bool) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	defer func() { _ = src.Close() }()

	contentType := fh.Header.Get("Content-Type")
	if document {
		return api.files.SaveDocument(src, subdir, fh.Filename, contentType)
	}
	return api.files.SaveImage(src, subdir, fh.Filename, contentType)
}
