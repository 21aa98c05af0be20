package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/document"
	"github.com/trezcool/shule/core/locker"
	"github.com/trezcool/shule/core/profile"
)

var (
	errNoLockerProfile = echo.NewHTTPError(http.StatusNotFound, "no locker profile for this account")
	errLockerPinNotSet = echo.NewHTTPError(http.StatusConflict, locker.ErrPinNotSet.Error())
	errLockerLocked    = echo.NewHTTPError(http.StatusForbidden, locker.ErrLocked.Error())
	errLockerNoReset   = echo.NewHTTPError(http.StatusConflict, locker.ErrResetCodeNotConfigured.Error())
)

type lockerApi struct {
	svc      locker.ServiceInterface
	docSvc   document.ServiceInterface
	validate *validator.Validate
}

func registerLockerAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc locker.ServiceInterface,
	docSvc document.ServiceInterface,
	validate *validator.Validate,
) {
	api := lockerApi{
		svc:      svc,
		docSvc:   docSvc,
		validate: validate,
	}

	lg := g.Group("/locker", jwt)
	lg.GET("", api.status)
	lg.POST("/pin", api.setPin)
	lg.POST("/pin/verify", api.verifyPin)
	lg.POST("/recovery", api.recover)
	lg.POST("/reset", api.reset)
	lg.POST("/lock", api.lock)

	// the documents themselves; only reachable through an unlocked locker
	dg := lg.Group("/documents")
	dg.GET("", api.queryDocuments)
	dg.POST("", api.createDocument)
	dg.GET("/:id", api.retrieveDocument)
	dg.PUT("/:id", api.updateDocument)
	dg.DELETE("/:id", api.destroyDocument)
}

// VerifyPinResponse carries the error alongside the refreshed status so
// clients can show the remaining attempts.
type VerifyPinResponse struct {
	Error  string        `json:"error,omitempty"`
	Status locker.Status `json:"status"`
}

// lockerError maps locker sentinel errors onto HTTP errors.
func lockerError(err error) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case profile.ErrNotFound:
		return errNoLockerProfile
	case locker.ErrPinNotSet:
		return errLockerPinNotSet
	case locker.ErrLocked:
		return errLockerLocked
	case locker.ErrPinLockedOut:
		return echo.NewHTTPError(http.StatusForbidden, locker.ErrPinLockedOut.Error())
	case locker.ErrIncorrectRecovery:
		return echo.NewHTTPError(http.StatusBadRequest, locker.ErrIncorrectRecovery.Error())
	case locker.ErrResetCodeNotConfigured:
		return errLockerNoReset
	case locker.ErrIncorrectResetCode:
		return echo.NewHTTPError(http.StatusBadRequest, locker.ErrIncorrectResetCode.Error())
	}
	return err
}

// Handlers

func (api *lockerApi) status(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	status, err := api.svc.Status(ctx.Request().Context(), claims.Subject, claims.SessionID)
	if err != nil {
		return lockerError(err)
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *lockerApi) setPin(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data locker.SetPin
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetPin")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.SetPin(ctx.Request().Context(), claims.Subject, claims.SessionID, data); err != nil {
		return lockerError(err)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "PIN set. Keep your recovery password safe; it is the only way back in after too many failed attempts."})
}

func (api *lockerApi) verifyPin(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data locker.VerifyPin
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyPin")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	status, err := api.svc.VerifyPin(ctx.Request().Context(), claims.Subject, claims.SessionID, data)
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusOK, VerifyPinResponse{Status: status})
	case locker.ErrIncorrectPin:
		return ctx.JSON(http.StatusBadRequest, VerifyPinResponse{Error: err.Error(), Status: status})
	case locker.ErrPinLockedOut:
		return ctx.JSON(http.StatusForbidden, VerifyPinResponse{Error: err.Error(), Status: status})
	}
	return lockerError(err)
}

func (api *lockerApi) recover(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data locker.Recover
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Recover")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.Recover(ctx.Request().Context(), claims.Subject, claims.SessionID, data); err != nil {
		return lockerError(err)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Locker unlocked."})
}

func (api *lockerApi) reset(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data locker.ResetData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.Reset(ctx.Request().Context(), claims.Subject, claims.SessionID, data); err != nil {
		return lockerError(err)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Locker wiped: all documents deleted and PIN cleared."})
}

func (api *lockerApi) lock(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	api.svc.Lock(claims.SessionID)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Locker locked."})
}

// guard resolves the caller's profile iff their locker is unlocked.
func (api *lockerApi) guard(ctx echo.Context) (profile.Profile, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return profile.Profile{}, err
	}
	prof, err := api.svc.Guard(ctx.Request().Context(), claims.Subject, claims.SessionID)
	if err != nil {
		return profile.Profile{}, lockerError(err)
	}
	return prof, nil
}

func (api *lockerApi) queryDocuments(ctx echo.Context) error {
	prof, err := api.guard(ctx)
	if err != nil {
		return err
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	docs, err := api.docSvc.QueryByOwner(prof, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return ctx.JSON(http.StatusOK, docs)
}

func (api *lockerApi) createDocument(ctx echo.Context) error {
	prof, err := api.guard(ctx)
	if err != nil {
		return err
	}

	var data document.NewDocument
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocument")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	doc, err := api.docSvc.Create(prof, data)
	if err != nil {
		return errors.Wrap(err, "creating document")
	}
	return ctx.JSON(http.StatusCreated, doc)
}

func (api *lockerApi) retrieveDocument(ctx echo.Context) error {
	prof, err := api.guard(ctx)
	if err != nil {
		return err
	}

	doc, err := api.docSvc.Get(prof, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == document.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding document by ID")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *lockerApi) updateDocument(ctx echo.Context) error {
	prof, err := api.guard(ctx)
	if err != nil {
		return err
	}

	doc, err := api.docSvc.Get(prof, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == document.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding document by ID")
	}

	var data document.UpdateDocument
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDocument")
	}
	if err = data.Validate(doc, api.validate); err != nil {
		return err
	}

	doc, err = api.docSvc.Update(prof, doc.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating document")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *lockerApi) destroyDocument(ctx echo.Context) error {
	prof, err := api.guard(ctx)
	if err != nil {
		return err
	}

	if err = api.docSvc.Delete(prof, ctx.Param("id")); err != nil {
		if errors.Cause(err) == document.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting document")
	}
	return ctx.NoContent(http.StatusNoContent)
}
