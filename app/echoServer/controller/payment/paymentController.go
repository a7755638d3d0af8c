package payment

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Vasyl-Ch/library-service1.0/app/echoServer/jwtx"
	"github.com/Vasyl-Ch/library-service1.0/service/apperr"
	paymentsvc "github.com/Vasyl-Ch/library-service1.0/service/payment"
)

type Controller struct {
	Svc paymentsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/payments
func (h *Controller) Create(c echo.Context) error {
	actor, err := jwtx.ActorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	var req CreatePaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	p, err := h.Svc.Create(c.Request().Context(), actor, req.BorrowingID)
	if err != nil {
		return h.respondErr(c, "payment create", err)
	}
	return c.JSON(http.StatusCreated, p)
}

// GET /v1/payments
func (h *Controller) List(c echo.Context) error {
	actor, err := jwtx.ActorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	payments, err := h.Svc.List(c.Request().Context(), actor)
	if err != nil {
		return h.respondErr(c, "payment list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": payments})
}

// GET /v1/payments/pending
func (h *Controller) Pending(c echo.Context) error {
	actor, err := jwtx.ActorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	payments, err := h.Svc.ListPending(c.Request().Context(), actor)
	if err != nil {
		return h.respondErr(c, "payment pending", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(payments), "results": payments})
}

// GET /v1/payments/:id
func (h *Controller) Detail(c echo.Context) error {
	actor, err := jwtx.ActorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	p, err := h.Svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return h.respondErr(c, "payment detail", err)
	}
	return c.JSON(http.StatusOK, p)
}

// GET /v1/payments/success?session_id=
// The processor redirects here after checkout; confirm settles the
// covered payments when the session reports paid.
func (h *Controller) Success(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "session_id is required"})
	}

	paid, err := h.Svc.Confirm(c.Request().Context(), sessionID)
	if err != nil {
		return h.respondErr(c, "payment success", err)
	}
	if len(paid) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"message": "payment is not completed yet"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "payment successful", "paid_ids": paid})
}

// GET /v1/payments/cancel
func (h *Controller) Cancel(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "payment canceled, the session stays available for 24 hours",
	})
}

func (h *Controller) respondErr(c echo.Context, op string, err error) error {
	code := apperr.Code(err)
	body := echo.Map{"code": string(code), "message": err.Error()}
	switch code {
	case apperr.ErrNotFound:
		return c.JSON(http.StatusNotFound, body)
	case apperr.ErrUnauthorized:
		return c.JSON(http.StatusForbidden, body)
	case apperr.ErrDuplicatePendingPayment:
		return c.JSON(http.StatusConflict, body)
	case apperr.ErrPaymentGateway:
		return c.JSON(http.StatusBadGateway, body)
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
