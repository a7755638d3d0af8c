package borrowing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Vasyl-Ch/library-service1.0/app/echoServer/jwtx"
	"github.com/Vasyl-Ch/library-service1.0/service/apperr"
	borrowingsvc "github.com/Vasyl-Ch/library-service1.0/service/borrowing"
)

type Controller struct {
	Svc borrowingsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/borrowings
func (h *Controller) Create(c echo.Context) error {
	actor, err := jwtx.ActorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	var req CreateBorrowingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	expected, err := time.ParseInLocation(dateLayout, req.ExpectedReturnDate, time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid expected_return_date"})
	}

	b, err := h.Svc.Create(c.Request().Context(), actor, req.BookID, expected)
	if err != nil {
		return h.respondErr(c, "borrowing create", err)
	}
	return c.JSON(http.StatusCreated, ToBorrowingResp(*b, time.Now().UTC()))
}

// POST /v1/borrowings/:id/return
func (h *Controller) Return(c echo.Context) error {
	actor, err := jwtx.ActorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	b, err := h.Svc.Return(c.Request().Context(), actor, id)
	if err != nil {
		return h.respondErr(c, "borrowing return", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "the book has been successfully returned",
		"borrowing": ToBorrowingResp(*b, time.Now().UTC()),
	})
}

// GET /v1/borrowings?is_active=true|false
func (h *Controller) List(c echo.Context) error {
	actor, err := jwtx.ActorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	var isActive *bool
	if v := c.QueryParam("is_active"); v != "" {
		parsed, perr := strconv.ParseBool(v)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid is_active"})
		}
		isActive = &parsed
	}

	borrowings, err := h.Svc.List(c.Request().Context(), actor, isActive)
	if err != nil {
		return h.respondErr(c, "borrowing list", err)
	}
	now := time.Now().UTC()
	out := make([]BorrowingResp, 0, len(borrowings))
	for _, b := range borrowings {
		out = append(out, ToBorrowingResp(b, now))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /v1/borrowings/:id
func (h *Controller) Detail(c echo.Context) error {
	actor, err := jwtx.ActorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	b, err := h.Svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return h.respondErr(c, "borrowing detail", err)
	}
	return c.JSON(http.StatusOK, ToBorrowingResp(*b, time.Now().UTC()))
}

func (h *Controller) respondErr(c echo.Context, op string, err error) error {
	code := apperr.Code(err)
	body := echo.Map{"code": string(code), "message": err.Error()}
	switch code {
	case apperr.ErrNotFound:
		return c.JSON(http.StatusNotFound, body)
	case apperr.ErrUnauthorized:
		return c.JSON(http.StatusForbidden, body)
	case apperr.ErrInvalidDate:
		return c.JSON(http.StatusBadRequest, body)
	case apperr.ErrOutOfStock, apperr.ErrDuplicateActiveBorrowing,
		apperr.ErrAlreadyReturned, apperr.ErrUnpaidBalance, apperr.ErrDuplicatePendingPayment:
		return c.JSON(http.StatusConflict, body)
	case apperr.ErrPaymentGateway:
		return c.JSON(http.StatusBadGateway, body)
	case apperr.ErrStorageContention:
		return c.JSON(http.StatusServiceUnavailable, body)
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
