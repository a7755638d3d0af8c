package book

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Vasyl-Ch/library-service1.0/app/echoServer/jwtx"
	"github.com/Vasyl-Ch/library-service1.0/service/apperr"
	booksvc "github.com/Vasyl-Ch/library-service1.0/service/book"
)

type Controller struct {
	Svc booksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func isStaff(c echo.Context) bool {
	actor, err := jwtx.ActorFromContext(c)
	return err == nil && actor.Staff
}

// POST /v1/books  (staff)
func (h *Controller) Create(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req CreateBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	if !req.DailyFee.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "daily_fee must be positive"})
	}
	id, err := h.Svc.Create(c.Request().Context(), req.Title, req.Cover, req.Inventory, req.DailyFee, req.AuthorIDs)
	if err != nil {
		if apperr.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"code": string(apperr.ErrNotFound), "message": err.Error()})
		}
		h.Log.Error("book create", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// PUT /v1/books/:id  (staff)
func (h *Controller) Update(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req UpdateBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	if !req.DailyFee.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "daily_fee must be positive"})
	}
	if err := h.Svc.Update(c.Request().Context(), id, req.Title, req.Cover, req.DailyFee, req.AuthorIDs); err != nil {
		if apperr.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"code": string(apperr.ErrNotFound), "message": err.Error()})
		}
		h.Log.Error("book update", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "updated"})
}

// DELETE /v1/books/:id  (staff)
func (h *Controller) Delete(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		switch apperr.Code(err) {
		case apperr.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"code": string(apperr.ErrNotFound), "message": err.Error()})
		case apperr.ErrActiveBorrowings:
			return c.JSON(http.StatusBadRequest, echo.Map{"code": string(apperr.ErrActiveBorrowings), "message": err.Error()})
		default:
			h.Log.Error("book delete", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

// GET /v1/books
func (h *Controller) List(c echo.Context) error {
	books, err := h.Svc.List(c.Request().Context())
	if err != nil {
		h.Log.Error("book list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	out := make([]BookResp, 0, len(books))
	for _, b := range books {
		out = append(out, ToBookResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /v1/books/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	b, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		if apperr.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"code": string(apperr.ErrNotFound), "message": err.Error()})
		}
		h.Log.Error("book detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, ToBookResp(*b))
}
