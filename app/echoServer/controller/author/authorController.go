package author

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Vasyl-Ch/library-service1.0/app/echoServer/jwtx"
	"github.com/Vasyl-Ch/library-service1.0/service/apperr"
	authorsvc "github.com/Vasyl-Ch/library-service1.0/service/author"
)

type Controller struct {
	Svc authorsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/authors  (staff)
func (h *Controller) Create(c echo.Context) error {
	actor, err := jwtx.ActorFromContext(c)
	if err != nil || !actor.Staff {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req AuthorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	id, err := h.Svc.Create(c.Request().Context(), req.Name, req.Surname)
	if err != nil {
		h.Log.Error("author create", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// PUT /v1/authors/:id  (staff)
func (h *Controller) Update(c echo.Context) error {
	actor, err := jwtx.ActorFromContext(c)
	if err != nil || !actor.Staff {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req AuthorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	if err := h.Svc.Update(c.Request().Context(), id, req.Name, req.Surname); err != nil {
		if apperr.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"code": string(apperr.ErrNotFound), "message": err.Error()})
		}
		h.Log.Error("author update", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "updated"})
}

// GET /v1/authors
func (h *Controller) List(c echo.Context) error {
	authors, err := h.Svc.List(c.Request().Context())
	if err != nil {
		h.Log.Error("author list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": authors})
}

// GET /v1/authors/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	a, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		if apperr.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"code": string(apperr.ErrNotFound), "message": err.Error()})
		}
		h.Log.Error("author detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, a)
}
