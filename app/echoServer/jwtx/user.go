package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Vasyl-Ch/library-service1.0/model"
)

// ActorFromContext reads the verified JWT placed in the context by the
// echo-jwt middleware. The identity provider issues tokens with an
// opaque numeric `sub` and an `is_staff` flag; this service never
// manages credentials itself.
func ActorFromContext(c echo.Context) (model.Actor, error) {
	tok, ok := c.Get("user").(*jwt.Token)
	if !ok || tok == nil {
		return model.Actor{}, errors.New("no jwt token in context")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Actor{}, errors.New("invalid jwt claims")
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return model.Actor{}, errors.New("sub missing in claims")
	}
	staff, _ := claims["is_staff"].(bool)

	return model.Actor{UserID: int64(sub), Staff: staff}, nil
}
