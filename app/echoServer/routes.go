package echoServer

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Vasyl-Ch/library-service1.0/app/echoServer/controller/author"
	"github.com/Vasyl-Ch/library-service1.0/app/echoServer/controller/book"
	"github.com/Vasyl-Ch/library-service1.0/app/echoServer/controller/borrowing"
	"github.com/Vasyl-Ch/library-service1.0/app/echoServer/controller/payment"
)

type C struct {
	Author    *author.Controller
	Book      *book.Controller
	Borrowing *borrowing.Controller
	Payment   *payment.Controller

	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	v1 := e.Group("/v1")
	v1.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
	}))

	// Authors
	v1.GET("/authors", c.Author.List)
	v1.GET("/authors/:id", c.Author.Detail)
	v1.POST("/authors", c.Author.Create)
	v1.PUT("/authors/:id", c.Author.Update)

	// Books
	v1.GET("/books", c.Book.List)
	v1.GET("/books/:id", c.Book.Detail)
	v1.POST("/books", c.Book.Create)
	v1.PUT("/books/:id", c.Book.Update)
	v1.DELETE("/books/:id", c.Book.Delete)

	// Borrowings
	v1.POST("/borrowings", c.Borrowing.Create)
	v1.GET("/borrowings", c.Borrowing.List)
	v1.GET("/borrowings/:id", c.Borrowing.Detail)
	v1.POST("/borrowings/:id/return", c.Borrowing.Return)

	// Payments
	v1.POST("/payments", c.Payment.Create)
	v1.GET("/payments", c.Payment.List)
	v1.GET("/payments/pending", c.Payment.Pending)
	v1.GET("/payments/success", c.Payment.Success)
	v1.GET("/payments/cancel", c.Payment.Cancel)
	v1.GET("/payments/:id", c.Payment.Detail)
}
