// Package main library borrowing API.
//
// @title           Library Borrowing API
// @version         1.0
// @description     library service (books, authors, borrowings, payments).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/Vasyl-Ch/library-service1.0/app/echoServer"
	authorctrl "github.com/Vasyl-Ch/library-service1.0/app/echoServer/controller/author"
	bookctrl "github.com/Vasyl-Ch/library-service1.0/app/echoServer/controller/book"
	borrowingctrl "github.com/Vasyl-Ch/library-service1.0/app/echoServer/controller/borrowing"
	paymentctrl "github.com/Vasyl-Ch/library-service1.0/app/echoServer/controller/payment"
	"github.com/Vasyl-Ch/library-service1.0/app/echoServer/validation"
	"github.com/Vasyl-Ch/library-service1.0/config"
	authorrepo "github.com/Vasyl-Ch/library-service1.0/repository/author"
	bookrepo "github.com/Vasyl-Ch/library-service1.0/repository/book"
	borrowingrepo "github.com/Vasyl-Ch/library-service1.0/repository/borrowing"
	paymentrepo "github.com/Vasyl-Ch/library-service1.0/repository/payment"
	striperepo "github.com/Vasyl-Ch/library-service1.0/repository/stripe"
	telegramrepo "github.com/Vasyl-Ch/library-service1.0/repository/telegram"
	authorsvc "github.com/Vasyl-Ch/library-service1.0/service/author"
	booksvc "github.com/Vasyl-Ch/library-service1.0/service/book"
	borrowingsvc "github.com/Vasyl-Ch/library-service1.0/service/borrowing"
	"github.com/Vasyl-Ch/library-service1.0/service/notify"
	paymentsvc "github.com/Vasyl-Ch/library-service1.0/service/payment"
	"github.com/Vasyl-Ch/library-service1.0/util/database"
)

func main() {

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: pgx pool
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ar := authorrepo.New(db)
	br := bookrepo.New(db)
	bwr := borrowingrepo.New(db)
	pr := paymentrepo.New(db)
	xr := striperepo.NewHTTP(cfg.StripeSecretKey)
	tg := telegramrepo.NewHTTP(cfg.TelegramBotToken, cfg.TelegramChatID)

	// outbound notifications
	queue := notify.NewQueue(256, log)
	worker := notify.NewWorker(queue, bwr, pr, tg, log)
	go worker.Run(ctx)
	reporter := notify.NewReporter(bwr, pr, tg, log)
	go reporter.Run(ctx, 24*time.Hour)

	// services
	as := authorsvc.New(ar)
	bs := booksvc.New(br, ar, bwr)
	ps := paymentsvc.New(db, pr, bwr, xr, queue, cfg.PaymentSuccessURL, cfg.PaymentCancelURL)
	bws := borrowingsvc.New(db, bwr, br, pr, ps, queue)

	// controllers
	v := validator.New()
	authorC := &authorctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	borrowingC := &borrowingctrl.Controller{Svc: bws, V: v, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Author:    authorC,
		Book:      bookC,
		Borrowing: borrowingC,
		Payment:   paymentC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	log.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
