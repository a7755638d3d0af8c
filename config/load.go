package config

import (
	"log/slog"
	"os"
)

func Load() App {
	cfg := App{
		Port:              getenv("APP_PORT", "8080"),
		DatabaseURL:       must("DATABASE_URL"),
		JWTSecret:         getenv("JWT_SECRET", "local_dev_secret"),
		StripeSecretKey:   os.Getenv("STRIPE_SECRET_KEY"),
		PaymentSuccessURL: getenv("PAYMENT_SUCCESS_URL", "http://localhost:8080/v1/payments/success"),
		PaymentCancelURL:  getenv("PAYMENT_CANCEL_URL", "http://localhost:8080/v1/payments/cancel"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:    os.Getenv("TELEGRAM_CHAT_ID"),
		Env:               getenv("APP_ENV", "dev"),
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
