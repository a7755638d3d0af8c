package config

type App struct {
	Port              string `env:"APP_PORT" default:"8080"`
	DatabaseURL       string `env:"DATABASE_URL,required"`
	JWTSecret         string `env:"JWT_SECRET,required"`
	StripeSecretKey   string `env:"STRIPE_SECRET_KEY"`
	PaymentSuccessURL string `env:"PAYMENT_SUCCESS_URL"`
	PaymentCancelURL  string `env:"PAYMENT_CANCEL_URL"`
	TelegramBotToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID    string `env:"TELEGRAM_CHAT_ID"`
	Env               string `env:"APP_ENV" default:"dev"`
}
