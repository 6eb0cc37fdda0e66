package resendmail

// Config holds the Resend transport configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	APIKey      string `env:"RESEND_API_KEY,required"`
	SenderEmail string `env:"RESEND_FROM_EMAIL,required"`
	SenderName  string `env:"RESEND_FROM_NAME"`
}
