package config

import (
	"github.com/electrosolucion2025/Whats2Want/internal/client"
	"github.com/electrosolucion2025/Whats2Want/internal/redsys"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr    string   `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`

	Redsys   redsys.Config     `envPrefix:"REDSYS_"`
	SMTP     client.SMTPConfig `envPrefix:"SMTP_"`
	WhatsApp WhatsApp          `envPrefix:"WHATSAPP_"`
}

type WhatsApp struct {
	BaseApiURL string `env:"BASE_API_URL" envDefault:"https://graph.facebook.com/v20.0"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
