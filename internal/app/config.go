package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN,required,notEmpty"`
	GoldChannelID string `env:"GOLD_CHANNEL_ID,required,notEmpty"`
	GoldInvite    string `env:"GOLD_INVITE_LINK,required,notEmpty"`
	PopitCodeHash string `env:"POPIT_CODE_HASH,required,notEmpty"`

	HTTPAddr       string        `env:"HTTP_ADDR"`
	AllowOrigins   []string      `env:"ALLOW_ORIGINS" envSeparator:","`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	GraphQLURL     string        `env:"GRAPHQL_URL"`
	GraphQLTimeout time.Duration `env:"GRAPHQL_TIMEOUT"`
	GraphQLRPS     float64       `env:"GRAPHQL_RPS"`
	GraphQLBurst   int           `env:"GRAPHQL_BURST"`

	PageSize      int `env:"PAGE_SIZE"`
	MaxMessages   int `env:"MAX_MESSAGES"`
	MaxIterations int `env:"MAX_ITERATIONS"`
	CodeHashBatch int `env:"CODE_HASH_BATCH"`

	InitDataMaxAge time.Duration `env:"INIT_DATA_MAX_AGE"`

	BotPolling bool   `env:"BOT_POLLING"`
	WebAppURL  string `env:"WEBAPP_URL"`

	LogLevel string `env:"LOG_LEVEL"`
}

func defaultConfig() Config {
	return Config{
		HTTPAddr:       ":8080",
		RequestTimeout: 90 * time.Second,
		GraphQLURL:     "https://mainnet.ackinacki.org/graphql",
		GraphQLTimeout: 8 * time.Second,
		GraphQLBurst:   10,
		PageSize:       50,
		MaxMessages:    2000,
		MaxIterations:  20,
		CodeHashBatch:  20,
		LogLevel:       "info",
	}
}

func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Warning: .env file not found, relying on environment variables")
	}

	return parseConfig()
}

func parseConfig() (Config, error) {
	config := defaultConfig()
	if err := env.Parse(&config); err != nil {
		return Config{}, err
	}
	if config.BotPolling && config.WebAppURL == "" {
		return Config{}, fmt.Errorf("WEBAPP_URL is required when BOT_POLLING is enabled")
	}
	return config, nil
}
