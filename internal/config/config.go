// Package config предоставляет структуры и функции для загрузки конфигурации сервиса.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string          `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string          `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string          `yaml:"migrations_path" env-default:"./migrations"`
	ThemeCacheTTL           time.Duration   `yaml:"theme_cache_ttl" env-default:"10m"`
	HTTPServer              HTTPServer      `yaml:"http_server"`
	RedisConnection         RedisConnection `yaml:"redis_connection"`
	RabbitMQ                RabbitMQ        `yaml:"rabbitmq"`
	JWTToken                JWTToken        `yaml:"jwttoken"`
	Zoom                    Zoom            `yaml:"zoom"`
	CORS                    CORS            `yaml:"cors"`
	RateLimit               RateLimit       `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	Address     string        `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RabbitMQ настройки брокера. Пустой URL отключает публикацию событий.
type RabbitMQ struct {
	URL      string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string        `yaml:"exchange" env-default:"matchmaker"`
	Retries  int           `yaml:"retries" env-default:"5"`
	Delay    time.Duration `yaml:"delay" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном.
type JWTToken struct {
	SecretKey string        `yaml:"secret_key" env:"JWT_SECRET_KEY" env-required:"true"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Zoom реквизиты Server-to-Server OAuth приложения для создания встреч.
type Zoom struct {
	AccountID    string        `yaml:"account_id" env:"ZOOM_ACCOUNT_ID"`
	ClientID     string        `yaml:"client_id" env:"ZOOM_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"ZOOM_CLIENT_SECRET"`
	TokenURL     string        `yaml:"token_url" env-default:"https://zoom.us/oauth/token"`
	APIURL       string        `yaml:"api_url" env-default:"https://api.zoom.us/v2"`
	Timeout      time.Duration `yaml:"timeout" env-default:"10s"`
}

// CORS политика для браузерного клиента.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env-default:"*"`
	MaxAge         int      `yaml:"max_age" env-default:"600"`
}

// RateLimit параметры глобального ограничителя запросов.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"50"`
	Burst int     `yaml:"burst" env-default:"100"`
}

// Load читает конфиг из файла path и переменных окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if path == "" {
		return nil, fmt.Errorf("%s: CONFIG_PATH is not set", op)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RedisConnection:\n"+
			"  Address: %s\n"+
			"  Password: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"  Exchange: %s\n"+
			"JWTToken:\n"+
			"  SecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"Zoom:\n"+
			"  AccountID: %s\n"+
			"  ClientID: %s\n"+
			"  ClientSecret: %s\n",
		c.Env,
		redact(c.StorageConnectionString),
		c.HTTPServer.Address,
		c.HTTPServer.Timeout,
		c.HTTPServer.IdleTimeout,
		c.RedisConnection.Address,
		redact(c.RedisConnection.Password),
		redact(c.RabbitMQ.URL),
		c.RabbitMQ.Exchange,
		redact(c.JWTToken.SecretKey),
		c.JWTToken.TokenTTL,
		c.Zoom.AccountID,
		c.Zoom.ClientID,
		redact(c.Zoom.ClientSecret),
	)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
