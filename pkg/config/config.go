package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Password   PasswordConfig
	GoogleMaps GoogleMapsConfig
	Pricing    PricingConfig
	Outbox     OutboxConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAKERY_APP_ENV" required:"true"`
	Port         string `envconfig:"BAKERY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAKERY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAKERY_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"BAKERY_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BAKERY_DB_DSN"`

	LegacyHost     string `envconfig:"BAKERY_DB_HOST"`
	LegacyPort     int    `envconfig:"BAKERY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAKERY_DB_USER"`
	LegacyPassword string `envconfig:"BAKERY_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAKERY_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAKERY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAKERY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAKERY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAKERY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAKERY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAKERY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAKERY_REDIS_ADDR"`
	Password     string        `envconfig:"BAKERY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAKERY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAKERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAKERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAKERY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAKERY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAKERY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAKERY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAKERY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAKERY_JWT_EXPIRATION_MINUTES" default:"720"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAKERY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAKERY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAKERY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAKERY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAKERY_ARGON_KEY_LEN" default:"32"`
}

// GoogleMapsConfig carries the Places/Routes key and the bakery's dispatch point.
type GoogleMapsConfig struct {
	APIKey    string  `envconfig:"BAKERY_GOOGLE_MAPS_API_KEY"`
	OriginLat float64 `envconfig:"BAKERY_ORIGIN_LAT"`
	OriginLng float64 `envconfig:"BAKERY_ORIGIN_LNG"`
	Region    string  `envconfig:"BAKERY_MAPS_REGION" default:"IN"`
}

// PricingConfig holds the tax rate and the delivery schedule fed to the pricing engine.
type PricingConfig struct {
	TaxRatePercent        decimal.Decimal `envconfig:"BAKERY_TAX_RATE_PERCENT" default:"5"`
	DeliveryBands         DeliveryBands   `envconfig:"BAKERY_DELIVERY_BANDS" default:"near:0-3000:30,city:3000-8000:50,outer:8000-15000:70+4"`
	FreeDeliveryThreshold decimal.Decimal `envconfig:"BAKERY_FREE_DELIVERY_THRESHOLD" default:"0"`
	Currency              string          `envconfig:"BAKERY_CURRENCY" default:"INR"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"BAKERY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"BAKERY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"BAKERY_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Channel        string `envconfig:"BAKERY_OUTBOX_CHANNEL" default:"bakery:order-events"`
}

// RateLimitConfig throttles login attempts per client IP and per email.
type RateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"BAKERY_LOGIN_RATE_WINDOW" default:"15m"`
	LoginIPLimit    int           `envconfig:"BAKERY_LOGIN_RATE_IP_LIMIT" default:"50"`
	LoginEmailLimit int           `envconfig:"BAKERY_LOGIN_RATE_EMAIL_LIMIT" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BAKERY_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
