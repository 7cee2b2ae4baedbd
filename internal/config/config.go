package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=kiosk port=5432 sslmode=disable"

type Config struct {
	HTTPPort     string
	DatabaseDSN  string
	JWTSecret    string
	CORSOrigins  string
	AuthRequired bool

	LogLevel  string
	LogFormat string // "json" or "text"

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Flat price charged for each topping on the customer menu
	ToppingPrice decimal.Decimal
	// Ingredients below this quantity are listed as low stock in the X-report
	LowStockThreshold int
}

// Load reads configuration from the environment. If CONFIG_FILE points to a YAML
// file, its keys (same names as the env variables) are used as fallbacks.
func Load() (*Config, error) {
	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	src := source{file: file}

	cfg := &Config{
		HTTPPort:    src.get("HTTP_PORT", src.get("PORT", "5000")),
		DatabaseDSN: src.get("DATABASE_DSN", ""),
		JWTSecret:   src.get("JWT_SECRET", ""),
		CORSOrigins: src.get("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:    src.get("LOG_LEVEL", "info"),
		LogFormat:   src.get("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = buildDSN(src)
	}

	if cfg.AuthRequired, err = src.getBool("AUTH_REQUIRED", false); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = src.getInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = src.getInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.LowStockThreshold, err = src.getInt("LOW_STOCK_THRESHOLD", 10); err != nil {
		return nil, err
	}

	lifetime := src.get("DB_CONN_MAX_LIFETIME", "30m")
	if cfg.DBConnMaxLifetime, err = time.ParseDuration(lifetime); err != nil {
		return nil, fmt.Errorf("DB_CONN_MAX_LIFETIME is not a duration: %q: %w", lifetime, err)
	}

	topping := src.get("TOPPING_PRICE", "0.50")
	if cfg.ToppingPrice, err = decimal.NewFromString(topping); err != nil {
		return nil, fmt.Errorf("TOPPING_PRICE is not a number: %q: %w", topping, err)
	}
	if cfg.ToppingPrice.IsNegative() {
		return nil, fmt.Errorf("TOPPING_PRICE must not be negative")
	}

	if cfg.AuthRequired {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required when AUTH_REQUIRED=true")
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
		}
	}

	if cfg.DatabaseDSN == defaultDSN {
		logrus.Warn("DATABASE_DSN not set, using the local development default")
	}

	return cfg, nil
}

func (c *Config) AllowedOrigins() string {
	origins := strings.Split(c.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return strings.Join(origins, ",")
}

// buildDSN assembles a DSN from the DB_* variables the kiosk deployment uses.
func buildDSN(src source) string {
	host := src.get("DB_HOST", "")
	if host == "" {
		return defaultDSN
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host,
		src.get("DB_USER", "postgres"),
		src.get("DB_PASSWORD", ""),
		src.get("DB_NAME", "kiosk"),
		src.get("DB_PORT", "5432"),
		src.get("DB_SSLMODE", "require"),
	)
}

func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file %s: %w", path, err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return values, nil
}

type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v
	}
	return def
}

func (s source) getInt(key string, def int) (int, error) {
	v := s.get(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", key, v)
	}
	return n, nil
}

func (s source) getBool(key string, def bool) (bool, error) {
	v := s.get(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %q", key, v)
	}
	return b, nil
}
