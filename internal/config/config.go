// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} expansion
//  2. Environment variables (fallback), optionally seeded from a .env file
//
// Example usage:
//
//	config.LoadDotEnv(".env")
//	cfg, err := config.LoadOrEnv("config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"reconciliation-service/internal/core/matcher"
	"reconciliation-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Matching   matcher.Config   `yaml:"matching"`
	Extraction ExtractionConfig `yaml:"extraction"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        string   `yaml:"port"`
	MaxUploadMB int64    `yaml:"max_upload_mb"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// AuthConfig holds PIN and session token settings
type AuthConfig struct {
	PIN       string        `yaml:"pin"`
	PINHash   string        `yaml:"pin_hash"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ExtractionConfig holds record extraction settings
type ExtractionConfig struct {
	IncludeCredits  bool                `yaml:"include_credits"`
	StatementLayout *domain.FixedLayout `yaml:"statement_layout"`
	ReportLayout    *domain.FixedLayout `yaml:"report_layout"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			MaxUploadMB: 20,
			CORSOrigins: []string{"*"},
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Logging:  LoggingConfig{Level: "info"},
		Matching: matcher.DefaultConfig(),
	}
}

// Load reads and parses the config file. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${JWT_SECRET})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("erro ao ler configuração %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	def := Default()
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", def.Server.Port),
			MaxUploadMB: int64(getEnvInt("MAX_UPLOAD_MB", int(def.Server.MaxUploadMB))),
			CORSOrigins: getEnvList("CORS_ORIGINS", def.Server.CORSOrigins),
		},
		Auth: AuthConfig{
			PIN:       os.Getenv("APP_PIN"),
			PINHash:   os.Getenv("APP_PIN_HASH"),
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  getEnvDuration("TOKEN_TTL", def.Auth.TokenTTL),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", def.Logging.Level),
		},
		Matching: matcher.Config{
			Strategies:         getEnvList("MATCH_STRATEGIES", def.Matching.Strategies),
			Tolerance:          getEnvFloat("MATCH_TOLERANCE", def.Matching.Tolerance),
			MinPartialIDLength: getEnvInt("MATCH_MIN_PARTIAL_ID_LENGTH", def.Matching.MinPartialIDLength),
			NearMissTolerance:  getEnvFloat("NEAR_MISS_TOLERANCE", def.Matching.NearMissTolerance),
			NearMissLimit:      getEnvInt("NEAR_MISS_LIMIT", def.Matching.NearMissLimit),
			MaxBucketSize:      getEnvInt("MAX_BUCKET_SIZE", def.Matching.MaxBucketSize),
		},
		Extraction: ExtractionConfig{
			IncludeCredits: getEnvBool("INCLUDE_CREDITS", false),
		},
	}
}

// LoadOrEnv loads path, falling back to environment variables only when the
// file does not exist. A file that exists but cannot be parsed is an error.
func LoadOrEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return LoadFromEnv(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET não está configurado"))
	}
	if c.Auth.PIN == "" && c.Auth.PINHash == "" {
		errs = append(errs, errors.New("PIN de acesso não está configurado"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("limite de upload deve ser positivo"))
	}
	return errors.Join(errs...)
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// LoadDotEnv copies KEY=VALUE lines from path into the environment without
// overriding variables that are already set. It returns how many were set.
func LoadDotEnv(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(strings.TrimPrefix(parts[0], "export "))
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, scanner.Err()
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if result, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
