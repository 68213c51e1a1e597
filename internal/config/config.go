package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	AuthMode    string   `mapstructure:"AUTH_MODE"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer  string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string  `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	GenAIAPIKey    string  `mapstructure:"GENAI_API_KEY"`
	GenAIBaseURL   string  `mapstructure:"GENAI_BASE_URL"`
	GenAIModel     string  `mapstructure:"GENAI_MODEL"`
	GenAIMaxTokens int     `mapstructure:"GENAI_MAX_TOKENS"`
	TempConsultant float32 `mapstructure:"GENAI_TEMP_CONSULTANT"`
	TempGenerator  float32 `mapstructure:"GENAI_TEMP_GENERATOR"`
	TempCleaner    float32 `mapstructure:"GENAI_TEMP_CLEANER"`

	DataRequestPollSeconds int `mapstructure:"DATA_REQUEST_POLL_SECONDS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // auto-detect: "" -> inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("GENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("GENAI_MAX_TOKENS", 2048)
	v.SetDefault("GENAI_TEMP_CONSULTANT", 0.3)
	v.SetDefault("GENAI_TEMP_GENERATOR", 0.2)
	v.SetDefault("GENAI_TEMP_CLEANER", 0.1)
	v.SetDefault("DATA_REQUEST_POLL_SECONDS", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("AUTH_MODE")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("GENAI_API_KEY")
	v.BindEnv("GENAI_BASE_URL")
	v.BindEnv("GENAI_MODEL")
	v.BindEnv("GENAI_MAX_TOKENS")
	v.BindEnv("GENAI_TEMP_CONSULTANT")
	v.BindEnv("GENAI_TEMP_GENERATOR")
	v.BindEnv("GENAI_TEMP_CLEANER")
	v.BindEnv("DATA_REQUEST_POLL_SECONDS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — requests may impersonate any user.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns the effective auth mode. If AUTH_MODE is explicitly
// set, it is returned. Otherwise, the mode is inferred:
//   - ENV=development → "development" (header-based identity, no signature check)
//   - Otherwise       → "external" (tokens issued by the identity provider)
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	return "external"
}

// Validate checks that the configuration is safe to run. In non-development
// modes AUTH_ISSUER must be set so that real JWT authentication is enforced,
// and a GenAI API key is required for the chat pipeline.
func (c *Config) Validate() error {
	mode := c.ResolvedAuthMode()
	if mode == "external" && c.AuthIssuer == "" {
		return fmt.Errorf(
			"AUTH_ISSUER must be set when AUTH_MODE is \"external\" (current ENV=%q). "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if mode != "development" && mode != "external" {
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"external\", got %q", mode)
	}

	if c.IsProduction() && c.GenAIAPIKey == "" {
		return fmt.Errorf("GENAI_API_KEY is required in production")
	}
	if c.GenAIMaxTokens <= 0 {
		return fmt.Errorf("GENAI_MAX_TOKENS must be positive, got %d", c.GenAIMaxTokens)
	}
	if c.DataRequestPollSeconds <= 0 {
		return fmt.Errorf("DATA_REQUEST_POLL_SECONDS must be positive, got %d", c.DataRequestPollSeconds)
	}

	return nil
}
