package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config groups the application configuration (read via Viper from env and
// optionally from a .env / config.env file).
type Config struct {
	App      AppConfig
	DB       DBConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	ANAF     ANAFConfig
	Exchange ExchangeConfig
	Registry RegistryConfig
	Storage  StorageConfig
}

// AppConfig general application settings.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// ANAFConfig settings for the e-Factura gateway (ANAF SPV web service).
type ANAFConfig struct {
	BaseURL      string // e-Factura REST base, e.g. https://api.anaf.ro/prod/FCTEL/rest
	TokenURL     string // OAuth2 token endpoint
	ClientID     string
	ClientSecret string
	RefreshToken string // long-lived refresh token issued for the SPV app
	CIF          string // operator's own tax ID, used for upload and inbound listing
	FetchMinutes int    // interval for the inbound fetch loop; 0 disables it
}

// ExchangeConfig settings for the historical exchange-rate service.
type ExchangeConfig struct {
	BaseURL string
	APIKey  string
}

// RegistryConfig settings for the counterparty lookup services.
type RegistryConfig struct {
	OpenAPIBaseURL string // domestic business-registry API
	OpenAPIKey     string
	VIESBaseURL    string // EU VAT validation REST service
}

// StorageConfig location for downloaded archives and embedded PDFs.
type StorageConfig struct {
	Dir string
}

// DBConfig PostgreSQL settings. If DatabaseURL is non-empty it is used as the
// full connection string.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString returns DatabaseURL when set, otherwise the DSN built from
// the individual fields.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN builds the PostgreSQL connection string, URL-encoding credentials.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig bearer-token settings for the API surface.
type JWTConfig struct {
	Secret     string
	Expiration int // minutes
	Issuer     string
}

// HTTPConfig HTTP server settings.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from environment variables and optionally from a
// .env or config.env file. Env vars take precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // missing file is fine

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "efactura-api"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "bct_backoffice"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "efactura-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		ANAF: ANAFConfig{
			BaseURL:      getString(v, "ANAF_BASE_URL", "https://api.anaf.ro/prod/FCTEL/rest"),
			TokenURL:     getString(v, "ANAF_TOKEN_URL", "https://logincert.anaf.ro/anaf-oauth2/v1/token"),
			ClientID:     getString(v, "ANAF_CLIENT_ID", ""),
			ClientSecret: getString(v, "ANAF_CLIENT_SECRET", ""),
			RefreshToken: getString(v, "ANAF_REFRESH_TOKEN", ""),
			CIF:          getString(v, "ANAF_CIF", ""),
			FetchMinutes: getInt(v, "ANAF_FETCH_MINUTES", 0),
		},
		Exchange: ExchangeConfig{
			BaseURL: getString(v, "EXCHANGE_BASE_URL", ""),
			APIKey:  getString(v, "EXCHANGE_API_KEY", ""),
		},
		Registry: RegistryConfig{
			OpenAPIBaseURL: getString(v, "OPENAPI_BASE_URL", "https://api.openapi.ro/api"),
			OpenAPIKey:     getString(v, "OPENAPI_KEY", ""),
			VIESBaseURL:    getString(v, "VIES_BASE_URL", "https://ec.europa.eu/taxation_customs/vies/rest-api"),
		},
		Storage: StorageConfig{
			Dir: getString(v, "STORAGE_DIR", "./storage"),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
