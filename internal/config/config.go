package config

import "os"

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
	Postgres PostgresConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
	InternalSecret string
}

type AuthConfig struct {
	AccessSecret   string
	RefreshSecret  string
	JWTAccessTTL   string
	JWTRefreshTTL  string
	AdminUsername  string
	AdminPassword  string
	AdminEmail     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   string
	CookieSameSite string
}

type EmailConfig struct {
	RelayURL    string
	APIKey      string
	FromAddress string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getenv("PORT", "8080"),
			AllowedOrigins: getenv("ALLOWED_ORIGINS", "http://localhost:3000"),
			InternalSecret: os.Getenv("INTERNAL_SECRET"),
		},
		Auth: AuthConfig{
			AccessSecret:   os.Getenv("ACCESS_TOKEN_SECRET"),
			RefreshSecret:  os.Getenv("REFRESH_TOKEN_SECRET"),
			JWTAccessTTL:   getenv("JWT_ACCESS_TTL", "15m"),
			JWTRefreshTTL:  getenv("JWT_REFRESH_TTL", "24h"),
			AdminUsername:  os.Getenv("ADMIN_USERNAME"),
			AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
			AdminEmail:     getenv("ADMIN_EMAIL", "admin@crashalert.local"),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			CookiePath:     getenv("AUTH_COOKIE_PATH", "/"),
			CookieSecure:   getenv("AUTH_COOKIE_SECURE", "true"),
			CookieSameSite: getenv("AUTH_COOKIE_SAMESITE", "none"),
		},
		Email: EmailConfig{
			RelayURL:    os.Getenv("EMAIL_RELAY_URL"),
			APIKey:      os.Getenv("EMAIL_RELAY_API_KEY"),
			FromAddress: getenv("EMAIL_FROM", "CrashAlertAI <no-reply@crashalert.local>"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
