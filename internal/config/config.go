package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	NodeID         int64    `mapstructure:"node_id"` // snowflake node for realtime event ids
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	LogMode  bool   `mapstructure:"log_mode"`
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// BillingConfig holds the defaults applied while generating invoices from cargo
type BillingConfig struct {
	DefaultUOM      string `mapstructure:"default_uom"`
	DefaultCurrency string `mapstructure:"default_currency"`
	NamingPrefix    string `mapstructure:"naming_prefix"`
	TaxType         string `mapstructure:"tax_type"` // empty disables tax lookup
}

// MigrationConfig names the doctype whose module is reconciled after every migration
type MigrationConfig struct {
	DocType string `mapstructure:"doctype"`
	Module  string `mapstructure:"module"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Migration MigrationConfig `mapstructure:"migration"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("server.node_id", 1)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_mode", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("billing.default_uom", "Nos")
	v.SetDefault("billing.default_currency", "USD")
	v.SetDefault("billing.naming_prefix", "SINV-")
	v.SetDefault("billing.tax_type", "")

	v.SetDefault("migration.doctype", "Transport Settings")
	v.SetDefault("migration.module", "VSD Fleet MS")

	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
}

// Load reads configs/.env (if present), then the YAML file at path (optional),
// then FLEET_* environment overrides, e.g. FLEET_DATABASE_HOST=db.
func Load(path string) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.Server.Mode == "release" && c.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required in release mode")
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = "default_super_secret_key" // development fallback only
	}

	return &c, nil
}
