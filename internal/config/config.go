package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "bridge"
	DefaultPGSSLMode       = "disable"
	DefaultRuntimeURL      = "https://general-runtime.voiceflow.com"
	DefaultKnowledgeURL    = "https://api.voiceflow.com"
	DefaultEngineVersionID = "production"
	DefaultMessageLimit    = 400
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Twilio    TwilioConfig    `toml:"twilio"`
	Voiceflow VoiceflowConfig `toml:"voiceflow"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Stripe    StripeConfig    `toml:"stripe"`
	Usage     UsageConfig     `toml:"usage"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// TwilioConfig holds the messaging-provider credentials. PublicBaseURL is
// the externally visible origin the provider signs requests against; the
// service sits behind a reverse proxy, so the internally observed Host
// header cannot be used for signature checks.
type TwilioConfig struct {
	AccountSID    string `toml:"account_sid"`
	AuthToken     string `toml:"auth_token"`
	FromNumber    string `toml:"from_number"`
	PublicBaseURL string `toml:"public_base_url" validate:"omitempty,url"`
}

type VoiceflowConfig struct {
	APIKey       string `toml:"api_key"`
	VersionID    string `toml:"version_id"`
	RuntimeURL   string `toml:"runtime_url" validate:"omitempty,url"`
	KnowledgeURL string `toml:"knowledge_url" validate:"omitempty,url"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// DSN renders the section as a postgres connection URL.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

type StripeConfig struct {
	SecretKey     string `toml:"secret_key"`
	WebhookSecret string `toml:"webhook_secret"`
	SuccessURL    string `toml:"success_url" validate:"omitempty,url"`
}

type UsageConfig struct {
	MessageLimit int `toml:"message_limit" validate:"omitempty,gt=0"`
}

// Load reads the TOML config at path, filling defaults for anything the
// file omits. A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Voiceflow: VoiceflowConfig{
			VersionID:    DefaultEngineVersionID,
			RuntimeURL:   DefaultRuntimeURL,
			KnowledgeURL: DefaultKnowledgeURL,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Usage: UsageConfig{
			MessageLimit: DefaultMessageLimit,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
