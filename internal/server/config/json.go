package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/authmatrix/internal/flagx"
)

// Duration accepts either a Go duration string ("15m") or integer
// nanoseconds in JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}

// JsonConfig is the on-disk shape of the config file. Pointer fields keep
// absent keys from clobbering defaults.
type JsonConfig struct {
	HTTPAddr          *string   `json:"http_addr"`
	StoreDriver       *string   `json:"store_driver"`
	DatabaseDSN       *string   `json:"database_dsn"`
	SecretKey         *string   `json:"secret_key"`
	TokenValidity     *Duration `json:"token_validity"`
	VerifyOtpValidity *Duration `json:"verify_otp_validity"`
	ResetOtpValidity  *Duration `json:"reset_otp_validity"`
	AllowedOrigins    []string  `json:"allowed_origins"`
	CookieSecure      *bool     `json:"cookie_secure"`
	SMTPHost          *string   `json:"smtp_host"`
	SMTPPort          *int      `json:"smtp_port"`
	SMTPUsername      *string   `json:"smtp_username"`
	SMTPPassword      *string   `json:"smtp_password"`
	SMTPFrom          *string   `json:"smtp_from"`
	NotifyTimeout     *Duration `json:"notify_timeout"`
	LogLevel          *string   `json:"log_level"`
	LogFormat         *string   `json:"log_format"`
}

// parseJson loads configuration values from the JSON file named by
// flagx.ConfigFile into config. No file means nothing to do.
func parseJson(config *Config) error {
	path := flagx.ConfigFile()
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.StoreDriver, c.StoreDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenValidity, c.TokenValidity)
	setDuration(&config.VerifyOtpValidity, c.VerifyOtpValidity)
	setDuration(&config.ResetOtpValidity, c.ResetOtpValidity)
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setDuration(&config.NotifyTimeout, c.NotifyTimeout)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
