package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fileshare/internal/flagx"
	"github.com/dmitrijs2005/fileshare/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// either "30m" strings or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr               string         `json:"http_addr"`
	GRPCAddr               string         `json:"grpc_addr"`
	BaseURL                string         `json:"base_url"`
	DatabaseDSN            string         `json:"database_dsn"`
	Memory                 bool           `json:"memory"`
	SigningSecret          string         `json:"signing_secret"`
	PreviousSigningSecrets []string       `json:"previous_signing_secrets"`
	SessionTTL             timex.Duration `json:"session_ttl"`
	SessionStore           string         `json:"session_store"`
	SessionSweepInterval   timex.Duration `json:"session_sweep_interval"`
	RedisAddr              string         `json:"redis_addr"`
	RedisPassword          string         `json:"redis_password"`
	S3RootUser             string         `json:"s3_root_user"`
	S3RootPassword         string         `json:"s3_root_password"`
	S3Bucket               string         `json:"s3_bucket"`
	S3Region               string         `json:"s3_region"`
	S3BaseEndpoint         string         `json:"s3_base_endpoint"`
	MailMode               string         `json:"mail_mode"`
	SMTPHost               string         `json:"smtp_host"`
	SMTPPort               int            `json:"smtp_port"`
	SMTPUser               string         `json:"smtp_user"`
	SMTPPassword           string         `json:"smtp_password"`
	SMTPFrom               string         `json:"smtp_from"`
	SMTPEncryption         string         `json:"smtp_encryption"`
	UploadMaxBytes         int64          `json:"upload_max_bytes"`
	LoginRatePerMin        int            `json:"login_rate_per_min"`
	WorkerConcurrency      int            `json:"worker_concurrency"`
	LogLevel               string         `json:"log_level"`
	LogFormat              string         `json:"log_format"`
}

func toJSON(c *Config) JsonConfig {
	return JsonConfig{
		HTTPAddr:               c.HTTPAddr,
		GRPCAddr:               c.GRPCAddr,
		BaseURL:                c.BaseURL,
		DatabaseDSN:            c.DatabaseDSN,
		Memory:                 c.Memory,
		SigningSecret:          c.SigningSecret,
		PreviousSigningSecrets: c.PreviousSigningSecrets,
		SessionTTL:             timex.Duration{Duration: c.SessionTTL},
		SessionStore:           c.SessionStore,
		SessionSweepInterval:   timex.Duration{Duration: c.SessionSweepInterval},
		RedisAddr:              c.RedisAddr,
		RedisPassword:          c.RedisPassword,
		S3RootUser:             c.S3RootUser,
		S3RootPassword:         c.S3RootPassword,
		S3Bucket:               c.S3Bucket,
		S3Region:               c.S3Region,
		S3BaseEndpoint:         c.S3BaseEndpoint,
		MailMode:               c.MailMode,
		SMTPHost:               c.SMTPHost,
		SMTPPort:               c.SMTPPort,
		SMTPUser:               c.SMTPUser,
		SMTPPassword:           c.SMTPPassword,
		SMTPFrom:               c.SMTPFrom,
		SMTPEncryption:         c.SMTPEncryption,
		UploadMaxBytes:         c.UploadMaxBytes,
		LoginRatePerMin:        c.LoginRatePerMin,
		WorkerConcurrency:      c.WorkerConcurrency,
		LogLevel:               c.LogLevel,
		LogFormat:              c.LogFormat,
	}
}

func (j JsonConfig) apply(c *Config) {
	c.HTTPAddr = j.HTTPAddr
	c.GRPCAddr = j.GRPCAddr
	c.BaseURL = j.BaseURL
	c.DatabaseDSN = j.DatabaseDSN
	c.Memory = j.Memory
	c.SigningSecret = j.SigningSecret
	c.PreviousSigningSecrets = j.PreviousSigningSecrets
	c.SessionTTL = j.SessionTTL.Duration
	c.SessionStore = j.SessionStore
	c.SessionSweepInterval = j.SessionSweepInterval.Duration
	c.RedisAddr = j.RedisAddr
	c.RedisPassword = j.RedisPassword
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.MailMode = j.MailMode
	c.SMTPHost = j.SMTPHost
	c.SMTPPort = j.SMTPPort
	c.SMTPUser = j.SMTPUser
	c.SMTPPassword = j.SMTPPassword
	c.SMTPFrom = j.SMTPFrom
	c.SMTPEncryption = j.SMTPEncryption
	c.UploadMaxBytes = j.UploadMaxBytes
	c.LoginRatePerMin = j.LoginRatePerMin
	c.WorkerConcurrency = j.WorkerConcurrency
	c.LogLevel = j.LogLevel
	c.LogFormat = j.LogFormat
}

// parseJSON overlays the config file, if one is named, onto cfg. Keys
// missing from the file keep their current value.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	j := toJSON(cfg)
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	j.apply(cfg)
	return nil
}
