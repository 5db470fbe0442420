package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/flagx"
	"github.com/dmitrijs2005/idkeeper/internal/timex"
)

// JsonConfig is the shape of the optional JSON config file. Durations are
// timex.Duration so both "2h" and integer nanoseconds are accepted.
// Absent keys keep the value already in Config.
type JsonConfig struct {
	EndpointAddrGRPC   string         `json:"endpoint_addr_grpc"`
	MetricsAddr        string         `json:"metrics_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	PreviousSecretKeys []string       `json:"previous_secret_keys"`
	SessionTokenTTL    timex.Duration `json:"session_token_ttl"`
	ResetTokenTTL      timex.Duration `json:"reset_token_ttl"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	ResetLinkBaseURL   string         `json:"reset_link_base_url"`
	ITStaffRoles       []string       `json:"it_staff_roles"`
	DefaultPhoneRegion string         `json:"default_phone_region"`
	ArgonTime          uint32         `json:"argon_time"`
	ArgonMemoryKiB     uint32         `json:"argon_memory_kib"`
	ArgonThreads       uint8          `json:"argon_threads"`
	SMTPHost           string         `json:"smtp_host"`
	SMTPPort           int            `json:"smtp_port"`
	SMTPUsername       string         `json:"smtp_username"`
	SMTPPassword       string         `json:"smtp_password"`
	SMTPFrom           string         `json:"smtp_from"`
	SMTPTLS            string         `json:"smtp_tls"`
	SMTPTimeout        timex.Duration `json:"smtp_timeout"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
	TemplatesPrefix    string         `json:"templates_prefix"`
	RedisAddr          string         `json:"redis_addr"`
	RedisPassword      string         `json:"redis_password"`
	LockTTL            timex.Duration `json:"lock_ttl"`
	RateLimitRPS       float64        `json:"rate_limit_rps"`
	RateLimitBurst     int            `json:"rate_limit_burst"`
	OTelEndpoint       string         `json:"otel_endpoint"`
	ServiceName        string         `json:"service_name"`
	LogLevel           string         `json:"log_level"`
	DevMode            *bool          `json:"dev_mode"`
}

// parseJson loads the file named by -c/-config, if any, into config.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setSlice(&config.PreviousSecretKeys, c.PreviousSecretKeys)
	setDuration(&config.SessionTokenTTL, c.SessionTokenTTL)
	setDuration(&config.ResetTokenTTL, c.ResetTokenTTL)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setString(&config.ResetLinkBaseURL, c.ResetLinkBaseURL)
	setSlice(&config.ITStaffRoles, c.ITStaffRoles)
	setString(&config.DefaultPhoneRegion, c.DefaultPhoneRegion)
	setNumber(&config.ArgonTime, c.ArgonTime)
	setNumber(&config.ArgonMemoryKiB, c.ArgonMemoryKiB)
	setNumber(&config.ArgonThreads, c.ArgonThreads)
	setString(&config.SMTPHost, c.SMTPHost)
	setNumber(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.SMTPTLS, c.SMTPTLS)
	setDuration(&config.SMTPTimeout, c.SMTPTimeout)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.TemplatesPrefix, c.TemplatesPrefix)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setDuration(&config.LockTTL, c.LockTTL)
	setNumber(&config.RateLimitRPS, c.RateLimitRPS)
	setNumber(&config.RateLimitBurst, c.RateLimitBurst)
	setString(&config.OTelEndpoint, c.OTelEndpoint)
	setString(&config.ServiceName, c.ServiceName)
	setString(&config.LogLevel, c.LogLevel)
	if c.DevMode != nil {
		config.DevMode = *c.DevMode
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setSlice(dst *[]string, v []string) {
	if v != nil {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

func setNumber[T uint8 | uint32 | int | float64](dst *T, v T) {
	if v != 0 {
		*dst = v
	}
}
