package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/snippetvault/internal/flagx"
	"github.com/dmitrijs2005/snippetvault/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "24h" and integer nanoseconds are accepted.
// Keys that are absent leave the current value untouched.
type FileConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	EncryptionKey                string         `json:"encryption_key" yaml:"encryption_key"`
	StrictEncryption             *bool          `json:"strict_encryption" yaml:"strict_encryption"`
	AllowLegacyPlaintext         *bool          `json:"allow_legacy_plaintext" yaml:"allow_legacy_plaintext"`
	ShareDefaultExpiry           timex.Duration `json:"share_default_expiry" yaml:"share_default_expiry"`
	ShareMaxExpiry               timex.Duration `json:"share_max_expiry" yaml:"share_max_expiry"`
	LogFormat                    string         `json:"log_format" yaml:"log_format"`
	S3RootUser                   string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	AuditArchiveInterval         timex.Duration `json:"audit_archive_interval" yaml:"audit_archive_interval"`
	AuditArchiveSettle           timex.Duration `json:"audit_archive_settle" yaml:"audit_archive_settle"`
}

// parseFile loads the file named by -c/-config into config. Files ending in
// .yaml or .yml are decoded as YAML, anything else as JSON. If the file
// cannot be read or decoded, the function panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.EncryptionKey, c.EncryptionKey)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.ShareDefaultExpiry, c.ShareDefaultExpiry)
	setDuration(&config.ShareMaxExpiry, c.ShareMaxExpiry)
	setDuration(&config.AuditArchiveInterval, c.AuditArchiveInterval)
	setDuration(&config.AuditArchiveSettle, c.AuditArchiveSettle)

	if c.StrictEncryption != nil {
		config.StrictEncryption = *c.StrictEncryption
	}
	if c.AllowLegacyPlaintext != nil {
		config.AllowLegacyPlaintext = *c.AllowLegacyPlaintext
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
