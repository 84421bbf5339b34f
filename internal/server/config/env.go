package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/snippetvault/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays config with environment variables. A dotenv file is
// loaded first: the one named by -env-file, or ./.env if it exists. Values
// already present in the process environment win over the dotenv file.
//
// Supported variables:
//
//	HTTP_ADDR, GRPC_ADDR, DATABASE_URL, SECRET_KEY,
//	ACCESS_TOKEN_EXPIRE, REFRESH_TOKEN_EXPIRE (durations, e.g. "30m"),
//	ENCRYPTION_KEY, STRICT_ENCRYPTION, ALLOW_LEGACY_PLAINTEXT (booleans),
//	SHARE_DEFAULT_EXPIRY, SHARE_MAX_EXPIRY, LOG_FORMAT,
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT,
//	AUDIT_ARCHIVE_INTERVAL, AUDIT_ARCHIVE_SETTLE.
//
// Malformed values panic, like malformed flags and files.
func parseEnv(config *Config) {
	loadDotEnv(flagx.EnvFileFlag())

	envString("HTTP_ADDR", &config.EndpointAddrHTTP)
	envString("GRPC_ADDR", &config.EndpointAddrGRPC)
	envString("DATABASE_URL", &config.DatabaseDSN)
	envString("SECRET_KEY", &config.SecretKey)
	envString("ENCRYPTION_KEY", &config.EncryptionKey)
	envString("LOG_FORMAT", &config.LogFormat)
	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	envDuration("ACCESS_TOKEN_EXPIRE", &config.AccessTokenValidityDuration)
	envDuration("REFRESH_TOKEN_EXPIRE", &config.RefreshTokenValidityDuration)
	envDuration("SHARE_DEFAULT_EXPIRY", &config.ShareDefaultExpiry)
	envDuration("SHARE_MAX_EXPIRY", &config.ShareMaxExpiry)
	envDuration("AUDIT_ARCHIVE_INTERVAL", &config.AuditArchiveInterval)
	envDuration("AUDIT_ARCHIVE_SETTLE", &config.AuditArchiveSettle)

	envBool("STRICT_ENCRYPTION", &config.StrictEncryption)
	envBool("ALLOW_LEGACY_PLAINTEXT", &config.AllowLegacyPlaintext)
}

func loadDotEnv(path string) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envDuration(name string, dst *time.Duration) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	*dst = d
}

func envBool(name string, dst *bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	*dst = b
}
