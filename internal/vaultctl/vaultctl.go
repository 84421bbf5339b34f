// Package vaultctl implements the operator commands of the vault:
// generating and checking the encryption secret and re-encrypting rows
// written before encryption was enabled.
package vaultctl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/snippetvault/internal/common"
	"github.com/dmitrijs2005/snippetvault/internal/cryptox"
	"github.com/dmitrijs2005/snippetvault/internal/logging"
	"github.com/dmitrijs2005/snippetvault/internal/server/config"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/snippetvault/internal/server/services"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// secretBytes random bytes encode to exactly cryptox.SecretLength characters.
const secretBytes = cryptox.SecretLength * 3 / 4

var errUsage = errors.New("usage: vaultctl genkey | check-key | migrate-legacy")

// Test seams.
var (
	readPassword = term.ReadPassword
	loadConfig   = config.LoadConfig
	openDB       = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
)

// Run executes the command named by args[0] and returns the process exit code.
func Run(ctx context.Context, args []string, out io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(out, errUsage)
		return 2
	}

	var err error
	switch args[0] {
	case "genkey":
		err = GenKey(out)
	case "check-key":
		err = CheckKey(out)
	case "migrate-legacy":
		err = MigrateLegacy(ctx, out)
	case "help", "-h", "--help":
		fmt.Fprintln(out, errUsage)
		return 0
	default:
		fmt.Fprintf(out, "unknown command %q\n%v\n", args[0], errUsage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1
	}
	return 0
}

// GenKey prints a fresh random secret usable as ENCRYPTION_KEY.
func GenKey(out io.Writer) error {
	secret, err := common.MakeRandURLToken(secretBytes)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, secret)
	return err
}

// CheckKey reports whether the secret from ENCRYPTION_KEY, or typed at the
// prompt when the variable is unset, initializes the engine.
func CheckKey(out io.Writer) error {
	secret, err := readSecret(out)
	if err != nil {
		return err
	}

	if _, err := cryptox.NewEngine(secret); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, "encryption key OK")
	return err
}

func readSecret(out io.Writer) (string, error) {
	if v, ok := os.LookupEnv("ENCRYPTION_KEY"); ok && v != "" {
		return v, nil
	}

	if _, err := fmt.Fprint(out, "Enter encryption key: "); err != nil {
		return "", err
	}
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(b)

	return strings.TrimRight(string(b), "\r\n"), nil
}

// MigrateLegacy re-encrypts every snippet still stored with the legacy
// plaintext marker, using the server configuration for the database and
// the secret.
func MigrateLegacy(ctx context.Context, out io.Writer) error {
	cfg := loadConfig()
	logger := logging.New(cfg.LogFormat, os.Stderr).With("run_id", uuid.NewString())

	engine, err := cryptox.NewEngine(cfg.EncryptionKey)
	if err != nil {
		return err
	}

	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	m := services.NewLegacyMigrator(db, rm, engine, services.NewAuditService(db, rm), logger)

	n, err := m.MigrateLegacyPlaintext(ctx)
	if err != nil {
		return fmt.Errorf("migrated %d snippets before failure: %w", n, err)
	}

	_, err = fmt.Fprintf(out, "migrated %d snippets\n", n)
	return err
}
