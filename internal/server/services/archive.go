package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/snippetvault/internal/dbx"
	"github.com/dmitrijs2005/snippetvault/internal/logging"
	sc "github.com/dmitrijs2005/snippetvault/internal/server/config"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const archiveBatchSize = 1000

// ObjectPutter is the part of the S3 client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// NewS3Client builds an S3 client for the configured endpoint with static
// credentials. It works against MinIO as well as AWS.
func NewS3Client(ctx context.Context, cfg *sc.Config) (*s3.Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// AuditArchiver copies audit entries to object storage as JSON Lines. A
// cursor row remembers the last archived id; audit rows are never modified.
// Entries younger than settle are left for a later run, so settle must be
// longer than any transaction that records audit entries.
type AuditArchiver struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectPutter
	bucket      string
	settle      time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewAuditArchiver(db *sql.DB, m repomanager.RepositoryManager, store ObjectPutter, bucket string, settle time.Duration, logger logging.Logger) *AuditArchiver {
	return &AuditArchiver{
		db:          db,
		repomanager: m,
		store:       store,
		bucket:      bucket,
		settle:      settle,
		logger:      logger.With("module", "audit-archive"),
		now:         time.Now,
	}
}

func (a *AuditArchiver) objectKey(first, last int64) string {
	d := a.now().UTC()
	return fmt.Sprintf("audit/%04d/%02d/%02d/%d-%d-%s.jsonl", d.Year(), d.Month(), d.Day(), first, last, uuid.New())
}

// ArchiveOnce uploads the next batch and advances the cursor. It returns the
// number of archived entries; zero means there was nothing new.
func (a *AuditArchiver) ArchiveOnce(ctx context.Context) (int, error) {
	var n int
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.repomanager.AuditLog(tx)

		cursor, err := repo.GetCursor(ctx)
		if err != nil {
			return err
		}

		entries, err := repo.ListAfter(ctx, cursor, a.settle, archiveBatchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		body, err := encodeJSONLines(entries)
		if err != nil {
			return err
		}

		first, last := entries[0].ID, entries[len(entries)-1].ID
		key := a.objectKey(first, last)
		_, err = a.store.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/x-ndjson"),
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}

		if err := repo.SetCursor(ctx, last); err != nil {
			return err
		}

		n = len(entries)
		a.logger.Info(ctx, "audit entries archived", "key", key, "count", n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Run archives on every tick until ctx is done.
func (a *AuditArchiver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.ArchiveOnce(ctx); err != nil {
				a.logger.Error(ctx, "audit archive failed", "error", err)
			}
		}
	}
}

func encodeJSONLines(entries []*models.AuditEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("encode audit entry %d: %w", e.ID, err)
		}
	}
	return buf.Bytes(), nil
}
