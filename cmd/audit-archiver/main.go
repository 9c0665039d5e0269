// audit-archiver copies verified audit chain bundles from Postgres to an
// S3-compatible bucket.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/frousselet/unifi-mcp/pkg/archiver"
	"github.com/frousselet/unifi-mcp/pkg/audit"
	"github.com/frousselet/unifi-mcp/pkg/config"
)

type minioUploader struct {
	client *minio.Client
	bucket string
}

func (m minioUploader) Upload(ctx context.Context, key string, body []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dsn := os.Getenv("AUDIT_DATABASE_URL")
	if dsn == "" {
		log.Error("AUDIT_DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	minioClient, err := minio.New(config.EnvOr("AUDIT_S3_ENDPOINT", "localhost:9000"), &minio.Options{
		Creds: credentials.NewStaticV4(
			config.EnvOr("AUDIT_S3_ACCESS_KEY", "minioadmin"),
			config.EnvOr("AUDIT_S3_SECRET_KEY", "minioadmin"), ""),
		Secure: config.EnvOrBool("AUDIT_S3_SECURE", false),
	})
	if err != nil {
		log.Error("minio init failed", "error", err)
		os.Exit(1)
	}

	store := audit.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		log.Error("audit migration failed", "error", err)
		os.Exit(1)
	}
	svc := archiver.New(store, minioUploader{
		client: minioClient,
		bucket: config.EnvOr("AUDIT_S3_BUCKET", "unifi-mcp-audit"),
	})

	onlyCaller := os.Getenv("ARCHIVER_CALLER")
	runOnce := config.EnvOrBool("ARCHIVER_RUN_ONCE", true)
	interval := config.EnvOrSeconds("ARCHIVER_INTERVAL_SEC", 5*time.Minute)

	run := func() {
		if onlyCaller != "" {
			key, err := svc.ArchiveCaller(ctx, onlyCaller)
			if err != nil {
				log.Error("archive caller failed", "caller", onlyCaller, "error", err)
				return
			}
			if key != "" {
				log.Info("archived audit bundle", "caller", onlyCaller, "key", key)
			}
			return
		}
		keys, err := svc.ArchiveAll(ctx, func(caller string, err error) {
			log.Error("archive caller failed", "caller", caller, "error", err)
		})
		if err != nil {
			log.Error("list callers failed", "error", err)
			return
		}
		for _, key := range keys {
			log.Info("archived audit bundle", "key", key)
		}
	}

	run()
	if runOnce {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
