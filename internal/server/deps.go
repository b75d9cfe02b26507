package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/dmitrijs2005/fileshare/internal/server/blobstore"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/dmitrijs2005/fileshare/internal/server/jobs"
	"github.com/dmitrijs2005/fileshare/internal/server/notify"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fileshare/internal/server/sessions"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// OpenRepositories connects to Postgres and applies pending migrations, or
// returns in-memory repositories when cfg.Memory is set. The returned close
// function releases the connection pool.
func OpenRepositories(ctx context.Context, cfg *config.Config) (repomanager.RepositoryManager, func() error, error) {
	if cfg.Memory {
		return repomanager.NewMemoryRepositoryManager(), func() error { return nil }, nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return rm, db.Close, nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if cfg.Memory {
		return blobstore.NewMemoryStore(), nil
	}
	return blobstore.NewS3Store(ctx, blobstore.S3Config{
		AccessKey:    cfg.S3RootUser,
		SecretKey:    cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
}

// newSigner builds the token signer. Without a configured secret a random
// one is generated, so every link dies with the process.
func newSigner(ctx context.Context, cfg *config.Config, logger logging.Logger) (*auth.Signer, error) {
	secret := []byte(cfg.SigningSecret)
	if len(secret) == 0 {
		var err error
		if secret, err = auth.GenerateSecret(); err != nil {
			return nil, fmt.Errorf("generating signing secret: %w", err)
		}
		logger.Warn(ctx, "no signing_secret configured, using a random one; verification and download links will not survive a restart")
	}

	previous := make([][]byte, 0, len(cfg.PreviousSigningSecrets))
	for _, p := range cfg.PreviousSigningSecrets {
		previous = append(previous, []byte(p))
	}
	return auth.NewSigner(secret, previous...)
}

func redisOptions(cfg *config.Config) *redis.Options {
	return &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
}

func asynqRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
}

// openSessionStore returns the configured session store. The memory store
// is also returned separately so the caller can run its janitor.
func openSessionStore(ctx context.Context, cfg *config.Config) (sessions.Store, *sessions.MemoryStore, func() error, error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		m := sessions.NewMemoryStore()
		return m, m, func() error { return nil }, nil
	}

	rdb := redis.NewClient(redisOptions(cfg))
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return sessions.NewRedisStore(rdb), nil, rdb.Close, nil
}

func newSMTPNotifier(cfg *config.Config) (*notify.SMTPNotifier, error) {
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUser,
		Password:   cfg.SMTPPassword,
		From:       cfg.SMTPFrom,
		Encryption: cfg.SMTPEncryption,
	})
}

// newNotifier selects mail delivery: logged, sent inline over SMTP, or
// queued for cmd/worker.
func newNotifier(cfg *config.Config, logger logging.Logger) (notify.Notifier, func() error, error) {
	switch cfg.MailMode {
	case config.MailModeSMTP:
		n, err := newSMTPNotifier(cfg)
		if err != nil {
			return nil, nil, err
		}
		return n, func() error { return nil }, nil
	case config.MailModeQueue:
		c := jobs.NewClient(asynqRedisOpt(cfg))
		return c, c.Close, nil
	default:
		return notify.NewLogNotifier(logger), func() error { return nil }, nil
	}
}
