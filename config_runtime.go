package gearshop

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/gearshop/gearshop/pkg/crypto"
	"github.com/gearshop/gearshop/pkg/storage"
	memorystore "github.com/gearshop/gearshop/pkg/storage/memory"
	"github.com/gearshop/gearshop/pkg/storage/postgres"
	"github.com/gearshop/gearshop/pkg/token"
	"github.com/go-logr/logr"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type StorageBackend string

const (
	StorageBackendMemory   StorageBackend = "memory"
	StorageBackendPostgres StorageBackend = "postgres"
)

type HasherBackend string

const (
	HasherBackendBcrypt HasherBackend = "bcrypt"
	HasherBackendPBKDF2 HasherBackend = "pbkdf2"
)

type RuntimeConfig struct {
	Storage StorageConfig
	Hasher  HasherConfig
}

type StorageConfig struct {
	Backend  StorageBackend
	Postgres PostgresConfig
}

type PostgresConfig struct {
	DriverName      string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	OpenDB          func(driverName string, dsn string) (*sql.DB, error)
}

type HasherConfig struct {
	Backend HasherBackend
	Bcrypt  crypto.BcryptOptions
	PBKDF2  crypto.PBKDF2Options
}

type TokenConfig struct {
	// Secret signs session tokens. At least 32 bytes.
	Secret string
	// TTL bounds session lifetime. Defaults to one hour.
	TTL time.Duration
}

// CatalogConfig is the single home of the category allowlists. Both the
// policy layer and the query layer consume it; nothing else hard-codes
// category names.
type CatalogConfig struct {
	// AllowedCategories is the closed set of categories products may carry
	// and listings are filtered by.
	AllowedCategories []string
	// PurgeableCategories is the subset of legacy categories the bulk purge
	// operation may remove.
	PurgeableCategories []string
}

// BootstrapConfig identifies the single well-known super_admin account
// created when none exists.
type BootstrapConfig struct {
	Username string
	Email    string
	Password string
}

type Config struct {
	Store          storage.Store
	Hasher         crypto.Hasher
	TokenIssuer    token.Issuer
	TokenValidator token.Validator
	Logger         logr.Logger
	Tokens         TokenConfig
	Catalog        CatalogConfig
	Bootstrap      BootstrapConfig
	Runtime        RuntimeConfig
}

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		AllowedCategories:   []string{"keyboards", "mice", "headphones", "monitors", "speakers"},
		PurgeableCategories: []string{"watches", "clocks"},
	}
}

func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		Username: "superadmin",
		Email:    "superadmin@gmail.com",
		Password: "SuperAdmin123",
	}
}

func (c Config) initialize(ctx context.Context) (func() error, Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	config := c
	config.Logger = resolveLogger(config.Logger)

	if len(config.Catalog.AllowedCategories) == 0 {
		config.Catalog.AllowedCategories = DefaultCatalogConfig().AllowedCategories
	}
	if len(config.Catalog.PurgeableCategories) == 0 {
		config.Catalog.PurgeableCategories = DefaultCatalogConfig().PurgeableCategories
	}
	if config.Bootstrap.Username == "" || config.Bootstrap.Email == "" || config.Bootstrap.Password == "" {
		config.Bootstrap = DefaultBootstrapConfig()
	}

	closeStorage, config, err := initializeStorage(ctx, config)
	if err != nil {
		return nil, Config{}, err
	}

	config, err = initializeHasher(config)
	if err != nil {
		_ = closeStorage()
		return nil, Config{}, err
	}

	config, err = initializeTokens(config)
	if err != nil {
		_ = closeStorage()
		return nil, Config{}, err
	}

	return closeStorage, config, nil
}

func initializeStorage(ctx context.Context, config Config) (func() error, Config, error) {
	if config.Store != nil {
		return noopCloser, config, nil
	}

	backend := config.Runtime.Storage.Backend
	if backend == "" {
		backend = StorageBackendMemory
	}

	switch backend {
	case StorageBackendMemory:
		config.Store = memorystore.NewAdapter()
		config.Logger.V(1).Info("initialized memory storage backend")
		return noopCloser, config, nil
	case StorageBackendPostgres:
		return initializePostgres(ctx, config)
	default:
		return nil, Config{}, fmt.Errorf("gearshop config: unsupported runtime.storage.backend %q", backend)
	}
}

func initializeHasher(config Config) (Config, error) {
	if config.Hasher != nil {
		return config, nil
	}

	backend := config.Runtime.Hasher.Backend
	if backend == "" {
		backend = HasherBackendBcrypt
	}

	switch backend {
	case HasherBackendBcrypt:
		config.Hasher = crypto.NewBcryptHasher(config.Runtime.Hasher.Bcrypt)
	case HasherBackendPBKDF2:
		config.Hasher = crypto.NewPBKDF2Hasher(config.Runtime.Hasher.PBKDF2)
	default:
		return Config{}, fmt.Errorf("gearshop config: unsupported runtime.hasher.backend %q", backend)
	}

	config.Logger.V(1).Info("initialized password hasher", "backend", backend)
	return config, nil
}

func initializeTokens(config Config) (Config, error) {
	if config.Tokens.TTL <= 0 {
		config.Tokens.TTL = time.Hour
	}

	if config.TokenIssuer != nil && config.TokenValidator != nil {
		return config, nil
	}

	codec, err := token.NewJWTCodec([]byte(config.Tokens.Secret))
	if err != nil {
		return Config{}, fmt.Errorf("gearshop config: %w", err)
	}

	if config.TokenIssuer == nil {
		config.TokenIssuer = codec
	}
	if config.TokenValidator == nil {
		config.TokenValidator = codec
	}
	return config, nil
}

func initializePostgres(ctx context.Context, config Config) (func() error, Config, error) {
	pgConfig := config.Runtime.Storage.Postgres
	if pgConfig.DSN == "" {
		return nil, Config{}, fmt.Errorf("gearshop config: runtime.storage.postgres.dsn is required")
	}

	if pgConfig.DriverName == "" {
		pgConfig.DriverName = "pgx"
	}
	if pgConfig.PingTimeout <= 0 {
		pgConfig.PingTimeout = 5 * time.Second
	}
	if pgConfig.OpenDB == nil {
		pgConfig.OpenDB = sql.Open
	}

	db, err := pgConfig.OpenDB(pgConfig.DriverName, pgConfig.DSN)
	if err != nil {
		return nil, Config{}, fmt.Errorf("gearshop config: failed to open postgres database: %w", err)
	}

	if pgConfig.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pgConfig.MaxOpenConns)
	}
	if pgConfig.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pgConfig.MaxIdleConns)
	}
	if pgConfig.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pgConfig.ConnMaxLifetime)
	}
	if pgConfig.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pgConfig.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pgConfig.PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, Config{}, fmt.Errorf("gearshop config: failed to ping postgres database: %w", err)
	}

	adapter, err := postgres.NewAdapter(db)
	if err != nil {
		_ = db.Close()
		return nil, Config{}, fmt.Errorf("gearshop config: failed to initialize postgres adapter: %w", err)
	}

	config.Store = adapter

	closeResource := joinClosers(db.Close, adapter.Close)

	config.Runtime.Storage.Postgres = pgConfig
	config.Logger.V(1).Info("initialized postgres storage backend", "driver", pgConfig.DriverName, "max_open_conns", pgConfig.MaxOpenConns, "max_idle_conns", pgConfig.MaxIdleConns)
	return closeResource, config, nil
}

func joinClosers(closers ...func() error) func() error {
	return func() error {
		var errs []error

		for i := len(closers) - 1; i >= 0; i-- {
			if closers[i] == nil {
				continue
			}
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}

		return stderrors.Join(errs...)
	}
}

func noopCloser() error {
	return nil
}
