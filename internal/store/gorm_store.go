package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type gormStore struct {
	CursorStore
	db *gorm.DB
}

// NewStore creates a new store backed by a gorm connection (PostgreSQL or SQLite)
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		CursorStore: NewCursorStore(db),
		db:          db,
	}
}

// Open opens a gorm connection for the given driver
func Open(driver, dsn string, logLevel gormlogger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres, "":
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every table managed by the store
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(schema.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 10
//   - MaxIdleConns: 2
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 10
	}
	if maxIdleConns == 0 {
		maxIdleConns = 2
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// WithTx runs fn inside a single database transaction
func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// insertOnce inserts value and reports whether a new row was written
func (s *gormStore) insertOnce(ctx context.Context, value interface{}) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(value)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// first loads the record with the given primary key into dest; returns false when absent
func (s *gormStore) first(ctx context.Context, dest interface{}, id string) (bool, error) {
	err := s.db.WithContext(ctx).Where("id = ?", id).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkEventProcessed records the idempotency key of an event
func (s *gormStore) MarkEventProcessed(ctx context.Context, event *schema.ProcessedEvent) error {
	inserted, err := s.insertOnce(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	if !inserted {
		return fmt.Errorf("%w: %s", domain.ErrEventAlreadyProcessed, event.ID)
	}
	return nil
}

// GetToken retrieves a fungible token by contract address
func (s *gormStore) GetToken(ctx context.Context, id string) (*schema.Token, error) {
	var token schema.Token
	found, err := s.first(ctx, &token, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &token, nil
}

// CreateToken inserts a token, leaving an existing record untouched
func (s *gormStore) CreateToken(ctx context.Context, token *schema.Token) error {
	if _, err := s.insertOnce(ctx, token); err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetNFToken retrieves a non-fungible token
func (s *gormStore) GetNFToken(ctx context.Context, id string) (*schema.NFToken, error) {
	var token schema.NFToken
	found, err := s.first(ctx, &token, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get nf token: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &token, nil
}

// SaveNFToken upserts a non-fungible token
func (s *gormStore) SaveNFToken(ctx context.Context, token *schema.NFToken) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner", "pool_id", "updated_at"}),
		}).
		Create(token).Error
	if err != nil {
		return fmt.Errorf("failed to save nf token: %w", err)
	}
	return nil
}

// GetPool retrieves a pool by address
func (s *gormStore) GetPool(ctx context.Context, id string) (*schema.Pool, error) {
	var pool schema.Pool
	found, err := s.first(ctx, &pool, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &pool, nil
}

// CreatePool inserts a pool
func (s *gormStore) CreatePool(ctx context.Context, pool *schema.Pool) error {
	inserted, err := s.insertOnce(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	if !inserted {
		return fmt.Errorf("%w: %s", domain.ErrPoolAlreadyExists, pool.ID)
	}
	return nil
}

// SavePool persists every field of an existing pool
func (s *gormStore) SavePool(ctx context.Context, pool *schema.Pool) error {
	if err := s.db.WithContext(ctx).Save(pool).Error; err != nil {
		return fmt.Errorf("failed to save pool: %w", err)
	}
	return nil
}

// GetUser retrieves a per-pool user
func (s *gormStore) GetUser(ctx context.Context, id string) (*schema.User, error) {
	var user schema.User
	found, err := s.first(ctx, &user, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// FirstOrCreateUser inserts user unless it exists, then returns the stored record
func (s *gormStore) FirstOrCreateUser(ctx context.Context, user *schema.User) (*schema.User, error) {
	if _, err := s.insertOnce(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	var stored schema.User
	found, err := s.first(ctx, &stored, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, user.ID)
	}
	return &stored, nil
}

// SaveUser persists every field of a user
func (s *gormStore) SaveUser(ctx context.Context, user *schema.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// ListUsersByPool lists the users of a pool ordered by address
func (s *gormStore) ListUsersByPool(ctx context.Context, poolID string, limit int, offset uint64) ([]schema.User, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.User{}).Where("pool_id = ?", poolID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []schema.User
	q := query.Order("address ASC").Offset(int(offset)) //nolint:gosec,G115
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, uint64(total), nil //nolint:gosec,G115
}

// CreateHistory appends a history entry
func (s *gormStore) CreateHistory(ctx context.Context, entry *schema.History) error {
	inserted, err := s.insertOnce(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create history: %w", err)
	}
	if !inserted {
		return fmt.Errorf("%w: %s", domain.ErrHistoryExists, entry.ID)
	}
	return nil
}

// ListHistory lists history entries, newest first
func (s *gormStore) ListHistory(ctx context.Context, filter HistoryFilter) ([]schema.History, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.History{})
	if filter.PoolID != "" {
		query = query.Where("pool_id = ?", filter.PoolID)
	}
	if filter.UserAddress != "" {
		query = query.Where("user_address = ?", filter.UserAddress)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count history: %w", err)
	}

	q := query.Order("block_number DESC").Order("log_index DESC").Offset(int(filter.Offset)) //nolint:gosec,G115
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var entries []schema.History
	if err := q.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list history: %w", err)
	}

	return entries, uint64(total), nil //nolint:gosec,G115
}

// GetFactory retrieves a factory by address
func (s *gormStore) GetFactory(ctx context.Context, id string) (*schema.Factory, error) {
	var factory schema.Factory
	found, err := s.first(ctx, &factory, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get factory: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &factory, nil
}

// SaveFactory upserts a factory
func (s *gormStore) SaveFactory(ctx context.Context, factory *schema.Factory) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "total_pools", "total_requests", "pool_addresses", "updated_at"}),
		}).
		Create(factory).Error
	if err != nil {
		return fmt.Errorf("failed to save factory: %w", err)
	}
	return nil
}

// GetRequest retrieves a request by "<factory>-<requestId>"
func (s *gormStore) GetRequest(ctx context.Context, id string) (*schema.Request, error) {
	var request schema.Request
	found, err := s.first(ctx, &request, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &request, nil
}

// CreateRequest inserts a request
func (s *gormStore) CreateRequest(ctx context.Context, request *schema.Request) error {
	inserted, err := s.insertOnce(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if !inserted {
		return fmt.Errorf("%w: %s", domain.ErrRequestAlreadyExists, request.ID)
	}
	return nil
}

// SaveRequest persists every field of a request
func (s *gormStore) SaveRequest(ctx context.Context, request *schema.Request) error {
	if err := s.db.WithContext(ctx).Save(request).Error; err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}
