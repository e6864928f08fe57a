package store

import (
	"context"

	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// HistoryFilter selects history entries for the query layer
type HistoryFilter struct {
	PoolID      string
	UserAddress string
	Limit       int
	Offset      uint64
}

// Store defines the interface for database operations
//
// Getters return (nil, nil) when the record does not exist; callers decide
// whether absence is fatal.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	CursorStore

	// WithTx runs fn inside a single database transaction. All writes made through
	// the Store passed to fn are committed together or not at all.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// MarkEventProcessed records the idempotency key of an event.
	// Returns domain.ErrEventAlreadyProcessed on replay.
	MarkEventProcessed(ctx context.Context, event *schema.ProcessedEvent) error

	// GetToken retrieves a fungible token by contract address
	GetToken(ctx context.Context, id string) (*schema.Token, error)
	// CreateToken inserts a token, leaving an existing record untouched
	CreateToken(ctx context.Context, token *schema.Token) error

	// GetNFToken retrieves a non-fungible token by "<contract>-<tokenId>"
	GetNFToken(ctx context.Context, id string) (*schema.NFToken, error)
	// SaveNFToken upserts a non-fungible token
	SaveNFToken(ctx context.Context, token *schema.NFToken) error

	// GetPool retrieves a pool by address
	GetPool(ctx context.Context, id string) (*schema.Pool, error)
	// CreatePool inserts a pool. Returns domain.ErrPoolAlreadyExists when the id is taken.
	CreatePool(ctx context.Context, pool *schema.Pool) error
	// SavePool persists every field of an existing pool
	SavePool(ctx context.Context, pool *schema.Pool) error

	// GetUser retrieves a per-pool user by "<pool>-<user>"
	GetUser(ctx context.Context, id string) (*schema.User, error)
	// FirstOrCreateUser inserts user unless a record with the same id exists,
	// then returns the stored record
	FirstOrCreateUser(ctx context.Context, user *schema.User) (*schema.User, error)
	// SaveUser persists every field of a user
	SaveUser(ctx context.Context, user *schema.User) error
	// ListUsersByPool lists the users of a pool ordered by address
	ListUsersByPool(ctx context.Context, poolID string, limit int, offset uint64) ([]schema.User, uint64, error)

	// CreateHistory appends a history entry. Returns domain.ErrHistoryExists for a duplicate id.
	CreateHistory(ctx context.Context, entry *schema.History) error
	// ListHistory lists history entries, newest first
	ListHistory(ctx context.Context, filter HistoryFilter) ([]schema.History, uint64, error)

	// GetFactory retrieves a factory by address
	GetFactory(ctx context.Context, id string) (*schema.Factory, error)
	// SaveFactory upserts a factory
	SaveFactory(ctx context.Context, factory *schema.Factory) error

	// GetRequest retrieves a request by "<factory>-<requestId>"
	GetRequest(ctx context.Context, id string) (*schema.Request, error)
	// CreateRequest inserts a request. Returns domain.ErrRequestAlreadyExists when the id is taken.
	CreateRequest(ctx context.Context, request *schema.Request) error
	// SaveRequest persists every field of a request
	SaveRequest(ctx context.Context, request *schema.Request) error
}
