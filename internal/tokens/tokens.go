package tokens

import (
	"context"

	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/store"
	"github.com/feral-file/staking-indexer/internal/store/schema"
)

// Metadata is the best-effort ERC20 metadata of a contract.
// Fields that could not be fetched keep their zero value.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// MetadataFetcher looks up token metadata. It never fails: lookup errors yield zero values.
//
//go:generate mockgen -source=tokens.go -destination=../mocks/tokens.go -package=mocks -mock_names=MetadataFetcher=MockMetadataFetcher,Registry=MockTokenRegistry
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, address string) Metadata
}

// Registry creates token records on first reference
type Registry interface {
	// FetchOrCreate returns the stored token, creating it from fetched metadata on first use.
	// Stored tokens are never refreshed.
	FetchOrCreate(ctx context.Context, tx store.Store, address string) (*schema.Token, error)
	// GetOrCreateNFToken returns the stored non-fungible token, creating it on first use
	GetOrCreateNFToken(ctx context.Context, tx store.Store, contract, tokenID, pool string) (*schema.NFToken, error)
	// UpdateNFTokenOwner sets the current owner of a non-fungible token. An empty owner means unstaked.
	UpdateNFTokenOwner(ctx context.Context, tx store.Store, contract, tokenID, pool, owner string) error
}

type registry struct {
	fetcher MetadataFetcher
}

// NewRegistry creates a new token registry
func NewRegistry(fetcher MetadataFetcher) Registry {
	return &registry{fetcher: fetcher}
}

func (r *registry) FetchOrCreate(ctx context.Context, tx store.Store, address string) (*schema.Token, error) {
	address = domain.NormalizeAddress(address)

	token, err := tx.GetToken(ctx, address)
	if err != nil {
		return nil, err
	}
	if token != nil {
		return token, nil
	}

	md := r.fetcher.FetchMetadata(ctx, address)
	token = &schema.Token{
		ID:       address,
		Name:     md.Name,
		Symbol:   md.Symbol,
		Decimals: md.Decimals,
	}
	if err := tx.CreateToken(ctx, token); err != nil {
		return nil, err
	}

	return token, nil
}

func (r *registry) GetOrCreateNFToken(ctx context.Context, tx store.Store, contract, tokenID, pool string) (*schema.NFToken, error) {
	id := domain.NFTokenID(contract, tokenID)

	token, err := tx.GetNFToken(ctx, id)
	if err != nil {
		return nil, err
	}
	if token != nil {
		return token, nil
	}

	token = &schema.NFToken{
		ID:              id,
		ContractAddress: domain.NormalizeAddress(contract),
		TokenID:         tokenID,
		PoolID:          domain.NormalizeAddress(pool),
	}
	if err := tx.SaveNFToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (r *registry) UpdateNFTokenOwner(ctx context.Context, tx store.Store, contract, tokenID, pool, owner string) error {
	token, err := r.GetOrCreateNFToken(ctx, tx, contract, tokenID, pool)
	if err != nil {
		return err
	}

	token.Owner = domain.NormalizeAddress(owner)
	token.PoolID = domain.NormalizeAddress(pool)
	return tx.SaveNFToken(ctx, token)
}
