package ethereum

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/feral-file/staking-indexer/internal/adapter"
	"github.com/feral-file/staking-indexer/internal/logger"
	"github.com/feral-file/staking-indexer/internal/tokens"
)

const erc20ABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

// bytes32 variants used by a few legacy tokens
const erc20Bytes32ABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"bytes32"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"type":"function"}
]`

var (
	parsedERC20ABI        = mustParseABI(erc20ABI)
	parsedERC20Bytes32ABI = mustParseABI(erc20Bytes32ABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

type metadataFetcher struct {
	client adapter.EthClient
	cache  *lru.Cache
}

// NewMetadataFetcher creates a best-effort ERC20 metadata fetcher backed by contract calls
func NewMetadataFetcher(client adapter.EthClient, cacheSize int) (tokens.MetadataFetcher, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &metadataFetcher{client: client, cache: cache}, nil
}

// FetchMetadata calls name(), symbol() and decimals(). A failing call leaves its field empty.
func (f *metadataFetcher) FetchMetadata(ctx context.Context, address string) tokens.Metadata {
	key := strings.ToLower(address)
	if v, ok := f.cache.Get(key); ok {
		return v.(tokens.Metadata)
	}

	contract := common.HexToAddress(address)
	md := tokens.Metadata{
		Name:   f.callString(ctx, contract, "name"),
		Symbol: f.callString(ctx, contract, "symbol"),
	}

	if out, err := f.call(ctx, parsedERC20ABI, contract, "decimals"); err == nil && len(out) == 1 {
		if d, ok := out[0].(uint8); ok {
			md.Decimals = d
		}
	} else if err != nil {
		logger.DebugCtx(ctx, "decimals() call failed", zap.String("contract", address), zap.Error(err))
	}

	f.cache.Add(key, md)
	return md
}

func (f *metadataFetcher) callString(ctx context.Context, contract common.Address, method string) string {
	out, err := f.call(ctx, parsedERC20ABI, contract, method)
	if err == nil && len(out) == 1 {
		if s, ok := out[0].(string); ok {
			return s
		}
	}

	out, err2 := f.call(ctx, parsedERC20Bytes32ABI, contract, method)
	if err2 == nil && len(out) == 1 {
		if b, ok := out[0].([32]byte); ok {
			return strings.TrimRight(string(b[:]), "\x00")
		}
	}

	logger.DebugCtx(ctx, "ERC20 metadata call failed",
		zap.String("contract", contract.Hex()),
		zap.String("method", method),
		zap.Error(err))
	return ""
}

func (f *metadataFetcher) call(ctx context.Context, contractABI abi.ABI, contract common.Address, method string) ([]interface{}, error) {
	data, err := contractABI.Pack(method)
	if err != nil {
		return nil, err
	}

	result, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	return contractABI.Unpack(method, result)
}
