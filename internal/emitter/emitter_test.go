package emitter_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/feral-file/staking-indexer/internal/domain"
	"github.com/feral-file/staking-indexer/internal/emitter"
	"github.com/feral-file/staking-indexer/internal/logger"
	"github.com/feral-file/staking-indexer/internal/messaging"
	"github.com/feral-file/staking-indexer/internal/mocks"
)

const (
	factoryAddress = "0x1111111111111111111111111111111111111111"
	poolAddress    = "0x2222222222222222222222222222222222222222"
	newPoolAddress = "0x3333333333333333333333333333333333333333"
	userAddress    = "0x4444444444444444444444444444444444444444"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// testEmitterMocks contains all the mocks needed for testing the emitter
type testEmitterMocks struct {
	ctrl       *gomock.Controller
	subscriber *mocks.MockSubscriber
	publisher  *mocks.MockPublisher
	store      *mocks.MockCursorStore
	clock      *mocks.MockClock
}

// setupTestEmitter creates all the mocks for testing
func setupTestEmitter(t *testing.T) *testEmitterMocks {
	ctrl := gomock.NewController(t)

	return &testEmitterMocks{
		ctrl:       ctrl,
		subscriber: mocks.NewMockSubscriber(ctrl),
		publisher:  mocks.NewMockPublisher(ctrl),
		store:      mocks.NewMockCursorStore(ctrl),
		clock:      mocks.NewMockClock(ctrl),
	}
}

func (tm *testEmitterMocks) newEmitter(cfg emitter.Config) emitter.Emitter {
	cfg.ChainID = domain.ChainEthereumMainnet
	if cfg.CursorSaveFreq == 0 {
		cfg.CursorSaveFreq = 10
	}
	if cfg.CursorSaveDelay == 0 {
		cfg.CursorSaveDelay = 5 * time.Second
	}
	return emitter.NewEmitter(tm.subscriber, tm.publisher, tm.store, cfg, tm.clock)
}

func stakeEvent(contract string, block uint64) *domain.Event {
	return &domain.Event{
		Meta: domain.EventMeta{
			Chain:       domain.ChainEthereumMainnet,
			Contract:    contract,
			TxHash:      "0xtx",
			BlockNumber: block,
			Timestamp:   time.Unix(1700000000, 0),
		},
		Kind:  domain.EventKindStake,
		Stake: &domain.StakeEvent{User: userAddress, Amount: "100"},
	}
}

func TestEmitter_Run_WithStartBlock(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := tm.newEmitter(emitter.Config{StartBlock: 1000, Pools: []string{poolAddress}})

	now := time.Now()
	tm.clock.EXPECT().Now().Return(now).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Duration(0)).AnyTimes()

	tm.store.EXPECT().GetWatchedPools(gomock.Any(), string(domain.ChainEthereumMainnet)).Return(nil, nil)
	tm.store.EXPECT().GetBlockCursor(gomock.Any(), string(domain.ChainEthereumMainnet)).Return(uint64(0), nil)

	event := stakeEvent(poolAddress, 1001)
	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler, checkpoint messaging.CheckpointHandler) error {
			_ = handler(event)

			// Cancel context to stop the emitter
			cancel()
			return ctx.Err()
		})

	tm.publisher.EXPECT().PublishEvent(gomock.Any(), event).Return(nil)

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitter_Run_WithLastBlockCursor(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The persisted cursor wins over the configured start block
	e := tm.newEmitter(emitter.Config{StartBlock: 10})

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.store.EXPECT().GetWatchedPools(gomock.Any(), gomock.Any()).Return(nil, nil)
	tm.store.EXPECT().GetBlockCursor(gomock.Any(), string(domain.ChainEthereumMainnet)).Return(uint64(500), nil)

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(501), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler, checkpoint messaging.CheckpointHandler) error {
			cancel()
			return ctx.Err()
		})

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitter_Run_WithNoLastBlockCursor(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := tm.newEmitter(emitter.Config{})

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.store.EXPECT().GetWatchedPools(gomock.Any(), gomock.Any()).Return(nil, nil)
	tm.store.EXPECT().GetBlockCursor(gomock.Any(), string(domain.ChainEthereumMainnet)).Return(uint64(0), nil)
	tm.subscriber.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(1000), nil)

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler, checkpoint messaging.CheckpointHandler) error {
			cancel()
			return ctx.Err()
		})

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitter_Run_FiltersUnknownContracts(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := tm.newEmitter(emitter.Config{StartBlock: 1, Factories: []string{factoryAddress}})

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Duration(0)).AnyTimes()
	tm.store.EXPECT().GetWatchedPools(gomock.Any(), gomock.Any()).Return([]string{poolAddress}, nil)
	tm.store.EXPECT().GetBlockCursor(gomock.Any(), gomock.Any()).Return(uint64(0), nil)

	known := stakeEvent(poolAddress, 2)
	unknown := stakeEvent(userAddress, 2)
	// a pool address emitting a factory event is not a factory
	spoofed := &domain.Event{
		Meta:                 domain.EventMeta{Chain: domain.ChainEthereumMainnet, Contract: poolAddress, TxHash: "0xtx", BlockNumber: 2},
		Kind:                 domain.EventKindRequestStatusChanged,
		RequestStatusChanged: &domain.RequestStatusChangedEvent{ID: "1", Status: "3"},
	}

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler, checkpoint messaging.CheckpointHandler) error {
			for _, ev := range []*domain.Event{known, unknown, spoofed} {
				if err := handler(ev); err != nil {
					return err
				}
			}
			cancel()
			return ctx.Err()
		})

	tm.publisher.EXPECT().PublishEvent(gomock.Any(), known).Return(nil).Times(1)

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitter_Run_FollowsDeployedPools(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := tm.newEmitter(emitter.Config{StartBlock: 1, Factories: []string{factoryAddress}})

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Duration(0)).AnyTimes()
	tm.store.EXPECT().GetWatchedPools(gomock.Any(), gomock.Any()).Return(nil, nil)
	tm.store.EXPECT().GetBlockCursor(gomock.Any(), gomock.Any()).Return(uint64(0), nil)

	deployed := &domain.Event{
		Meta:         domain.EventMeta{Chain: domain.ChainEthereumMainnet, Contract: factoryAddress, TxHash: "0xdeploy", BlockNumber: 3},
		Kind:         domain.EventKindPoolDeployed,
		PoolDeployed: &domain.PoolDeployedEvent{ID: "1", StakingAddress: newPoolAddress},
	}
	before := stakeEvent(newPoolAddress, 2)
	after := stakeEvent(newPoolAddress, 4)

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler, checkpoint messaging.CheckpointHandler) error {
			for _, ev := range []*domain.Event{before, deployed, after} {
				if err := handler(ev); err != nil {
					return err
				}
			}
			cancel()
			return ctx.Err()
		})

	tm.store.EXPECT().AddWatchedPool(gomock.Any(), string(domain.ChainEthereumMainnet), newPoolAddress).Return(nil)
	gomock.InOrder(
		tm.publisher.EXPECT().PublishEvent(gomock.Any(), deployed).Return(nil),
		tm.publisher.EXPECT().PublishEvent(gomock.Any(), after).Return(nil),
	)

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitter_Run_CursorSaveByBlockFrequency(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := tm.newEmitter(emitter.Config{StartBlock: 1000, CursorSaveFreq: 5})

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Duration(0)).AnyTimes()
	tm.store.EXPECT().GetWatchedPools(gomock.Any(), gomock.Any()).Return(nil, nil)
	tm.store.EXPECT().GetBlockCursor(gomock.Any(), gomock.Any()).Return(uint64(0), nil)

	// Block 1003: 1003 - 1000 < 5, skipped
	// Block 1005: 1005 - 1000 >= 5, saved
	// Block 1009: 1009 - 1005 < 5, skipped
	// Block 1010: 1010 - 1005 >= 5, saved
	tm.store.EXPECT().SetBlockCursor(gomock.Any(), string(domain.ChainEthereumMainnet), uint64(1005)).Return(nil)
	tm.store.EXPECT().SetBlockCursor(gomock.Any(), string(domain.ChainEthereumMainnet), uint64(1010)).Return(nil)

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler, checkpoint messaging.CheckpointHandler) error {
			for _, block := range []uint64{1003, 1005, 1009, 1010} {
				if err := checkpoint(block); err != nil {
					return err
				}
			}
			cancel()
			return ctx.Err()
		})

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitter_Run_CursorSaveByDelay(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := tm.newEmitter(emitter.Config{StartBlock: 1000, CursorSaveFreq: 100})

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(10 * time.Second).AnyTimes()
	tm.store.EXPECT().GetWatchedPools(gomock.Any(), gomock.Any()).Return(nil, nil)
	tm.store.EXPECT().GetBlockCursor(gomock.Any(), gomock.Any()).Return(uint64(0), nil)
	tm.store.EXPECT().SetBlockCursor(gomock.Any(), gomock.Any(), uint64(1001)).Return(nil)

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1000), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler, checkpoint messaging.CheckpointHandler) error {
			_ = checkpoint(1001)
			cancel()
			return ctx.Err()
		})

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitter_Run_PublishErrorStopsSubscription(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	e := tm.newEmitter(emitter.Config{StartBlock: 1, Pools: []string{poolAddress}})

	tm.clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	tm.store.EXPECT().GetWatchedPools(gomock.Any(), gomock.Any()).Return(nil, nil)
	tm.store.EXPECT().GetBlockCursor(gomock.Any(), gomock.Any()).Return(uint64(0), nil)

	tm.subscriber.
		EXPECT().
		SubscribeEvents(gomock.Any(), uint64(1), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fromBlock uint64, handler messaging.EventHandler, checkpoint messaging.CheckpointHandler) error {
			return handler(stakeEvent(poolAddress, 1))
		})
	tm.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(errors.New("nats down"))

	err := e.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish event")
}

func TestEmitter_Run_GetBlockCursorError(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	e := tm.newEmitter(emitter.Config{})

	tm.store.EXPECT().GetWatchedPools(gomock.Any(), gomock.Any()).Return(nil, nil)
	tm.store.
		EXPECT().
		GetBlockCursor(gomock.Any(), string(domain.ChainEthereumMainnet)).
		Return(uint64(0), assert.AnError)

	err := e.Run(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get block cursor")
}

func TestEmitter_Run_GetLatestBlockError(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	e := tm.newEmitter(emitter.Config{})

	tm.store.EXPECT().GetWatchedPools(gomock.Any(), gomock.Any()).Return(nil, nil)
	tm.store.EXPECT().GetBlockCursor(gomock.Any(), gomock.Any()).Return(uint64(0), nil)
	tm.subscriber.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(0), assert.AnError)

	err := e.Run(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get latest block number")
}

func TestEmitter_Run_WatchedPoolsError(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	e := tm.newEmitter(emitter.Config{})
	tm.store.EXPECT().GetWatchedPools(gomock.Any(), gomock.Any()).Return(nil, assert.AnError)

	err := e.Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestEmitter_Close(t *testing.T) {
	tm := setupTestEmitter(t)
	defer tm.ctrl.Finish()

	e := tm.newEmitter(emitter.Config{})
	tm.subscriber.EXPECT().Close()
	tm.publisher.EXPECT().Close()

	e.Close()
}
