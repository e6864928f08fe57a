package ethereum

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/feral-file/staking-indexer/internal/domain"
)

// Event signatures
var (
	// ERC20 pools: Stake(address indexed user, uint256 amount)
	stakeEventSignature = crypto.Keccak256Hash([]byte("Stake(address,uint256)"))
	// ERC721 pools: Stake(address indexed user, uint256[] tokenIds)
	nftStakeEventSignature = crypto.Keccak256Hash([]byte("Stake(address,uint256[])"))
	// ERC20 pools: Unstake(address indexed user, uint256 amount)
	unstakeEventSignature = crypto.Keccak256Hash([]byte("Unstake(address,uint256)"))
	// ERC721 pools: Unstake(address indexed user, uint256[] tokenIds)
	nftUnstakeEventSignature = crypto.Keccak256Hash([]byte("Unstake(address,uint256[])"))
	// Lock-up pools: Claim(address indexed user, uint256 amount)
	claimEventSignature = crypto.Keccak256Hash([]byte("Claim(address,uint256)"))
	// Penalty-fee pools: Claim(address indexed user, uint256 amount, uint256 penaltyAmount)
	penaltyClaimEventSignature = crypto.Keccak256Hash([]byte("Claim(address,uint256,uint256)"))
	// UpdatePool(uint256 totalStaked, uint256 accumulatedRewardTokenPerShare, uint256 lastBlockTimestamp)
	updatePoolEventSignature = crypto.Keccak256Hash([]byte("UpdatePool(uint256,uint256,uint256)"))
	// PoolActivated()
	poolActivatedEventSignature = crypto.Keccak256Hash([]byte("PoolActivated()"))

	// Lock-up factories: RequestSubmitted(uint256 indexed id, address indexed deployer, bytes32 ipfsHash, LockUpData data)
	lockUpRequestSubmittedEventSignature = crypto.Keccak256Hash([]byte("RequestSubmitted(uint256,address,bytes32,(address,address,uint256,uint256,uint256,uint256,uint256))"))
	// Penalty-fee factories: RequestSubmitted(uint256 indexed id, address indexed deployer, PenaltyData data)
	penaltyRequestSubmittedEventSignature = crypto.Keccak256Hash([]byte("RequestSubmitted(uint256,address,(address,address,uint256,uint256,uint256,uint256))"))
	// RequestStatusChanged(uint256 indexed id, uint8 status)
	requestStatusChangedEventSignature = crypto.Keccak256Hash([]byte("RequestStatusChanged(uint256,uint8)"))
	// StakingPoolDeployed(address indexed stakingAddress, uint256 indexed id)
	stakingPoolDeployedEventSignature = crypto.Keccak256Hash([]byte("StakingPoolDeployed(address,uint256)"))
	// CreateStakingPool(address indexed stakingAddress, address indexed stakeToken)
	createStakingPoolEventSignature = crypto.Keccak256Hash([]byte("CreateStakingPool(address,address)"))
)

// EventSignatures lists every topic0 the indexer decodes
var EventSignatures = []common.Hash{
	stakeEventSignature,
	nftStakeEventSignature,
	unstakeEventSignature,
	nftUnstakeEventSignature,
	claimEventSignature,
	penaltyClaimEventSignature,
	updatePoolEventSignature,
	poolActivatedEventSignature,
	lockUpRequestSubmittedEventSignature,
	penaltyRequestSubmittedEventSignature,
	requestStatusChangedEventSignature,
	stakingPoolDeployedEventSignature,
	createStakingPoolEventSignature,
}

func mustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(fmt.Sprintf("invalid abi type %s: %v", t, err))
	}
	return typ
}

// Non-indexed data layouts
var (
	uint256Type   = mustType("uint256", nil)
	uint256sType  = mustType("uint256[]", nil)
	uint8Type     = mustType("uint8", nil)
	bytes32Type   = mustType("bytes32", nil)
	lockUpRequest = mustType("tuple", []abi.ArgumentMarshaling{
		{Name: "stakeToken", Type: "address"},
		{Name: "rewardToken", Type: "address"},
		{Name: "rewardPerSecond", Type: "uint256"},
		{Name: "poolStartTime", Type: "uint256"},
		{Name: "poolEndTime", Type: "uint256"},
		{Name: "unstakeLockUpTime", Type: "uint256"},
		{Name: "claimLockUpTime", Type: "uint256"},
	})
	penaltyRequest = mustType("tuple", []abi.ArgumentMarshaling{
		{Name: "stakeToken", Type: "address"},
		{Name: "rewardToken", Type: "address"},
		{Name: "rewardPerSecond", Type: "uint256"},
		{Name: "poolStartTime", Type: "uint256"},
		{Name: "poolEndTime", Type: "uint256"},
		{Name: "penaltyPeriod", Type: "uint256"},
	})

	amountData         = abi.Arguments{{Name: "amount", Type: uint256Type}}
	tokenIDsData       = abi.Arguments{{Name: "tokenIds", Type: uint256sType}}
	penaltyClaimData   = abi.Arguments{{Name: "amount", Type: uint256Type}, {Name: "penaltyAmount", Type: uint256Type}}
	updatePoolData     = abi.Arguments{{Name: "totalStaked", Type: uint256Type}, {Name: "accumulatedRewardTokenPerShare", Type: uint256Type}, {Name: "lastBlockTimestamp", Type: uint256Type}}
	lockUpRequestData  = abi.Arguments{{Name: "ipfsHash", Type: bytes32Type}, {Name: "data", Type: lockUpRequest}}
	penaltyRequestData = abi.Arguments{{Name: "data", Type: penaltyRequest}}
	statusData         = abi.Arguments{{Name: "status", Type: uint8Type}}
)

// decodeLog decodes a staking or factory log into an event payload.
// The returned event has no metadata set. Unknown signatures return (nil, nil).
func decodeLog(vLog types.Log) (*domain.Event, error) {
	if len(vLog.Topics) == 0 {
		return nil, nil
	}

	event := &domain.Event{}
	switch vLog.Topics[0] {
	case stakeEventSignature, unstakeEventSignature:
		user, err := topicAddress(vLog, 1)
		if err != nil {
			return nil, err
		}
		values, err := amountData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack stake data: %w", err)
		}
		payload := &domain.StakeEvent{User: user, Amount: bigString(values[0])}
		if vLog.Topics[0] == stakeEventSignature {
			event.Kind, event.Stake = domain.EventKindStake, payload
		} else {
			event.Kind, event.Unstake = domain.EventKindUnstake, payload
		}

	case nftStakeEventSignature, nftUnstakeEventSignature:
		user, err := topicAddress(vLog, 1)
		if err != nil {
			return nil, err
		}
		values, err := tokenIDsData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack nft stake data: %w", err)
		}
		ids, ok := values[0].([]*big.Int)
		if !ok {
			return nil, fmt.Errorf("unexpected token ids type %T", values[0])
		}
		tokenIDs := make([]string, len(ids))
		for i, id := range ids {
			tokenIDs[i] = id.String()
		}
		payload := &domain.StakeEvent{User: user, TokenIDs: tokenIDs}
		if vLog.Topics[0] == nftStakeEventSignature {
			event.Kind, event.Stake = domain.EventKindStake, payload
		} else {
			event.Kind, event.Unstake = domain.EventKindUnstake, payload
		}

	case claimEventSignature:
		user, err := topicAddress(vLog, 1)
		if err != nil {
			return nil, err
		}
		values, err := amountData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack claim data: %w", err)
		}
		event.Kind = domain.EventKindClaim
		event.Claim = &domain.ClaimEvent{User: user, Amount: bigString(values[0])}

	case penaltyClaimEventSignature:
		user, err := topicAddress(vLog, 1)
		if err != nil {
			return nil, err
		}
		values, err := penaltyClaimData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack claim data: %w", err)
		}
		event.Kind = domain.EventKindClaim
		event.Claim = &domain.ClaimEvent{User: user, Amount: bigString(values[0]), PenaltyAmount: bigString(values[1])}

	case updatePoolEventSignature:
		values, err := updatePoolData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack update pool data: %w", err)
		}
		ts, err := bigUint64(values[2])
		if err != nil {
			return nil, err
		}
		event.Kind = domain.EventKindPoolUpdate
		event.PoolUpdate = &domain.PoolUpdateEvent{
			TotalStaked:         bigString(values[0]),
			AccRewardPerShare:   bigString(values[1]),
			LastRewardTimestamp: ts,
		}

	case poolActivatedEventSignature:
		event.Kind = domain.EventKindPoolActivate

	case lockUpRequestSubmittedEventSignature, penaltyRequestSubmittedEventSignature:
		id, err := topicNumber(vLog, 1)
		if err != nil {
			return nil, err
		}
		deployer, err := topicAddress(vLog, 2)
		if err != nil {
			return nil, err
		}

		args := penaltyRequestData
		if vLog.Topics[0] == lockUpRequestSubmittedEventSignature {
			args = lockUpRequestData
		}
		values, err := args.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack request data: %w", err)
		}
		data, err := requestData(values[len(values)-1])
		if err != nil {
			return nil, err
		}
		event.Kind = domain.EventKindRequestSubmitted
		event.RequestSubmitted = &domain.RequestSubmittedEvent{ID: id, Deployer: deployer, Data: data}

	case requestStatusChangedEventSignature:
		id, err := topicNumber(vLog, 1)
		if err != nil {
			return nil, err
		}
		values, err := statusData.Unpack(vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack status data: %w", err)
		}
		status, ok := values[0].(uint8)
		if !ok {
			return nil, fmt.Errorf("unexpected status type %T", values[0])
		}
		event.Kind = domain.EventKindRequestStatusChanged
		event.RequestStatusChanged = &domain.RequestStatusChangedEvent{ID: id, Status: strconv.Itoa(int(status))}

	case stakingPoolDeployedEventSignature:
		stakingAddress, err := topicAddress(vLog, 1)
		if err != nil {
			return nil, err
		}
		id, err := topicNumber(vLog, 2)
		if err != nil {
			return nil, err
		}
		event.Kind = domain.EventKindPoolDeployed
		event.PoolDeployed = &domain.PoolDeployedEvent{ID: id, StakingAddress: stakingAddress}

	case createStakingPoolEventSignature:
		stakingAddress, err := topicAddress(vLog, 1)
		if err != nil {
			return nil, err
		}
		stakeToken, err := topicAddress(vLog, 2)
		if err != nil {
			return nil, err
		}
		event.Kind = domain.EventKindFactoryPoolCreated
		event.FactoryPoolCreated = &domain.FactoryPoolCreatedEvent{StakingAddress: stakingAddress, StakeToken: stakeToken}

	default:
		return nil, nil
	}

	return event, nil
}

func topicAddress(vLog types.Log, i int) (string, error) {
	if len(vLog.Topics) <= i {
		return "", fmt.Errorf("%w: expected at least %d topics, got %d", domain.ErrInvalidEvent, i+1, len(vLog.Topics))
	}
	return common.BytesToAddress(vLog.Topics[i].Bytes()).Hex(), nil
}

func topicNumber(vLog types.Log, i int) (string, error) {
	if len(vLog.Topics) <= i {
		return "", fmt.Errorf("%w: expected at least %d topics, got %d", domain.ErrInvalidEvent, i+1, len(vLog.Topics))
	}
	return new(big.Int).SetBytes(vLog.Topics[i].Bytes()).String(), nil
}

func bigString(v interface{}) string {
	if b, ok := v.(*big.Int); ok && b != nil {
		return b.String()
	}
	return ""
}

func bigUint64(v interface{}) (uint64, error) {
	b, ok := v.(*big.Int)
	if !ok || b == nil || !b.IsUint64() {
		return 0, fmt.Errorf("%w: value %v does not fit in uint64", domain.ErrInvalidEvent, v)
	}
	return b.Uint64(), nil
}

// requestData reads the request tuple, which abi unpacks into an anonymous struct
func requestData(tuple interface{}) (domain.RequestData, error) {
	v := reflect.ValueOf(tuple)
	if v.Kind() != reflect.Struct {
		return domain.RequestData{}, fmt.Errorf("unexpected request data type %T", tuple)
	}

	field := func(name string) interface{} {
		f := v.FieldByName(name)
		if !f.IsValid() {
			return nil
		}
		return f.Interface()
	}
	address := func(name string) string {
		if a, ok := field(name).(common.Address); ok {
			return a.Hex()
		}
		return ""
	}
	number := func(name string) (uint64, error) {
		f := field(name)
		if f == nil {
			return 0, nil
		}
		return bigUint64(f)
	}

	data := domain.RequestData{
		StakeToken:      address("StakeToken"),
		RewardToken:     address("RewardToken"),
		RewardPerSecond: bigString(field("RewardPerSecond")),
	}

	var err error
	if data.PoolStartTime, err = number("PoolStartTime"); err != nil {
		return data, err
	}
	if data.PoolEndTime, err = number("PoolEndTime"); err != nil {
		return data, err
	}
	if data.UnstakeLockUpTime, err = number("UnstakeLockUpTime"); err != nil {
		return data, err
	}
	if data.ClaimLockUpTime, err = number("ClaimLockUpTime"); err != nil {
		return data, err
	}
	if data.PenaltyPeriod, err = number("PenaltyPeriod"); err != nil {
		return data, err
	}
	return data, nil
}
