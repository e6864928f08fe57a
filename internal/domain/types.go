package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainEthereumSepolia
}

// PoolKind discriminates the asset model of a staking pool
type PoolKind string

const (
	// PoolKindFungible pools stake an ERC20 amount
	PoolKindFungible PoolKind = "erc20"
	// PoolKindNonFungible pools stake a set of ERC721 token ids
	PoolKindNonFungible PoolKind = "erc721"
)

// Valid checks if the pool kind is known
func (k PoolKind) Valid() bool {
	return k == PoolKindFungible || k == PoolKindNonFungible
}

// EventKind represents the type of staking event consumed by the indexer
type EventKind string

const (
	EventKindStake                EventKind = "stake"
	EventKindUnstake              EventKind = "unstake"
	EventKindClaim                EventKind = "claim"
	EventKindPoolUpdate           EventKind = "pool_update"
	EventKindPoolActivate         EventKind = "pool_activate"
	EventKindRequestSubmitted     EventKind = "request_submitted"
	EventKindRequestStatusChanged EventKind = "request_status_changed"
	EventKindPoolDeployed         EventKind = "pool_deployed"
	EventKindFactoryPoolCreated   EventKind = "factory_pool_created"
)

// HistoryEventType is the event type recorded in the history journal
type HistoryEventType string

const (
	HistoryEventStake      HistoryEventType = "Stake"
	HistoryEventUnstake    HistoryEventType = "Unstake"
	HistoryEventClaim      HistoryEventType = "Claim"
	HistoryEventNFTStake   HistoryEventType = "NFTStake"
	HistoryEventNFTUnstake HistoryEventType = "NFTUnstake"
)

// RequestStatus is the lifecycle status of a pool creation request
type RequestStatus string

const (
	RequestStatusCreated     RequestStatus = "CREATED"
	RequestStatusUnderReview RequestStatus = "UNDER_REVIEW"
	RequestStatusApproved    RequestStatus = "APPROVED"
	RequestStatusRejected    RequestStatus = "REJECTED"
	RequestStatusDeployed    RequestStatus = "DEPLOYED"
	RequestStatusCanceled    RequestStatus = "CANCELED"
)

// requestStatusCodes maps the factory contract's Status enum to RequestStatus
var requestStatusCodes = map[uint64]RequestStatus{
	1: RequestStatusCreated,
	2: RequestStatusRejected,
	3: RequestStatusApproved,
	4: RequestStatusDeployed,
	5: RequestStatusCanceled,
}

// ParseRequestStatus maps a wire status (numeric contract code or status name) to a RequestStatus
func ParseRequestStatus(raw string) (RequestStatus, error) {
	raw = strings.TrimSpace(raw)
	if code, err := strconv.ParseUint(raw, 10, 64); err == nil {
		status, ok := requestStatusCodes[code]
		if !ok {
			return "", fmt.Errorf("%w: code %d", ErrInvalidRequestStatus, code)
		}
		return status, nil
	}

	status := RequestStatus(strings.ToUpper(raw))
	switch status {
	case RequestStatusCreated,
		RequestStatusUnderReview,
		RequestStatusApproved,
		RequestStatusRejected,
		RequestStatusDeployed,
		RequestStatusCanceled:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRequestStatus, raw)
}

// Terminal reports whether no further status change is accepted
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusDeployed
}

// EventMeta carries the block and transaction metadata supplied by the event host
type EventMeta struct {
	Chain       Chain     `json:"chain"`                // e.g., "eip155:1"
	Contract    string    `json:"contract"`             // emitting contract (pool or factory address)
	TxHash      string    `json:"tx_hash"`              // transaction hash
	LogIndex    uint64    `json:"log_index"`            // log index within the block
	BlockNumber uint64    `json:"block_number"`         // block number
	BlockHash   *string   `json:"block_hash,omitempty"` // block hash (optional)
	Timestamp   time.Time `json:"timestamp"`            // block timestamp
}

// EventKey is the idempotency key of an event: transaction hash + log index
func (m EventMeta) EventKey() string {
	return fmt.Sprintf("%s%s%d", strings.ToLower(m.TxHash), ID_SEPARATOR, m.LogIndex)
}

// StakeEvent is emitted by a pool when a user stakes.
// Fungible pools set Amount, non-fungible pools set TokenIDs.
type StakeEvent struct {
	User     string   `json:"user"`
	Amount   string   `json:"amount,omitempty"`
	TokenIDs []string `json:"token_ids,omitempty"`
}

// UnstakeEvent has the same shape as StakeEvent
type UnstakeEvent = StakeEvent

// ClaimEvent is emitted by a pool when a user claims rewards
type ClaimEvent struct {
	User          string `json:"user"`
	Amount        string `json:"amount"`
	PenaltyAmount string `json:"penalty_amount,omitempty"`
}

// PoolUpdateEvent carries the accumulator state computed on-chain
type PoolUpdateEvent struct {
	AccRewardPerShare   string `json:"acc_reward_per_share"`
	TotalStaked         string `json:"total_staked"`
	LastRewardTimestamp uint64 `json:"last_reward_timestamp"`
}

// RequestData is the pool configuration submitted with a creation request
type RequestData struct {
	StakeToken        string `json:"stake_token"`
	RewardToken       string `json:"reward_token"`
	RewardPerSecond   string `json:"reward_per_second"`
	PoolStartTime     uint64 `json:"pool_start_time"`
	PoolEndTime       uint64 `json:"pool_end_time"`
	UnstakeLockUpTime uint64 `json:"unstake_lock_up_time"`
	ClaimLockUpTime   uint64 `json:"claim_lock_up_time"`
	PenaltyPeriod     uint64 `json:"penalty_period"`
}

// RequestSubmittedEvent is emitted by a factory when a deployer submits a pool request
type RequestSubmittedEvent struct {
	ID       string      `json:"id"`
	Deployer string      `json:"deployer"`
	PoolKind PoolKind    `json:"pool_kind,omitempty"` // optional discriminant, falls back to the factory registry
	Data     RequestData `json:"data"`
}

// RequestStatusChangedEvent is emitted by a factory when a request moves through review
type RequestStatusChangedEvent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PoolDeployedEvent is emitted by a factory when an approved request is deployed
type PoolDeployedEvent struct {
	ID             string `json:"id"`
	StakingAddress string `json:"staking_address"`
}

// FactoryPoolCreatedEvent is emitted by a factory for every pool it creates
type FactoryPoolCreatedEvent struct {
	StakingAddress string   `json:"staking_address"`
	StakeToken     string   `json:"stake_token"`
	PoolKind       PoolKind `json:"pool_kind,omitempty"`
}

// Event is the normalized envelope delivered by the event host.
// Exactly one payload matching Kind is set.
type Event struct {
	Meta                 EventMeta                  `json:"meta"`
	Kind                 EventKind                  `json:"kind"`
	Stake                *StakeEvent                `json:"stake,omitempty"`
	Unstake              *UnstakeEvent              `json:"unstake,omitempty"`
	Claim                *ClaimEvent                `json:"claim,omitempty"`
	PoolUpdate           *PoolUpdateEvent           `json:"pool_update,omitempty"`
	RequestSubmitted     *RequestSubmittedEvent     `json:"request_submitted,omitempty"`
	RequestStatusChanged *RequestStatusChangedEvent `json:"request_status_changed,omitempty"`
	PoolDeployed         *PoolDeployedEvent         `json:"pool_deployed,omitempty"`
	FactoryPoolCreated   *FactoryPoolCreatedEvent   `json:"factory_pool_created,omitempty"`
}

// Validate checks the envelope and the payload matching its kind
func (e *Event) Validate() error {
	if e.Meta.TxHash == "" {
		return fmt.Errorf("%w: missing tx hash", ErrInvalidEvent)
	}
	if !common.IsHexAddress(e.Meta.Contract) {
		return fmt.Errorf("%w: invalid contract address %q", ErrInvalidEvent, e.Meta.Contract)
	}

	switch e.Kind {
	case EventKindStake:
		return validateStake(e.Stake)
	case EventKindUnstake:
		return validateStake(e.Unstake)
	case EventKindClaim:
		if e.Claim == nil {
			return fmt.Errorf("%w: missing claim payload", ErrInvalidEvent)
		}
		if !ValidAddress(e.Claim.User) {
			return fmt.Errorf("%w: invalid user %q", ErrInvalidEvent, e.Claim.User)
		}
		if e.Claim.Amount != "" && !validNumber(e.Claim.Amount) {
			return fmt.Errorf("%w: invalid claim amount %q", ErrInvalidEvent, e.Claim.Amount)
		}
		if e.Claim.PenaltyAmount != "" && !validNumber(e.Claim.PenaltyAmount) {
			return fmt.Errorf("%w: invalid penalty amount %q", ErrInvalidEvent, e.Claim.PenaltyAmount)
		}
	case EventKindPoolUpdate:
		if e.PoolUpdate == nil {
			return fmt.Errorf("%w: missing pool update payload", ErrInvalidEvent)
		}
		if !validNumber(e.PoolUpdate.AccRewardPerShare) || !validNumber(e.PoolUpdate.TotalStaked) {
			return fmt.Errorf("%w: invalid pool update values", ErrInvalidEvent)
		}
	case EventKindPoolActivate:
		// no payload
	case EventKindRequestSubmitted:
		return validateRequestSubmitted(e.RequestSubmitted)
	case EventKindRequestStatusChanged:
		if e.RequestStatusChanged == nil || !validNumber(e.RequestStatusChanged.ID) {
			return fmt.Errorf("%w: invalid status change payload", ErrInvalidEvent)
		}
	case EventKindPoolDeployed:
		if e.PoolDeployed == nil || !validNumber(e.PoolDeployed.ID) {
			return fmt.Errorf("%w: invalid deployment payload", ErrInvalidEvent)
		}
		if !ValidAddress(e.PoolDeployed.StakingAddress) {
			return fmt.Errorf("%w: invalid staking address %q", ErrInvalidEvent, e.PoolDeployed.StakingAddress)
		}
	case EventKindFactoryPoolCreated:
		if e.FactoryPoolCreated == nil || !ValidAddress(e.FactoryPoolCreated.StakingAddress) {
			return fmt.Errorf("%w: invalid pool creation payload", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventKind, e.Kind)
	}

	return nil
}

func validateStake(s *StakeEvent) error {
	if s == nil {
		return fmt.Errorf("%w: missing stake payload", ErrInvalidEvent)
	}
	if !ValidAddress(s.User) {
		return fmt.Errorf("%w: invalid user %q", ErrInvalidEvent, s.User)
	}
	if len(s.TokenIDs) > 0 {
		for _, id := range s.TokenIDs {
			if !validNumber(id) {
				return fmt.Errorf("%w: invalid token id %q", ErrInvalidEvent, id)
			}
		}
		return nil
	}
	if !validNumber(s.Amount) {
		return fmt.Errorf("%w: invalid amount %q", ErrInvalidEvent, s.Amount)
	}
	return nil
}

func validateRequestSubmitted(r *RequestSubmittedEvent) error {
	if r == nil {
		return fmt.Errorf("%w: missing request payload", ErrInvalidEvent)
	}
	if !validNumber(r.ID) {
		return fmt.Errorf("%w: invalid request id %q", ErrInvalidEvent, r.ID)
	}
	if !ValidAddress(r.Deployer) {
		return fmt.Errorf("%w: invalid deployer %q", ErrInvalidEvent, r.Deployer)
	}
	if !ValidAddress(r.Data.StakeToken) {
		return fmt.Errorf("%w: invalid stake token %q", ErrInvalidEvent, r.Data.StakeToken)
	}
	if !ValidAddress(r.Data.RewardToken) {
		return fmt.Errorf("%w: invalid reward token %q", ErrInvalidEvent, r.Data.RewardToken)
	}
	if !validNumber(r.Data.RewardPerSecond) {
		return fmt.Errorf("%w: invalid reward per second %q", ErrInvalidEvent, r.Data.RewardPerSecond)
	}
	if r.Data.PoolEndTime <= r.Data.PoolStartTime {
		return fmt.Errorf("%w: pool end time %d not after start time %d", ErrInvalidEvent, r.Data.PoolEndTime, r.Data.PoolStartTime)
	}
	if r.PoolKind != "" && !r.PoolKind.Valid() {
		return fmt.Errorf("%w: invalid pool kind %q", ErrInvalidEvent, r.PoolKind)
	}
	return nil
}

// ParseAmount parses a decimal uint256 string. An empty string is zero.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", ErrInvalidEvent, s, err)
	}
	return v, nil
}

// ValidAddress checks that the address is a well-formed, non-zero hex address
func ValidAddress(address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	return common.HexToAddress(address) != (common.Address{})
}

// NormalizeAddress normalizes an address to its checksummed hex form
func NormalizeAddress(address string) string {
	if address == "" {
		return ""
	}
	return common.HexToAddress(address).Hex()
}

// UserID builds the composite id of a per-pool user record
func UserID(pool, user string) string {
	return NormalizeAddress(pool) + ID_SEPARATOR + NormalizeAddress(user)
}

// RequestID builds the composite id of a per-factory request record
func RequestID(factory, requestID string) string {
	return NormalizeAddress(factory) + ID_SEPARATOR + requestID
}

// NFTokenID builds the id of a staked non-fungible token
func NFTokenID(contract, tokenID string) string {
	return NormalizeAddress(contract) + ID_SEPARATOR + tokenID
}

var numberRegexp = regexp.MustCompile(`^[0-9]+$`)

// validNumber checks if s is a non-empty decimal number
func validNumber(s string) bool {
	return numberRegexp.MatchString(s)
}
