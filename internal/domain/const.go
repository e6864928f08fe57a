package domain

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// DEFAULT_ACC_REWARD_PRECISION is the accumulator scale used when none is configured.
	// The pool contracts emit accRewardPerShare already scaled, so the indexer keeps it as-is.
	DEFAULT_ACC_REWARD_PRECISION = 1

	// ID separator for composite keys (pool-user, factory-request, tx-logIndex)
	ID_SEPARATOR = "-"
)
