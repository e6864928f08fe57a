package constants

const (
	MAX_PAGE_SIZE         = 100
	DEFAULT_OFFSET        = uint64(0)
	DEFAULT_HISTORY_LIMIT = 20
	DEFAULT_USERS_LIMIT   = 20
)
