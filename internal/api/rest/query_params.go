package rest

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/staking-indexer/internal/api/shared/constants"
)

// PaginationQueryParams holds query parameters for list endpoints
type PaginationQueryParams struct {
	Limit  int    `form:"limit,default=20"`
	Offset uint64 `form:"offset,default=0"`
}

// Validate checks the page bounds
func (p *PaginationQueryParams) Validate() error {
	if p.Limit < 1 || p.Limit > constants.MAX_PAGE_SIZE {
		return fmt.Errorf("limit must be between 1 and %d", constants.MAX_PAGE_SIZE)
	}
	return nil
}

// PoolUserQueryParams holds query parameters for GET /pools/:address/users/:user
type PoolUserQueryParams struct {
	// At is the unix timestamp the pending reward is projected to
	At *uint64 `form:"at"`
}

// ParsePaginationQuery parses and validates pagination parameters
func ParsePaginationQuery(c *gin.Context) (*PaginationQueryParams, error) {
	var params PaginationQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &params, nil
}

// ParsePoolUserQuery parses query parameters for GET /pools/:address/users/:user
func ParsePoolUserQuery(c *gin.Context) (*PoolUserQueryParams, error) {
	var params PoolUserQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	return &params, nil
}
