package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/staking-indexer/internal/api/shared/executor"
	"github.com/feral-file/staking-indexer/internal/domain"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// GetPool retrieves a pool with its accounting state
	// GET /api/v1/pools/:address
	GetPool(c *gin.Context)

	// ListPoolUsers lists the users of a pool
	// GET /api/v1/pools/:address/users?limit=<limit>&offset=<offset>
	ListPoolUsers(c *gin.Context)

	// GetPoolUser retrieves a user's position, with the pending reward projected to ?at=<unix timestamp>
	// GET /api/v1/pools/:address/users/:user?at=<timestamp>
	GetPoolUser(c *gin.Context)

	// ListPoolHistory lists the history of a pool, newest first
	// GET /api/v1/pools/:address/history?limit=<limit>&offset=<offset>
	ListPoolHistory(c *gin.Context)

	// ListUserHistory lists the history of a user across pools, newest first
	// GET /api/v1/users/:user/history?limit=<limit>&offset=<offset>
	ListUserHistory(c *gin.Context)

	// GetToken retrieves an ERC20 token
	// GET /api/v1/tokens/:address
	GetToken(c *gin.Context)

	// GetNFToken retrieves a staked ERC721 token
	// GET /api/v1/tokens/:address/:token_id
	GetNFToken(c *gin.Context)

	// GetFactory retrieves a factory
	// GET /api/v1/factories/:address
	GetFactory(c *gin.Context)

	// GetRequest retrieves a pool creation request
	// GET /api/v1/factories/:address/requests/:id
	GetRequest(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{executor: exec}
}

// addressParam reads and validates an address path parameter
func addressParam(c *gin.Context, name string) (string, bool) {
	address := c.Param(name)
	if !domain.ValidAddress(address) {
		respondBadRequest(c, "Invalid address", address)
		return "", false
	}
	return address, true
}

func (h *handler) GetPool(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	pool, err := h.executor.GetPool(c.Request.Context(), address)
	if err != nil {
		respondInternalError(c, err, "Failed to get pool", zap.String("pool", address))
		return
	}
	if pool == nil {
		respondNotFound(c, "Pool not found")
		return
	}

	c.JSON(http.StatusOK, pool)
}

func (h *handler) ListPoolUsers(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	params, err := ParsePaginationQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	users, err := h.executor.ListPoolUsers(c.Request.Context(), address, &params.Limit, &params.Offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list pool users", zap.String("pool", address))
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *handler) GetPoolUser(c *gin.Context) {
	pool, ok := addressParam(c, "address")
	if !ok {
		return
	}
	user, ok := addressParam(c, "user")
	if !ok {
		return
	}

	params, err := ParsePoolUserQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.GetPoolUser(c.Request.Context(), pool, user, params.At)
	if err != nil {
		respondInternalError(c, err, "Failed to get pool user",
			zap.String("pool", pool),
			zap.String("user", user))
		return
	}
	if resp == nil {
		respondNotFound(c, "Pool user not found")
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handler) ListPoolHistory(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	params, err := ParsePaginationQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	entries, err := h.executor.ListPoolHistory(c.Request.Context(), address, &params.Limit, &params.Offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list pool history", zap.String("pool", address))
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (h *handler) ListUserHistory(c *gin.Context) {
	user, ok := addressParam(c, "user")
	if !ok {
		return
	}

	params, err := ParsePaginationQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	entries, err := h.executor.ListUserHistory(c.Request.Context(), user, &params.Limit, &params.Offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list user history", zap.String("user", user))
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (h *handler) GetToken(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	token, err := h.executor.GetToken(c.Request.Context(), address)
	if err != nil {
		respondInternalError(c, err, "Failed to get token", zap.String("token", address))
		return
	}
	if token == nil {
		respondNotFound(c, "Token not found")
		return
	}

	c.JSON(http.StatusOK, token)
}

func (h *handler) GetNFToken(c *gin.Context) {
	contract, ok := addressParam(c, "address")
	if !ok {
		return
	}
	tokenID := c.Param("token_id")
	if _, err := domain.ParseAmount(tokenID); err != nil || tokenID == "" {
		respondBadRequest(c, "Invalid token id", tokenID)
		return
	}

	token, err := h.executor.GetNFToken(c.Request.Context(), contract, tokenID)
	if err != nil {
		respondInternalError(c, err, "Failed to get token",
			zap.String("contract", contract),
			zap.String("tokenId", tokenID))
		return
	}
	if token == nil {
		respondNotFound(c, "Token not found")
		return
	}

	c.JSON(http.StatusOK, token)
}

func (h *handler) GetFactory(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}

	f, err := h.executor.GetFactory(c.Request.Context(), address)
	if err != nil {
		respondInternalError(c, err, "Failed to get factory", zap.String("factory", address))
		return
	}
	if f == nil {
		respondNotFound(c, "Factory not found")
		return
	}

	c.JSON(http.StatusOK, f)
}

func (h *handler) GetRequest(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	id := c.Param("id")
	if _, err := domain.ParseAmount(id); err != nil || id == "" {
		respondBadRequest(c, "Invalid request id", id)
		return
	}

	request, err := h.executor.GetRequest(c.Request.Context(), address, id)
	if err != nil {
		respondInternalError(c, err, "Failed to get request",
			zap.String("factory", address),
			zap.String("request", id))
		return
	}
	if request == nil {
		respondNotFound(c, "Request not found")
		return
	}

	c.JSON(http.StatusOK, request)
}

// HealthCheck returns the health status
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "staking-indexer-api",
	})
}
