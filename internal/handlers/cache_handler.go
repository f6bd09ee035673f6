package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/services"
)

// CacheSource is the part of a session the cache routes read.
type CacheSource interface {
	CachedAccounts(ctx context.Context) ([]models.Account, error)
	CachedTransactions(ctx context.Context, from, to time.Time, accountIDs []int64) ([]models.Transaction, error)
	CachedMessages(ctx context.Context, filter services.MessageFilter) ([]models.Message, error)
	MarkMessageRead(ctx context.Context, id int64) (*models.Message, error)
}

// CacheHandler serves snapshots of the local cache.
type CacheHandler struct {
	cache CacheSource
	now   func() time.Time
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(cache CacheSource) *CacheHandler {
	return &CacheHandler{cache: cache, now: time.Now}
}

// transactionQuery binds the transaction list filter. Dates default to the last
// 30 days.
type transactionQuery struct {
	FromDate   string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate     string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
	AccountIDs string `form:"account_ids"`
}

// messageQuery binds the message list filter.
type messageQuery struct {
	Types string `form:"types"`
	Read  *bool  `form:"read"`
}

// ListAccounts returns every cached account.
// @Summary     Cached accounts
// @Tags        cache
// @Produce     json
// @Success     200 {object} map[string][]models.Account
// @Router      /accounts [get]
func (h *CacheHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.cache.CachedAccounts(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// ListTransactions returns cached transactions in a date range.
// @Summary     Cached transactions
// @Tags        cache
// @Produce     json
// @Param       from_date   query string false "First day, YYYY-MM-DD"
// @Param       to_date     query string false "Last day, YYYY-MM-DD"
// @Param       account_ids query string false "Comma separated account ids"
// @Success     200 {object} map[string][]models.Transaction
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Router      /transactions [get]
func (h *CacheHandler) ListTransactions(c *gin.Context) {
	var q transactionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	to := h.now()
	if q.ToDate != "" {
		to, _ = time.Parse(models.TransactionDateFormat, q.ToDate)
	}
	from := to.AddDate(0, 0, -30)
	if q.FromDate != "" {
		from, _ = time.Parse(models.TransactionDateFormat, q.FromDate)
	}
	if to.Before(from) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "to_date must not be before from_date"))
		return
	}
	accountIDs, err := parseIDList(q.AccountIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	txs, err := h.cache.CachedTransactions(c.Request.Context(), from, to, accountIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// ListMessages returns cached messages, optionally filtered by type and read state.
// @Summary     Cached messages
// @Tags        cache
// @Produce     json
// @Param       types query string false "Comma separated message types"
// @Param       read  query bool   false "Read state"
// @Success     200 {object} map[string][]models.Message
// @Router      /messages [get]
func (h *CacheHandler) ListMessages(c *gin.Context) {
	var q messageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	filter := services.MessageFilter{Read: q.Read}
	if q.Types != "" {
		filter.Types = strings.Split(q.Types, ",")
	}

	messages, err := h.cache.CachedMessages(c.Request.Context(), filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// MarkMessageRead marks a message read on the host and in the cache.
// @Summary     Mark a message read
// @Tags        cache
// @Produce     json
// @Param       id path int true "Message id"
// @Success     200 {object} map[string]models.Message
// @Failure     400 {object} ErrorResponse "Invalid id"
// @Failure     502 {object} ErrorResponse "Host rejected the update"
// @Router      /messages/{id}/read [put]
func (h *CacheHandler) MarkMessageRead(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	message, err := h.cache.MarkMessageRead(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
