package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/oblik/internal/domain/models"
	"github.com/mamadbah2/oblik/internal/repository/spreadsheet"
	"github.com/mamadbah2/oblik/internal/service/accounting"
	"github.com/mamadbah2/oblik/internal/service/session"
	"github.com/mamadbah2/oblik/internal/service/stock"
)

// SessionHandler exposes the session to the presentation layer.
type SessionHandler struct {
	svc    session.Service
	logger *zap.Logger
}

// NewSessionHandler constructs the HTTP handler adapter.
func NewSessionHandler(svc session.Service, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{svc: svc, logger: logger}
}

// Status reports the installed tables.
func (h *SessionHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

// LoadAccounting installs an accounting file chosen by the user.
func (h *SessionHandler) LoadAccounting(c *gin.Context) {
	var req models.LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid load payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	status, err := h.svc.LoadAccounting(c.Request.Context(), req.Path)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// LoadStock installs a stock file chosen by the user.
func (h *SessionHandler) LoadStock(c *gin.Context) {
	var req models.LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid load payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	status, err := h.svc.LoadStock(c.Request.Context(), req.Path)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// AutoLoad discovers and loads the newest files.
func (h *SessionHandler) AutoLoad(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.AutoLoad(c.Request.Context()))
}

// Search previews a query without recording it.
func (h *SessionHandler) Search(c *gin.Context) {
	res, err := h.svc.Search(c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Query feeds the search box; the search runs once typing pauses.
func (h *SessionHandler) Query(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.QueryInput(req.Text); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Confirm runs the query immediately.
func (h *SessionHandler) Confirm(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.svc.Confirm(req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Results returns the latest completed search.
func (h *SessionHandler) Results(c *gin.Context) {
	res, err := h.svc.Results()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Stock looks up availability for a selected row.
func (h *SessionHandler) Stock(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stock(c.Query("name"), c.Query("article")))
}

// Mapping returns the active column mapping.
func (h *SessionHandler) Mapping(c *gin.Context) {
	m, err := h.svc.Mapping()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// SetMapping installs a user-edited column mapping.
func (h *SessionHandler) SetMapping(c *gin.Context) {
	var m models.ColumnMapping
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.svc.SetMapping(m)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// History returns the history lines.
func (h *SessionHandler) History(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.History())
}

// ClearHistory empties the history.
func (h *SessionHandler) ClearHistory(c *gin.Context) {
	if err := h.svc.ClearHistory(); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotLoaded):
		status = http.StatusConflict
	case errors.Is(err, accounting.ErrInvalidMapping):
		status = http.StatusBadRequest
	case errors.Is(err, spreadsheet.ErrUnreadableFile), errors.Is(err, stock.ErrLayoutNotFound):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	} else {
		h.logger.Warn("request rejected", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
