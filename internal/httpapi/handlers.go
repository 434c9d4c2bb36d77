package httpapi

import (
	"context"
	"net/http"

	"pharmline/internal/auth"
	"pharmline/internal/callqueue"
	"pharmline/internal/chatlog"
	"pharmline/internal/presence"
	"pharmline/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatStore is the console's read (and reset) surface over chat history.
type ChatStore interface {
	ListSessions(ctx context.Context, limit int) ([]chatlog.ChatSession, error)
	ListMessages(ctx context.Context, sessionID string) ([]chatlog.ChatMessage, error)
	DeleteAll(ctx context.Context) (map[string]int64, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Admission  *callqueue.AdmissionService
	Reconciler *callqueue.Reconciler
	Calls      callqueue.Store
	Chat       ChatStore
	Presence   *presence.Service
	PresenceDB presence.Store
}

// --- user-facing call endpoints ---

type callTokenRequest struct {
	UserMessage    string `json:"user_message" binding:"omitempty,max=500"`
	SummarizedLogs string `json:"summarized_logs" binding:"omitempty,max=4000"`
	LogRange       string `json:"log_range"`
}

// CallToken admits (or re-admits) the caller into the queue.
func (h Handlers) CallToken(c *gin.Context) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req callTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.Admission.Admit(c.Request.Context(), callerFromIdentity(id), callqueue.Handoff{
		UserMessage:    req.UserMessage,
		SummarizedLogs: req.SummarizedLogs,
		LogRange:       req.LogRange,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetCall returns the caller's own record snapshot.
func (h Handlers) GetCall(c *gin.Context) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	cr, err := h.Reconciler.Get(c.Request.Context(), c.Param("id"), callqueue.Actor{Role: callqueue.RoleUser, UserID: id.UID})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateCallStatus applies a user-reported transition to the caller's own
// record.
func (h Handlers) UpdateCallStatus(c *gin.Context) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}
	cr, err := h.Reconciler.Apply(c.Request.Context(), c.Param("id"), callqueue.Status(req.Status), callqueue.Actor{Role: callqueue.RoleUser, UserID: id.UID})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

// --- staff console ---

// ConsoleListCalls returns recent records, newest first.
func (h Handlers) ConsoleListCalls(c *gin.Context) {
	out, err := h.Calls.ListRecent(c.Request.Context(), 100)
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		out = []callqueue.CallRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": out})
}

// ConsoleUpdateStatus applies a transition on any record; the ownership check
// is relaxed for the console role.
func (h Handlers) ConsoleUpdateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}
	cr, err := h.Reconciler.Apply(c.Request.Context(), c.Param("id"), callqueue.Status(req.Status), callqueue.Actor{Role: callqueue.RoleConsole})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

// ConsoleHeartbeat publishes console liveness. Best-effort: a failed write is
// logged, never surfaced, because it is not on the call admission path.
func (h Handlers) ConsoleHeartbeat(c *gin.Context) {
	if err := h.Presence.Heartbeat(c.Request.Context()); err != nil {
		logger.FromGin(c).Warn("presence heartbeat failed", "err", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ConsolePresence returns the derived online/wait-time view.
func (h Handlers) ConsolePresence(c *gin.Context) {
	snap, err := h.Presence.Read(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ConsoleListSessions lists recent chat sessions for pharmacist context.
func (h Handlers) ConsoleListSessions(c *gin.Context) {
	out, err := h.Chat.ListSessions(c.Request.Context(), 100)
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		out = []chatlog.ChatSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// ConsoleListMessages returns one session's messages in order.
func (h Handlers) ConsoleListMessages(c *gin.Context) {
	out, err := h.Chat.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		out = []chatlog.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// AdminReset wipes call, chat and presence records, transactionally per
// collection, and returns the deleted counts.
func (h Handlers) AdminReset(c *gin.Context) {
	ctx := c.Request.Context()
	counts := gin.H{}

	n, err := h.Calls.DeleteAll(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	counts["call_requests"] = n

	chatCounts, err := h.Chat.DeleteAll(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	for k, v := range chatCounts {
		counts[k] = v
	}

	if err := h.PresenceDB.Clear(ctx); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": counts})
}

func callerFromIdentity(id auth.Identity) callqueue.Caller {
	return callqueue.Caller{
		UID:       id.UID,
		Identity:  id.Identity,
		Name:      id.CallerName,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Email:     id.Email,
	}
}
