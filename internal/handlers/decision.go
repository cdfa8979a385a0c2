package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusAccepted        = "accepted"
	statusDeclined        = "declined"
	statusDeferred        = "deferred"
	statusDeclineFinal    = "decline_confirmed"
	statusDeclineReversed = "decline_reversed"
	statusClosed          = "closed"

	errDecisionFailed = "failed to record decision"
)

// respondWithPrompts writes a status plus the current prompt flags so the
// dashboard can re-render without a second round trip.
func (h *Handler) respondWithPrompts(c *gin.Context, status string) {
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"prompts": h.services.Reconciler.Prompts(),
	})
}

// runDecision executes one user action against the reconciler and writes a
// uniform response.
func (h *Handler) runDecision(c *gin.Context, status, logKey string, fn func(context.Context) error) {
	if err := fn(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errDecisionFailed, logKey, err)
		return
	}
	h.respondWithPrompts(c, status)
}

// @Summary      Accept filtration prompt
// @Description  Records the manual ON decision and closes the main prompt.
// @Tags         decision
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, prompts"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/air/decision/accept [post]
// @Security     BearerAuth
func (h *Handler) acceptDecision(c *gin.Context) {
	h.runDecision(c, statusAccepted, "decision_accept_failed", h.services.Reconciler.Accept)
}

// @Summary      Decline filtration prompt
// @Description  Opens the disclaimer prompt; the decision is not final yet.
// @Tags         decision
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/air/decision/decline [post]
// @Security     BearerAuth
func (h *Handler) declineDecision(c *gin.Context) {
	h.runDecision(c, statusDeclined, "decision_decline_failed", h.services.Reconciler.Decline)
}

// @Summary      Defer for a short period
// @Tags         decision
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/air/decision/defer-short [post]
// @Security     BearerAuth
func (h *Handler) deferShort(c *gin.Context) {
	h.runDecision(c, statusDeferred, "decision_defer_short_failed", h.services.Reconciler.DeferShort)
}

// @Summary      Defer for a long period
// @Tags         decision
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/air/decision/defer-long [post]
// @Security     BearerAuth
func (h *Handler) deferLong(c *gin.Context) {
	h.runDecision(c, statusDeferred, "decision_defer_long_failed", h.services.Reconciler.DeferLong)
}

// @Summary      Confirm the decline on the disclaimer prompt
// @Description  Records the manual OFF decision and shows the caution notice.
// @Tags         decision
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/air/decision/disclaimer/confirm [post]
// @Security     BearerAuth
func (h *Handler) confirmDecline(c *gin.Context) {
	h.runDecision(c, statusDeclineFinal, "decision_confirm_failed", h.services.Reconciler.ConfirmDecline)
}

// @Summary      Reverse the decline on the disclaimer prompt
// @Description  Records the manual ON decision instead.
// @Tags         decision
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/air/decision/disclaimer/reverse [post]
// @Security     BearerAuth
func (h *Handler) reverseDecline(c *gin.Context) {
	h.runDecision(c, statusDeclineReversed, "decision_reverse_failed", h.services.Reconciler.ReverseDecline)
}

// @Summary      Close the caution notice
// @Tags         decision
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/air/decision/caution/close [post]
// @Security     BearerAuth
func (h *Handler) closeCaution(c *gin.Context) {
	h.services.Reconciler.CloseCaution(c.Request.Context())
	h.respondWithPrompts(c, statusClosed)
}

// @Summary      Close the reminder-cancelled notice
// @Tags         decision
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/air/decision/reminder-notice/close [post]
// @Security     BearerAuth
func (h *Handler) closeReminderNotice(c *gin.Context) {
	h.services.Reconciler.CloseReminderNotice(c.Request.Context())
	h.respondWithPrompts(c, statusClosed)
}
