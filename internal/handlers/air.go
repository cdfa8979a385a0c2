package handlers

import (
	"net/http"
	"strconv"

	"airfilter_hub/internal/models"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errGetSnapshot = "failed to load snapshot"
	errGetReadings = "failed to load readings"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Current dashboard snapshot
// @Description  Latest reading per channel with baseline, relay states and prompt flags.
// @Tags         air
// @Produce      json
// @Success      200  {object}  models.DashboardSnapshot
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/air/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.services.Monitoring.Snapshot(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetSnapshot, "air_snapshot_failed", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Recent readings for one channel
// @Tags         air
// @Produce      json
// @Param        channel  query  string  true   "Channel name"  Enums(indoor,outdoor_one,outdoor_two,outdoor_three,outdoor_four)
// @Param        n        query  int     false  "Number of readings, newest first (max 500)"
// @Success      200  {object}  map[string]interface{}  "count, readings"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/air/readings [get]
// @Security     BearerAuth
func (h *Handler) getReadings(c *gin.Context) {
	ctx := c.Request.Context()

	channel, ok := parseChannel(c.Query("channel"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel"})
		return
	}

	n := 0
	if qs := c.Query("n"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'n'"})
			return
		}
		n = v
	}

	readings, err := h.services.Monitoring.Window(ctx, channel, n)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetReadings, "air_readings_failed", err, "channel", channel)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(readings),
		"readings": readings,
	})
}

// parseChannel validates a channel query parameter.
func parseChannel(s string) (models.Channel, bool) {
	return models.ParseChannel(s)
}
