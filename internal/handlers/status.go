package handlers

import (
	"errors"
	"net/http"

	"doorman/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK        = "ok"
	statusTriggered = "triggered"

	errGetStatus     = "failed to load status"
	errTriggerRefuse = "detector is cooling down or not running"
	errResyncOffline = "device is offline"
	errResyncFailed  = "resync failed"
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

// @Summary      Appliance status
// @Description  Last consumed detection event, detector state and mailbox counters
// @Tags         doorman
// @Produce      json
// @Success      200  {object}  service.Status
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.GetStatus()
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "status_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Manual capture
// @Description  Publishes a detection event on the next sensor tick regardless of temperature. Refused during cooldown.
// @Tags         doorman
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/trigger [post]
// @Security     BearerAuth
func (h *Handler) triggerCapture(c *gin.Context) {
	if !h.services.Trigger() {
		c.JSON(http.StatusConflict, gin.H{"error": errTriggerRefuse})
		return
	}
	if h.log != nil {
		h.log.Infow("manual_trigger_accepted", "user_id", operatorID(c))
	}
	c.JSON(http.StatusAccepted, gin.H{"status": statusTriggered})
}

// @Summary      Re-drive uploads
// @Description  Uploads every LOCAL_ONLY or FAILED capture from local storage
// @Tags         doorman
// @Produce      json
// @Success      200  {object}  service.ResyncReport
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/resync [post]
// @Security     BearerAuth
func (h *Handler) resync(c *gin.Context) {
	rep, err := h.services.Resync(c.Request.Context())
	if errors.Is(err, service.ErrOffline) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errResyncOffline})
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errResyncFailed, "resync_failed", err, "report", rep)
		return
	}
	c.JSON(http.StatusOK, rep)
}
