// internal/handlers/tracking.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/makairamei/premium-server/internal/services"
	"github.com/makairamei/premium-server/internal/utils"
)

type TrackingHandler struct {
	admission *services.AdmissionService
	tracking  *services.TrackingService
}

func NewTrackingHandler(admission *services.AdmissionService, tracking *services.TrackingService) *TrackingHandler {
	return &TrackingHandler{admission: admission, tracking: tracking}
}

type trackPluginRequest struct {
	Plugin   string `json:"plugin"`
	Action   string `json:"action"`
	DeviceID string `json:"device_id"`
}

// POST /api/track/plugin
//
// Tracking requires a live session; events from unadmitted IPs are dropped
// with the usual denial shape.
func (h *TrackingHandler) TrackPlugin(c *gin.Context) {
	out, err := h.admission.CheckSession(c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":     false,
			"reason": services.ReasonStoreUnavailable,
		})
		return
	}
	if !out.Valid {
		c.JSON(http.StatusOK, gin.H{"ok": false, "reason": out.Reason})
		return
	}

	var req trackPluginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}

	err = h.tracking.TrackPluginUsage(
		out.License.Key,
		utils.NormalizeDeviceField(req.DeviceID),
		utils.CleanInput(req.Plugin),
		utils.CleanInput(req.Action),
		c.ClientIP(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type trackPlaybackRequest struct {
	Plugin   string `json:"plugin"`
	Title    string `json:"title"`
	Source   string `json:"source"`
	DeviceID string `json:"device_id"`
}

// POST /api/track/playback
func (h *TrackingHandler) TrackPlayback(c *gin.Context) {
	out, err := h.admission.CheckSession(c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":     false,
			"reason": services.ReasonStoreUnavailable,
		})
		return
	}
	if !out.Valid {
		c.JSON(http.StatusOK, gin.H{"ok": false, "reason": out.Reason})
		return
	}

	var req trackPlaybackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}

	err = h.tracking.TrackPlayback(
		out.License.Key,
		utils.NormalizeDeviceField(req.DeviceID),
		utils.CleanInput(req.Plugin),
		utils.CleanInput(req.Title),
		utils.CleanInput(req.Source),
		c.ClientIP(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
