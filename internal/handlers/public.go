// internal/handlers/public.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/makairamei/premium-server/internal/config"
	"github.com/makairamei/premium-server/internal/models"
	"github.com/makairamei/premium-server/internal/services"
	"github.com/makairamei/premium-server/internal/utils"
)

const serverVersion = "1.0.0"

// denialMessages maps the machine-readable reason to the text shown inside
// the streaming client.
var denialMessages = map[services.DenialReason]string{
	services.ReasonIPBlocked:     "Access denied",
	services.ReasonNotFound:      "Invalid license key",
	services.ReasonRevoked:       "License has been revoked",
	services.ReasonExpired:       "License has expired",
	services.ReasonDeviceBlocked: "This device has been blocked",
	services.ReasonMaxDevices:    "Device limit reached for this license",
	services.ReasonNoSession:     "No active session for this IP",
}

type PublicHandler struct {
	admission *services.AdmissionService
	tracking  *services.TrackingService
	audit     *services.AuditService
	settings  *services.SettingsService
	cfg       *config.Config
}

func NewPublicHandler(admission *services.AdmissionService, tracking *services.TrackingService, audit *services.AuditService, settings *services.SettingsService, cfg *config.Config) *PublicHandler {
	return &PublicHandler{
		admission: admission,
		tracking:  tracking,
		audit:     audit,
		settings:  settings,
		cfg:       cfg,
	}
}

type validateRequest struct {
	Key        string `json:"key" binding:"required"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
}

// POST /api/validate
func (h *PublicHandler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid":   false,
			"reason":  "bad_request",
			"message": "Missing license key",
		})
		return
	}

	out, err := h.admission.Validate(services.ValidateInput{
		Key:        req.Key,
		IP:         c.ClientIP(),
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"valid":  false,
			"reason": services.ReasonStoreUnavailable,
		})
		return
	}

	key := utils.CleanInput(req.Key)
	if !out.Valid {
		h.audit.RecordDevice(key, utils.NormalizeDeviceField(req.DeviceID), "VALIDATE_FAIL", c.ClientIP(), string(out.Reason))
		writeDenial(c, out)
		return
	}

	h.audit.RecordDevice(out.License.Key, utils.NormalizeDeviceField(req.DeviceID), "VALIDATE_OK", c.ClientIP(), "")
	c.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"name":        out.License.Name,
		"days_left":   out.DaysLeft,
		"expires_at":  out.License.ExpiresAt,
		"max_devices": out.License.MaxDevices,
	})
}

type heartbeatRequest struct {
	Key string `json:"key" binding:"required"`
}

// POST /api/heartbeat
func (h *PublicHandler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid":   false,
			"reason":  "bad_request",
			"message": "Missing license key",
		})
		return
	}

	out, err := h.admission.Heartbeat(req.Key, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"valid":  false,
			"reason": services.ReasonStoreUnavailable,
		})
		return
	}

	if !out.Valid {
		writeDenial(c, out)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"days_left": out.DaysLeft,
	})
}

// GET /api/check-ip
//
// The fast path for plugins that cannot store a key. A tracked action in
// the query string doubles as an implicit usage event.
func (h *PublicHandler) CheckIP(c *gin.Context) {
	out, err := h.admission.CheckSession(c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"valid":  false,
			"reason": services.ReasonStoreUnavailable,
		})
		return
	}

	if !out.Valid {
		writeDenial(c, out)
		return
	}

	h.trackImplicit(c, out.License.Key)

	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"days_left": out.DaysLeft,
	})
}

func (h *PublicHandler) trackImplicit(c *gin.Context, licenseKey string) {
	action := utils.CleanInput(c.Query("action"))
	if action == "" || !services.IsTrackedAction(action) {
		return
	}

	deviceID := utils.NormalizeDeviceField(c.Query("device_id"))
	plugin := utils.CleanInput(c.Query("plugin"))
	ip := c.ClientIP()

	if err := h.tracking.TrackPluginUsage(licenseKey, deviceID, plugin, action, ip); err != nil {
		return
	}

	if action == "PLAY" || action == "DOWNLOAD" {
		title := utils.CleanInput(c.Query("title"))
		if title != "" {
			source := utils.CleanInput(c.Query("source"))
			h.tracking.TrackPlayback(licenseKey, deviceID, plugin, title, source, ip)
		}
	}
}

// GET /api/config
func (h *PublicHandler) Config(c *gin.Context) {
	serverURL, err := h.settings.Get(models.SettingServerURL)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}
	if serverURL == "" {
		serverURL = h.cfg.Server.PublicURL
	}

	c.JSON(http.StatusOK, gin.H{
		"server_url":  serverURL,
		"version":     serverVersion,
		"environment": h.cfg.Environment,
	})
}

// GET /api/health
func (h *PublicHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": serverVersion,
		"time":    time.Now().UTC(),
	})
}

// writeDenial sends the uniform denial shape. Denials are application
// outcomes, not transport failures, so they go out as 200.
func writeDenial(c *gin.Context, out *services.Outcome) {
	body := gin.H{
		"valid":   false,
		"reason":  out.Reason,
		"message": denialMessages[out.Reason],
	}
	if out.Reason == services.ReasonMaxDevices {
		body["device_count"] = out.DeviceCount
		body["max_devices"] = out.MaxDevices
	}
	c.JSON(http.StatusOK, body)
}
