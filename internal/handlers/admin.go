// internal/handlers/admin.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/makairamei/premium-server/internal/services"
	"github.com/makairamei/premium-server/internal/utils"
)

// AdminHandler covers the dashboard and the operational endpoints that do
// not belong to a single resource.
type AdminHandler struct {
	stats     *services.StatsService
	admission *services.AdmissionService
	audit     *services.AuditService
	tracking  *services.TrackingService
	settings  *services.SettingsService
	backup    *services.BackupService
}

func NewAdminHandler(
	stats *services.StatsService,
	admission *services.AdmissionService,
	audit *services.AuditService,
	tracking *services.TrackingService,
	settings *services.SettingsService,
	backup *services.BackupService,
) *AdminHandler {
	return &AdminHandler{
		stats:     stats,
		admission: admission,
		audit:     audit,
		tracking:  tracking,
		settings:  settings,
		backup:    backup,
	}
}

// GET /api/admin/stats
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.stats.Dashboard()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, stats)
}

// GET /api/admin/activity
func (h *AdminHandler) ActivityFeed(c *gin.Context) {
	minutes, _ := strconv.Atoi(c.DefaultQuery("minutes", "30"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	feed, err := h.stats.ActivityFeed(minutes, limit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, feed)
}

// GET /api/admin/sessions
func (h *AdminHandler) ActiveSessions(c *gin.Context) {
	sessions := h.admission.Sessions().Snapshot()
	utils.SuccessResponse(c, gin.H{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// GET /api/admin/logs
func (h *AdminHandler) AccessLogs(c *gin.Context) {
	params := services.AccessLogSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		Action:           c.Query("action"),
	}

	logs, total, err := h.audit.List(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params.PaginationParams))
}

// GET /api/admin/plugin-usage
func (h *AdminHandler) PluginUsage(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	usage, total, err := h.tracking.ListPluginUsage(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(usage, total, params))
}

// GET /api/admin/playback
func (h *AdminHandler) Playback(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	logs, total, err := h.tracking.ListPlayback(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params))
}

// GET /api/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.All()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, settings)
}

// PUT /api/admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	for key, value := range req {
		key = utils.CleanInput(key)
		if key == "" {
			continue
		}
		if err := h.settings.Set(key, utils.CleanInput(value)); err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}
	}

	utils.SuccessResponse(c, gin.H{"message": "Settings updated"})
}

// POST /api/admin/backup
func (h *AdminHandler) CreateBackup(c *gin.Context) {
	result, err := h.backup.Create()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	h.audit.Record("", "BACKUP_CREATE", c.ClientIP(), result.Path)
	utils.SuccessResponse(c, result)
}

// GET /api/admin/backup
func (h *AdminHandler) ListBackups(c *gin.Context) {
	names, err := h.backup.List()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, names)
}

type restoreRequest struct {
	Name string `json:"name" binding:"required"`
}

// POST /api/admin/backup/restore
func (h *AdminHandler) RestoreBackup(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.backup.Restore(req.Name); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	h.audit.Record("", "BACKUP_RESTORE", c.ClientIP(), req.Name)
	utils.SuccessResponse(c, gin.H{"message": "Snapshot restored"})
}
