// internal/handlers/device.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/makairamei/premium-server/internal/services"
	"github.com/makairamei/premium-server/internal/utils"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
	audit         *services.AuditService
}

func NewDeviceHandler(deviceService *services.DeviceService, audit *services.AuditService) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
		audit:         audit,
	}
}

// GET /api/admin/devices
func (h *DeviceHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	devices, total, err := h.deviceService.List(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(devices, total, params))
}

// GET /api/admin/devices/online
func (h *DeviceHandler) Online(c *gin.Context) {
	devices, err := h.deviceService.ListOnline()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, devices)
}

// POST /api/admin/devices/:id/block
func (h *DeviceHandler) Block(c *gin.Context) {
	h.setBlocked(c, true, "DEVICE_BLOCK")
}

// POST /api/admin/devices/:id/unblock
func (h *DeviceHandler) Unblock(c *gin.Context) {
	h.setBlocked(c, false, "DEVICE_UNBLOCK")
}

func (h *DeviceHandler) setBlocked(c *gin.Context, blocked bool, action string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid device ID", nil)
		return
	}

	if err := h.deviceService.SetBlocked(id, blocked); err != nil {
		utils.NotFoundResponse(c, "Device")
		return
	}

	h.audit.Record("", action, c.ClientIP(), id.String())
	utils.SuccessResponse(c, gin.H{"message": "Device updated"})
}

type renameDeviceRequest struct {
	Name string `json:"name" binding:"required"`
}

// PUT /api/admin/devices/:id/name
func (h *DeviceHandler) Rename(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid device ID", nil)
		return
	}

	var req renameDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.deviceService.Rename(id, utils.CleanInput(req.Name)); err != nil {
		utils.NotFoundResponse(c, "Device")
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Device renamed"})
}

// DELETE /api/admin/devices/:id
//
// Removing a device frees its quota slot; the next validate from that
// device re-registers it.
func (h *DeviceHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid device ID", nil)
		return
	}

	if err := h.deviceService.Delete(id); err != nil {
		utils.NotFoundResponse(c, "Device")
		return
	}

	h.audit.Record("", "DEVICE_DELETE", c.ClientIP(), id.String())
	utils.SuccessResponse(c, gin.H{"message": "Device removed"})
}
