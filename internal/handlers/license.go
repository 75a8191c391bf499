// internal/handlers/license.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/makairamei/premium-server/internal/models"
	"github.com/makairamei/premium-server/internal/services"
	"github.com/makairamei/premium-server/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
	audit          *services.AuditService
}

func NewLicenseHandler(licenseService *services.LicenseService, audit *services.AuditService) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
		audit:          audit,
	}
}

// POST /api/admin/licenses
func (h *LicenseHandler) Create(c *gin.Context) {
	var req services.CreateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if req.Count > 1 {
		keys, err := h.licenseService.CreateBulk(&req)
		if err != nil {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		h.audit.Record("", "LICENSE_CREATE", c.ClientIP(), "bulk")
		utils.CreatedResponse(c, gin.H{"keys": keys, "count": len(keys)})
		return
	}

	lic, err := h.licenseService.Create(&req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	h.audit.Record(lic.Key, "LICENSE_CREATE", c.ClientIP(), "")
	utils.CreatedResponse(c, lic)
}

// GET /api/admin/licenses
func (h *LicenseHandler) List(c *gin.Context) {
	params := services.LicenseSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		Status:           c.Query("status"),
		Trashed:          c.Query("trashed") == "true",
	}

	licenses, total, err := h.licenseService.List(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(licenses, total, params.PaginationParams))
}

// GET /api/admin/licenses/:id
func (h *LicenseHandler) Details(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	details, err := h.licenseService.Details(id)
	if err != nil {
		utils.NotFoundResponse(c, "License")
		return
	}

	utils.SuccessResponse(c, details)
}

// PUT /api/admin/licenses/:id
func (h *LicenseHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	var req services.UpdateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.licenseService.Update(id, &req); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	h.audit.Record("", "LICENSE_UPDATE", c.ClientIP(), id.String())
	utils.SuccessResponse(c, gin.H{"message": "License updated"})
}

// POST /api/admin/licenses/:id/revoke
func (h *LicenseHandler) Revoke(c *gin.Context) {
	h.setStatus(c, models.LicenseStatusRevoked, "LICENSE_REVOKE")
}

// POST /api/admin/licenses/:id/activate
func (h *LicenseHandler) Activate(c *gin.Context) {
	h.setStatus(c, models.LicenseStatusActive, "LICENSE_ACTIVATE")
}

func (h *LicenseHandler) setStatus(c *gin.Context, status models.LicenseStatus, action string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	if err := h.licenseService.SetStatus(id, status); err != nil {
		utils.NotFoundResponse(c, "License")
		return
	}

	h.audit.Record("", action, c.ClientIP(), id.String())
	utils.SuccessResponse(c, gin.H{"message": "License " + string(status)})
}

// DELETE /api/admin/licenses/:id
//
// Soft delete by default; ?force=true cascades the license and all of its
// dependent rows.
func (h *LicenseHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	if c.Query("force") == "true" {
		if err := h.licenseService.ForceDelete(id); err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}
		h.audit.Record("", "LICENSE_FORCE_DELETE", c.ClientIP(), id.String())
		utils.SuccessResponse(c, gin.H{"message": "License permanently deleted"})
		return
	}

	if err := h.licenseService.SoftDelete(id); err != nil {
		utils.NotFoundResponse(c, "License")
		return
	}

	h.audit.Record("", "LICENSE_DELETE", c.ClientIP(), id.String())
	utils.SuccessResponse(c, gin.H{"message": "License moved to trash"})
}

// POST /api/admin/licenses/:id/restore
func (h *LicenseHandler) Restore(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return
	}

	if err := h.licenseService.Restore(id); err != nil {
		utils.NotFoundResponse(c, "License")
		return
	}

	h.audit.Record("", "LICENSE_RESTORE", c.ClientIP(), id.String())
	utils.SuccessResponse(c, gin.H{"message": "License restored"})
}

type bulkActionRequest struct {
	IDs    []uuid.UUID `json:"ids" binding:"required"`
	Action string      `json:"action" binding:"required"`
}

// POST /api/admin/licenses/bulk
func (h *LicenseHandler) BulkAction(c *gin.Context) {
	var req bulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	affected, err := h.licenseService.BulkAction(req.IDs, req.Action)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	h.audit.Record("", "LICENSE_BULK_"+req.Action, c.ClientIP(), "")
	utils.SuccessResponse(c, gin.H{"affected": affected})
}
