// internal/handlers/security.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/makairamei/premium-server/internal/services"
	"github.com/makairamei/premium-server/internal/utils"
)

type SecurityHandler struct {
	security *services.SecurityService
	audit    *services.AuditService
}

func NewSecurityHandler(security *services.SecurityService, audit *services.AuditService) *SecurityHandler {
	return &SecurityHandler{security: security, audit: audit}
}

// GET /api/admin/blocked-ips
func (h *SecurityHandler) ListBlockedIPs(c *gin.Context) {
	ips, err := h.security.ListBlockedIPs()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, ips)
}

type blockIPRequest struct {
	IPAddress string `json:"ip_address" binding:"required"`
	Reason    string `json:"reason"`
}

// POST /api/admin/blocked-ips
func (h *SecurityHandler) BlockIP(c *gin.Context) {
	var req blockIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	ip := utils.CleanInput(req.IPAddress)
	if err := h.security.BlockIP(ip, utils.CleanInput(req.Reason)); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	h.audit.Record("", "IP_BLOCK", c.ClientIP(), ip)
	utils.SuccessResponse(c, gin.H{"message": "IP blocked"})
}

// DELETE /api/admin/blocked-ips/:ip
func (h *SecurityHandler) UnblockIP(c *gin.Context) {
	ip := c.Param("ip")
	if err := h.security.UnblockIP(ip); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	h.audit.Record("", "IP_UNBLOCK", c.ClientIP(), ip)
	utils.SuccessResponse(c, gin.H{"message": "IP unblocked"})
}

// GET /api/admin/failed-logins
func (h *SecurityHandler) ListFailedLogins(c *gin.Context) {
	attempts, err := h.security.ListFailedLogins()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, attempts)
}

// DELETE /api/admin/failed-logins/:ip
func (h *SecurityHandler) ClearFailedLogins(c *gin.Context) {
	ip := c.Param("ip")
	if err := h.security.ClearFailedLogins(ip); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Failed login counter cleared"})
}
