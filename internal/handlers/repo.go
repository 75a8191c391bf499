// internal/handlers/repo.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/makairamei/premium-server/internal/services"
)

type RepoHandler struct {
	admission *services.AdmissionService
	repo      *services.RepoService
	audit     *services.AuditService
}

func NewRepoHandler(admission *services.AdmissionService, repo *services.RepoService, audit *services.AuditService) *RepoHandler {
	return &RepoHandler{admission: admission, repo: repo, audit: audit}
}

// gate admits the key in the URL and opens a session for the caller's IP.
// Returns nil after writing the response when access is denied.
func (h *RepoHandler) gate(c *gin.Context) *services.Outcome {
	key := c.Param("key")

	out, err := h.admission.CheckRepoAccess(key, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Repository unavailable",
			"reason": services.ReasonStoreUnavailable,
		})
		return nil
	}

	if !out.Valid {
		c.JSON(http.StatusForbidden, gin.H{
			"error":  denialMessages[out.Reason],
			"reason": out.Reason,
		})
		return nil
	}

	return out
}

// GET /r/:key/repo.json
func (h *RepoHandler) Manifest(c *gin.Context) {
	out := h.gate(c)
	if out == nil {
		return
	}

	manifest, err := h.repo.Manifest(out.License.Key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Repository unavailable"})
		return
	}

	h.audit.Record(out.License.Key, "REPO_ACCESS", c.ClientIP(), "repo.json")
	c.JSON(http.StatusOK, manifest)
}

// GET /r/:key/plugins.json
func (h *RepoHandler) Plugins(c *gin.Context) {
	out := h.gate(c)
	if out == nil {
		return
	}

	body, err := h.repo.Plugins(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream plugin list unavailable"})
		return
	}

	h.audit.Record(out.License.Key, "REPO_ACCESS", c.ClientIP(), "plugins.json")
	c.Data(http.StatusOK, "application/json", body)
}
