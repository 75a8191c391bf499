// internal/router/router.go
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/config"
	"github.com/makairamei/premium-server/internal/handlers"
	"github.com/makairamei/premium-server/internal/middleware"
	"github.com/makairamei/premium-server/internal/services"
	"github.com/makairamei/premium-server/internal/utils"
)

// Initialize wires services, handlers and routes. The returned SessionCache
// must be closed on shutdown.
func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, *services.SessionCache) {
	// Initialize services
	sessions := services.NewSessionCache(
		time.Duration(cfg.Admission.SessionTTL)*time.Hour,
		time.Duration(cfg.Admission.SweepInterval)*time.Minute,
	)
	securityService := services.NewSecurityService(db)
	admissionService := services.NewAdmissionService(db, sessions, securityService)
	auditService := services.NewAuditService(db)
	licenseService := services.NewLicenseService(db, cfg.Admission.KeyPrefix)
	deviceService := services.NewDeviceService(db)
	authService := services.NewAuthService(db, cfg, securityService)
	trackingService := services.NewTrackingService(db)
	statsService := services.NewStatsService(db)
	settingsService := services.NewSettingsService(db)
	repoService := services.NewRepoService(cfg, settingsService)
	backupService, _ := services.NewBackupService(db, cfg)

	// Initialize handlers
	publicHandler := handlers.NewPublicHandler(admissionService, trackingService, auditService, settingsService, cfg)
	trackingHandler := handlers.NewTrackingHandler(admissionService, trackingService)
	repoHandler := handlers.NewRepoHandler(admissionService, repoService, auditService)
	authHandler := handlers.NewAuthHandler(authService)
	licenseHandler := handlers.NewLicenseHandler(licenseService, auditService)
	deviceHandler := handlers.NewDeviceHandler(deviceService, auditService)
	securityHandler := handlers.NewSecurityHandler(securityService, auditService)
	adminHandler := handlers.NewAdminHandler(statsService, admissionService, auditService, trackingService, settingsService, backupService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())

	api := r.Group("/api")
	{
		api.GET("/health", publicHandler.Health)
		api.GET("/config", publicHandler.Config)

		api.POST("/validate", middleware.ValidateRateLimit(), publicHandler.Validate)
		api.POST("/heartbeat", middleware.HeartbeatRateLimit(), publicHandler.Heartbeat)
		api.GET("/check-ip", middleware.CheckIPRateLimit(), publicHandler.CheckIP)

		track := api.Group("/track")
		track.Use(middleware.TrackingRateLimit())
		{
			track.POST("/plugin", trackingHandler.TrackPlugin)
			track.POST("/playback", trackingHandler.TrackPlayback)
		}

		api.POST("/auth/login", middleware.LoginRateLimit(), authHandler.Login)

		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired())
		{
			admin.PUT("/password", authHandler.ChangePassword)

			admin.GET("/stats", adminHandler.Dashboard)
			admin.GET("/activity", adminHandler.ActivityFeed)
			admin.GET("/sessions", adminHandler.ActiveSessions)

			admin.POST("/licenses", licenseHandler.Create)
			admin.GET("/licenses", licenseHandler.List)
			admin.POST("/licenses/bulk", licenseHandler.BulkAction)
			admin.GET("/licenses/:id", licenseHandler.Details)
			admin.PUT("/licenses/:id", licenseHandler.Update)
			admin.DELETE("/licenses/:id", licenseHandler.Delete)
			admin.POST("/licenses/:id/revoke", licenseHandler.Revoke)
			admin.POST("/licenses/:id/activate", licenseHandler.Activate)
			admin.POST("/licenses/:id/restore", licenseHandler.Restore)

			admin.GET("/devices", deviceHandler.List)
			admin.GET("/devices/online", deviceHandler.Online)
			admin.POST("/devices/:id/block", deviceHandler.Block)
			admin.POST("/devices/:id/unblock", deviceHandler.Unblock)
			admin.PUT("/devices/:id/name", deviceHandler.Rename)
			admin.DELETE("/devices/:id", deviceHandler.Delete)

			admin.GET("/blocked-ips", securityHandler.ListBlockedIPs)
			admin.POST("/blocked-ips", securityHandler.BlockIP)
			admin.DELETE("/blocked-ips/:ip", securityHandler.UnblockIP)
			admin.GET("/failed-logins", securityHandler.ListFailedLogins)
			admin.DELETE("/failed-logins/:ip", securityHandler.ClearFailedLogins)

			admin.GET("/logs", adminHandler.AccessLogs)
			admin.GET("/plugin-usage", adminHandler.PluginUsage)
			admin.GET("/playback", adminHandler.Playback)

			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)

			admin.POST("/backup", adminHandler.CreateBackup)
			admin.GET("/backup", adminHandler.ListBackups)
			admin.POST("/backup/restore", adminHandler.RestoreBackup)
		}
	}

	// Key-scoped plugin repository
	repo := r.Group("/r", middleware.RepoRateLimit())
	{
		repo.GET("/:key/repo.json", repoHandler.Manifest)
		repo.GET("/:key/plugins.json", repoHandler.Plugins)
	}

	return r, sessions
}
