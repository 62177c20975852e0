package config

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConfigAPIServer serves the settings file written by the last build run.
type ConfigAPIServer struct {
	settingsPath string
}

// NewConfigAPIServer creates a new config API server.
func NewConfigAPIServer(settingsPath string) *ConfigAPIServer {
	return &ConfigAPIServer{
		settingsPath: settingsPath,
	}
}

// RegisterRoutes adds the config routes to group.
func (c *ConfigAPIServer) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/config", c.HandleGetConfig)
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// HandleGetConfig handles GET /api/v1/meta/config. The password is never
// returned.
func (c *ConfigAPIServer) HandleGetConfig(ctx *gin.Context) {
	cfg, err := LoadRunConfig(c.settingsPath)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to retrieve configuration"))
		return
	}
	if cfg == nil {
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "No build run has been recorded"))
		return
	}

	ctx.JSON(http.StatusOK, cfg.Redacted())
}
