package modules

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-account-service/pkg/response"
)

type HealthModule struct {
	App string
}

func NewHealthModule(app string) *HealthModule { return &HealthModule{App: app} }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"app": m.App, "status": "up"}, "ok", nil)
	})
}
