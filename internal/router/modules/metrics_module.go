package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-account-service/internal/interface/middleware"
	"github.com/oksasatya/go-account-service/internal/metrics"
)

// MetricsModule exposes Prometheus metrics to private networks only.
type MetricsModule struct{}

func NewMetricsModule() *MetricsModule { return &MetricsModule{} }

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	rg.GET("/metrics", middleware.PrivateOnly(middleware.AllowPrivateIP()), gin.WrapH(metrics.Handler()))
}
