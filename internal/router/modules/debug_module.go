package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-guard/internal/observability"
)

type DebugModule struct {
	Metrics *observability.Metrics
}

func NewDebugModule(m *observability.Metrics) *DebugModule { return &DebugModule{Metrics: m} }

// Register exposes Prometheus metrics at /debug/metrics.
func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/debug/metrics", gin.WrapH(m.Metrics.Handler()))
}
