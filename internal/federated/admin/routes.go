package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/hui-federated/internal/hui"
)

// RoundStatus is a snapshot of the server's round state machine, exposed
// read-only to operators.
type RoundStatus struct {
	Epoch              int64  `json:"epoch"`
	Phase              string `json:"phase"`
	ActiveClients      int    `json:"active_clients"`
	SampledClients     int    `json:"sampled_clients"`
	RespondedClients   int    `json:"responded_clients"`
	CumulativeEpsilon  float64 `json:"cumulative_epsilon"`
}

// RoundMetrics summarizes the most recently completed round.
type RoundMetrics struct {
	Epoch              int64        `json:"epoch"`
	ParticipatingCount int          `json:"participating_count"`
	CommBytes          int64        `json:"comm_bytes"`
	GlobalHUICount     int          `json:"global_hui_count"`
	TopHUIs            []hui.Record `json:"top_huis"`
}

// StatusProvider is implemented by the federated server and queried
// read-only by the admin HTTP handlers.
type StatusProvider interface {
	CurrentStatus() RoundStatus
	LastMetrics() (RoundMetrics, bool)
}

// Router builds the admin HTTP surface: public health/status/stream
// endpoints and a bearer-protected, rate-limited metrics endpoint, mirroring
// the teacher's public-vs-protected route-group split.
func Router(hub *Hub, status StatusProvider) *gin.Engine {
	r := gin.Default()

	pub := r.Group("/admin/v1")
	{
		pub.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "operational"})
		})
		pub.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, status.CurrentStatus())
		})
		pub.GET("/stream", func(c *gin.Context) {
			hub.Subscribe(c.Writer, c.Request)
		})
	}

	protected := r.Group("/admin/v1")
	protected.Use(AuthMiddleware())
	protected.Use(NewRateLimiter(60, 10).Middleware())
	{
		protected.GET("/metrics", func(c *gin.Context) {
			metrics, ok := status.LastMetrics()
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "no completed round yet"})
				return
			}
			c.JSON(http.StatusOK, metrics)
		})
	}

	return r
}
