// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veni/internal/http/handlers"
	"veni/internal/http/middleware"
	"veni/internal/modules/dispatch"
	"veni/internal/modules/driver"
	"veni/internal/modules/trip"
)

type RouterDeps struct {
	Coordinator *dispatch.Coordinator
	Trips       *trip.Service
	Drivers     *driver.Directory
	JWTSecret   string
	Log         *slog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(deps.Log),
		middleware.Logging(deps.Log),
		middleware.Metrics(),
	)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.JWTSecret))

	tripHandler := handlers.NewTripHandler(deps.Coordinator, deps.Trips)
	api.POST("/trips/request", tripHandler.Request)
	api.GET("/trips", tripHandler.ListPending)
	api.GET("/trips/:id", tripHandler.Get)
	api.PATCH("/trips/:id/accept", tripHandler.Accept)
	api.PATCH("/trips/:id/start", tripHandler.Start)
	api.PATCH("/trips/:id/complete", tripHandler.Complete)
	api.PATCH("/trips/:id/cancel", tripHandler.Cancel)
	api.GET("/metrics/summary", tripHandler.MetricsSummary)

	driverHandler := handlers.NewDriverHandler(deps.Drivers)
	api.POST("/drivers", driverHandler.Register)
	api.GET("/drivers/nearby", driverHandler.Nearby)
	api.PUT("/drivers/:id/location", driverHandler.UpdateLocation)
	api.PUT("/drivers/:id/availability", driverHandler.SetAvailability)

	return r
}
