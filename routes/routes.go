package routes

import (
	"godispatch/internal/handlers"
	"godispatch/internal/middleware"
	"godispatch/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Delivery    *handlers.DeliveryHandler
	Courier     *handlers.CourierHandler
	ServiceArea *handlers.ServiceAreaHandler
	WS          *handlers.WSHandler
}

// Setup wires the HTTP surface onto the engine.
func Setup(engine *gin.Engine, h *Handlers, log *logger.Logger) {
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.LoggingMiddleware(log))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")

	deliveries := v1.Group("/deliveries")
	{
		deliveries.POST("", h.Delivery.CreateDelivery)
		deliveries.GET("/:id", h.Delivery.GetDelivery)
		deliveries.POST("/:id/dispatch", h.Delivery.Dispatch)
		deliveries.POST("/:id/cancel", h.Delivery.Cancel)
		deliveries.POST("/:id/reassign", h.Delivery.Reassign)
		deliveries.POST("/:id/pickup", h.Delivery.MarkPickedUp)
		deliveries.POST("/:id/deliver", h.Delivery.MarkDelivered)
	}

	couriers := v1.Group("/couriers")
	{
		couriers.POST("", h.Courier.RegisterCourier)
		couriers.GET("/:id", h.Courier.GetCourier)
		couriers.POST("/:id/online", h.Courier.GoOnline)
		couriers.POST("/:id/offline", h.Courier.GoOffline)
		couriers.POST("/:id/location", h.Courier.UpdateLocation)
		couriers.GET("/:id/location", h.Courier.GetLocation)
	}

	areas := v1.Group("/service-areas")
	{
		areas.POST("", h.ServiceArea.CreateServiceArea)
		areas.GET("", h.ServiceArea.ListServiceAreas)
		areas.GET("/coverage", h.ServiceArea.CheckCoverage)
		areas.GET("/:id", h.ServiceArea.GetServiceArea)
		areas.POST("/:id/activate", h.ServiceArea.ActivateServiceArea)
		areas.POST("/:id/deactivate", h.ServiceArea.DeactivateServiceArea)
	}

	v1.GET("/ws", h.WS.Connect)
}
