package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"withdrawal_settlement/pkg/middleware"
	"withdrawal_settlement/pkg/service"
)

type Handler struct {
	service      *service.Service
	allowOrigins []string
}

func NewHandler(service *service.Service, allowOrigins []string) *Handler {
	return &Handler{
		service:      service,
		allowOrigins: allowOrigins,
	}
}

func (h *Handler) InitRoute() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if len(h.allowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     h.allowOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.UserHeader, middleware.AdminHeader},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
		}))
	}

	api := router.Group("/api")
	{
		withdrawals := api.Group("/withdrawals", middleware.UserAuth())
		{
			withdrawals.POST("", h.SubmitWithdrawal)
			withdrawals.GET("", h.ListMyWithdrawals)
			withdrawals.GET("/limits", h.GetLimits)
			withdrawals.GET("/:id", h.GetMyWithdrawal)
		}
	}

	admin := router.Group("/admin", middleware.AdminAuth())
	{
		withdrawals := admin.Group("/withdrawals")
		{
			withdrawals.GET("", h.ListWithdrawals)
			withdrawals.GET("/:id", h.GetWithdrawal)
			withdrawals.GET("/:id/audit", h.GetAuditTrail)
			withdrawals.POST("/:id/actions", h.ApplyAction)
		}
	}
	return router
}
