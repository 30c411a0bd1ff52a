package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pomodoroplaza/internal/handler"
	"pomodoroplaza/internal/middleware"
	"pomodoroplaza/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	timerHandler *handler.TimerHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.Auth(authService), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.Auth(authService))
	protected.GET("/state", timerHandler.GetState)
	protected.GET("/events", timerHandler.Events)

	protected.POST("/timers", timerHandler.AddTimer)
	protected.PUT("/timers/order", timerHandler.Reorder)
	protected.PUT("/timers/:id", timerHandler.UpdateTimer)
	protected.DELETE("/timers/:id", timerHandler.DeleteTimer)
	protected.POST("/timers/:id/start", timerHandler.StartTimer)
	protected.POST("/timers/:id/pause", timerHandler.PauseTimer)
	protected.POST("/timers/:id/reset", timerHandler.ResetTimer)
	protected.POST("/timer/stop", timerHandler.StopTimer)

	protected.PUT("/settings/pause-duration", timerHandler.UpdatePauseDuration)
	protected.POST("/break/start", timerHandler.StartBreak)
	protected.POST("/break/skip", timerHandler.SkipBreak)

	protected.GET("/history", timerHandler.GetHistory)
	protected.GET("/heatmap", timerHandler.GetHeatmap)
	protected.GET("/share", timerHandler.Share)
	protected.POST("/share/import", timerHandler.Import)

	return engine
}
