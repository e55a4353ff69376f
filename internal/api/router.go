// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/novelcraft/novelcraft/internal/config"
	"github.com/novelcraft/novelcraft/internal/di"
	"github.com/novelcraft/novelcraft/internal/services"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	// 只从容器获取服务，不创建新实例
	container := di.GetContainer()

	bookService, ok := container.Get("book").(*services.BookService)
	if !ok {
		return nil, fmt.Errorf("书籍服务未正确初始化")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("LLM服务未正确初始化")
	}

	statsService, ok := container.Get("stats").(*services.StatsService)
	if !ok {
		return nil, fmt.Errorf("统计服务未正确初始化")
	}

	handler := NewHandler(bookService, llmService, statsService)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())

	// 前端静态文件（存在时才挂载）
	if _, err := os.Stat(cfg.StaticDir); err == nil {
		r.Static("/static", cfg.StaticDir)
		r.StaticFile("/", cfg.StaticDir+"/index.html")
	}

	r.GET("/health", handler.HealthCheck)

	// WebSocket 流式续写
	r.GET("/ws/generate", handler.GenerateStream)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		// 书籍
		bookGroup := api.Group("/book")
		{
			bookGroup.GET("", handler.GetBook)
			bookGroup.PUT("", handler.UpdateBook)
		}

		// 章节
		chaptersGroup := api.Group("/chapters")
		{
			chaptersGroup.POST("", handler.CreateChapter)
			chaptersGroup.PUT("/:id", handler.UpdateChapter)
			chaptersGroup.DELETE("/:id", handler.DeleteChapter)
			chaptersGroup.POST("/:id/select", handler.SelectChapter)
		}

		// 续写
		api.POST("/generate", handler.Generate)

		// LLM配置
		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", handler.GetLLMStatus)
			llmGroup.GET("/models", handler.GetLLMModels)
			llmGroup.PUT("/config", handler.UpdateLLMConfig)
		}

		// 统计
		api.GET("/stats", handler.GetStats)
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
