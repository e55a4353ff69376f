// internal/app/app.go
package app

import (
	"errors"
	"fmt"
	"log"

	"github.com/novelcraft/novelcraft/internal/config"
	"github.com/novelcraft/novelcraft/internal/di"
	"github.com/novelcraft/novelcraft/internal/services"
	"github.com/novelcraft/novelcraft/internal/storage"

	// 注册LLM提供者
	_ "github.com/novelcraft/novelcraft/internal/llm/providers/google"
)

// InitServices 按依赖顺序初始化所有服务并注册到容器
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	// 1. 文件存储
	fileStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("初始化文件存储失败: %w", err)
	}
	container.Register("storage", fileStorage)

	// 2. 统计服务
	statsService := services.NewStatsService(fileStorage)
	container.Register("stats", statsService)

	// 3. 书籍服务
	// 数据损坏时回退到默认书籍，记录警告但不阻断启动
	bookService, err := services.NewBookService(fileStorage)
	if err != nil {
		if !errors.Is(err, services.ErrBookCorrupted) {
			return fmt.Errorf("初始化书籍服务失败: %w", err)
		}
		log.Printf("警告: %v", err)
	}
	container.Register("book", bookService)

	// 4. 上下文服务
	contextService := services.NewContextService()
	container.Register("context", contextService)

	// 5. LLM服务（未配置密钥时处于未就绪状态，不阻断启动）
	llmService, err := services.NewLLMService(contextService, statsService)
	if err != nil {
		return fmt.Errorf("初始化LLM服务失败: %w", err)
	}
	if !llmService.IsReady() {
		log.Printf("警告: LLM服务未就绪: %s", llmService.GetReadyState())
	}
	container.Register("llm", llmService)

	return nil
}
