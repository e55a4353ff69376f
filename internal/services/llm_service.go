// internal/services/llm_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/novelcraft/novelcraft/internal/config"
	"github.com/novelcraft/novelcraft/internal/llm"
	"github.com/novelcraft/novelcraft/internal/models"
)

var (
	// ErrLLMNotReady LLM服务未就绪（未配置API密钥等）
	ErrLLMNotReady = errors.New("llm service not ready")
	// ErrGenerationBusy 已有生成任务在途，拒绝并发请求
	ErrGenerationBusy = errors.New("已有续写任务进行中，请稍后再试")
)

// 续写调用的固定采样参数，不开放给调用方
const (
	genTemperature    float32 = 0.8
	genTopP           float32 = 0.95
	genTopK                   = 40
	genThinkingBudget         = 2048
)

var providerDefaultModels = map[string]string{
	"google": "gemini-3-pro-preview",
}

// LLMService 提供统一的大语言模型调用接口
type LLMService struct {
	providerMutex sync.RWMutex
	provider      llm.Provider
	providerName  string
	isReady       bool
	readyState    string
	defaultModel  string

	// 在途请求守卫：0=空闲，1=生成中
	inFlight int32

	ContextService *ContextService
	StatsService   *StatsService
}

func createBaseLLMService() *LLMService {
	return &LLMService{
		readyState: "Not initialized",
	}
}

// NewLLMService 创建一个新的LLM服务
// 配置缺失时服务仍然创建成功，只是处于未就绪状态
func NewLLMService(contextService *ContextService, statsService *StatsService) (*LLMService, error) {
	service := createBaseLLMService()
	service.ContextService = contextService
	service.StatsService = statsService

	cfg := config.GetCurrentConfig()
	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service, nil
	}

	if cfg.LLMProvider == "" || cfg.LLMConfig == nil || cfg.LLMConfig["api_key"] == "" {
		service.readyState = "API key not configured"
		return service, nil
	}

	if err := service.initProvider(cfg.LLMProvider, cfg.LLMConfig); err != nil {
		service.readyState = fmt.Sprintf("Provider initialization failed: %v", err)
		return service, nil
	}

	return service, nil
}

// NewEmptyLLMService 创建未配置提供者的LLM服务（测试用）
func NewEmptyLLMService() *LLMService {
	service := createBaseLLMService()
	service.readyState = "No provider configured"
	return service
}

func (s *LLMService) initProvider(providerName string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(providerName, providerConfig)
	if err != nil {
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.isReady = true
	s.readyState = "Ready"

	if model := providerConfig["default_model"]; model != "" {
		s.defaultModel = model
	} else {
		s.defaultModel = providerDefaultModels[providerName]
	}

	return nil
}

// UpdateProvider 切换/更新LLM提供者配置
func (s *LLMService) UpdateProvider(providerName string, providerConfig map[string]string) error {
	if err := s.initProvider(providerName, providerConfig); err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("Provider initialization failed: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	return config.UpdateLLMConfig(providerName, providerConfig)
}

// IsReady 服务是否可以发起生成请求
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.isReady
}

// GetReadyState 返回可读的就绪状态描述
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// GetProviderName 当前提供者名称
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// GetDefaultModel 当前默认模型
func (s *LLMService) GetDefaultModel() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.defaultModel
}

// GetSupportedModels 当前提供者支持的模型列表
func (s *LLMService) GetSupportedModels() []string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.provider == nil {
		return []string{}
	}
	return s.provider.GetSupportedModels()
}

// acquireSlot 获取在途请求槽位，同一时刻只允许一个生成任务
func (s *LLMService) acquireSlot() bool {
	return atomic.CompareAndSwapInt32(&s.inFlight, 0, 1)
}

func (s *LLMService) releaseSlot() {
	atomic.StoreInt32(&s.inFlight, 0)
}

// buildRequest 组装固定采样参数的生成请求
func (s *LLMService) buildRequest(book *models.Book, userPrompt string, targetWordCount int) llm.CompletionRequest {
	prompt := s.ContextService.BuildPrompt(book, userPrompt, targetWordCount)

	return llm.CompletionRequest{
		Prompt:         prompt,
		Model:          s.GetDefaultModel(),
		Temperature:    genTemperature,
		TopP:           genTopP,
		TopK:           genTopK,
		ThinkingBudget: genThinkingBudget,
	}
}

// GenerateSegment 根据书籍设定与前情续写一段正文
// 提供者错误原样向上传播，不重试；返回文本原样交给调用方（可能为空串）
func (s *LLMService) GenerateSegment(ctx context.Context, book *models.Book, userPrompt string, targetWordCount int) (string, error) {
	if !s.IsReady() {
		return "", ErrLLMNotReady
	}

	if !s.acquireSlot() {
		return "", ErrGenerationBusy
	}
	defer s.releaseSlot()

	req := s.buildRequest(book, userPrompt, targetWordCount)

	s.providerMutex.RLock()
	provider := s.provider
	s.providerMutex.RUnlock()

	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		s.recordUsage(req.Model, 0, true)
		return "", err
	}

	s.recordUsage(resp.ModelName, resp.TokensUsed, false)
	return resp.Text, nil
}

// StreamSegment 流式续写，逐段返回生成文本
// 通道关闭前槽位一直被占用，新请求会收到ErrGenerationBusy
func (s *LLMService) StreamSegment(ctx context.Context, book *models.Book, userPrompt string, targetWordCount int) (<-chan llm.StreamResponse, error) {
	if !s.IsReady() {
		return nil, ErrLLMNotReady
	}

	if !s.acquireSlot() {
		return nil, ErrGenerationBusy
	}

	req := s.buildRequest(book, userPrompt, targetWordCount)

	s.providerMutex.RLock()
	provider := s.provider
	s.providerMutex.RUnlock()

	upstream, err := provider.StreamCompletion(ctx, req)
	if err != nil {
		s.releaseSlot()
		s.recordUsage(req.Model, 0, true)
		return nil, err
	}

	out := make(chan llm.StreamResponse)
	go func() {
		defer close(out)
		defer s.releaseSlot()

		for resp := range upstream {
			// 消费方放弃读取（如客户端断开）时靠ctx解除阻塞，否则槽位永远不会释放
			select {
			case out <- resp:
			case <-ctx.Done():
				return
			}

			if resp.Error != "" {
				s.recordUsage(req.Model, 0, true)
			} else if resp.Done {
				s.recordUsage(req.Model, 0, false)
			}
		}
	}()

	return out, nil
}

func (s *LLMService) recordUsage(model string, tokens int, failed bool) {
	if s.StatsService == nil {
		return
	}
	s.StatsService.RecordGeneration(model, tokens, failed)
}
