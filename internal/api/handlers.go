// internal/api/handlers.go
package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/novelcraft/novelcraft/internal/errors"
	"github.com/novelcraft/novelcraft/internal/services"
)

// Handler 处理API请求
type Handler struct {
	BookService  *services.BookService  // 书籍服务
	LLMService   *services.LLMService   // LLM服务
	StatsService *services.StatsService // 统计服务
	Response     *ResponseHelper        // 响应助手
}

// NewHandler 创建API处理器
func NewHandler(bookService *services.BookService, llmService *services.LLMService, statsService *services.StatsService) *Handler {
	return &Handler{
		BookService:  bookService,
		LLMService:   llmService,
		StatsService: statsService,
		Response:     NewResponseHelper(),
	}
}

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// GenerateRequest 续写请求结构
type GenerateRequest struct {
	ChapterID       string `json:"chapter_id"`        // 目标章节ID
	Prompt          string `json:"prompt"`            // 用户的写作指引
	TargetWordCount int    `json:"target_word_count"` // 目标字数
}

// ========================================
// 书籍
// ========================================

// GetBook 获取整本书（含活动章节指针）
func (h *Handler) GetBook(c *gin.Context) {
	book := h.BookService.GetBook()

	data := gin.H{"book": book}
	if warning := h.BookService.LoadWarning(); warning != "" {
		data["warning"] = warning
	}

	h.Response.Success(c, data)
}

// UpdateBook 更新书籍全局设定
func (h *Handler) UpdateBook(c *gin.Context) {
	var updates services.BookSettingsUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		h.Response.BadRequest(c, "请求格式错误", err.Error())
		return
	}

	book, err := h.BookService.UpdateSettings(updates)
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorBookSaveFailed, "更新书籍设定失败", err.Error())
		return
	}

	h.Response.Success(c, gin.H{"book": book}, "书籍设定已更新")
}

// ========================================
// 章节
// ========================================

// CreateChapter 创建新章节
func (h *Handler) CreateChapter(c *gin.Context) {
	chapter, err := h.BookService.CreateChapter()
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorChapterCreateFailed, "创建章节失败", err.Error())
		return
	}

	h.Response.Created(c, gin.H{"chapter": chapter}, "章节创建成功")
}

// UpdateChapter 修改章节标题/内容
func (h *Handler) UpdateChapter(c *gin.Context) {
	chapterID := c.Param("id")

	var updates services.ChapterUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		h.Response.BadRequest(c, "请求格式错误", err.Error())
		return
	}

	chapter, err := h.BookService.UpdateChapter(chapterID, updates)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			h.Response.NotFound(c, "章节")
			return
		}
		h.Response.Error(c, http.StatusInternalServerError, ErrorBookSaveFailed, "更新章节失败", err.Error())
		return
	}

	h.Response.Success(c, gin.H{"chapter": chapter})
}

// DeleteChapter 删除章节
// 删除的是活动章节时，活动章节指针被清除，前端回退到设置页
func (h *Handler) DeleteChapter(c *gin.Context) {
	chapterID := c.Param("id")

	if err := h.BookService.DeleteChapter(chapterID); err != nil {
		if apperrors.IsNotFoundError(err) {
			h.Response.NotFound(c, "章节")
			return
		}
		h.Response.Error(c, http.StatusInternalServerError, ErrorBookSaveFailed, "删除章节失败", err.Error())
		return
	}

	book := h.BookService.GetBook()
	h.Response.Success(c, gin.H{"last_active_chapter_id": book.LastActiveChapterID}, "章节已删除")
}

// SelectChapter 设置活动章节
func (h *Handler) SelectChapter(c *gin.Context) {
	chapterID := c.Param("id")

	if err := h.BookService.SelectChapter(chapterID); err != nil {
		if apperrors.IsNotFoundError(err) {
			h.Response.NotFound(c, "章节")
			return
		}
		h.Response.Error(c, http.StatusInternalServerError, ErrorBookSaveFailed, "切换章节失败", err.Error())
		return
	}

	h.Response.Success(c, gin.H{"last_active_chapter_id": chapterID})
}

// ========================================
// 续写
// ========================================

// Generate 发起一次续写并把结果合并进章节
// 提供者失败只返回一条笼统的错误信息，由用户自行重试
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求格式错误", err.Error())
		return
	}

	if req.ChapterID == "" {
		h.Response.BadRequest(c, "缺少章节ID")
		return
	}
	if req.TargetWordCount <= 0 {
		req.TargetWordCount = 1000
	}

	book := h.BookService.GetBook()
	if _, ok := book.FindChapter(req.ChapterID); !ok {
		h.Response.NotFound(c, "章节")
		return
	}

	text, err := h.LLMService.GenerateSegment(c.Request.Context(), book, req.Prompt, req.TargetWordCount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGenerationBusy):
			h.Response.Conflict(c, ErrorGenerationBusy, err.Error())
		case errors.Is(err, services.ErrLLMNotReady):
			h.Response.ServiceUnavailable(c, ErrorLLMServiceUnavailable, "续写服务未就绪", h.LLMService.GetReadyState())
		default:
			log.Printf("续写失败: %v", err)
			h.Response.Error(c, http.StatusBadGateway, ErrorGenerationFailed, "续写失败，请稍后重试")
		}
		return
	}

	chapter, err := h.BookService.ApplyGeneratedText(req.ChapterID, text)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			h.Response.NotFound(c, "章节")
			return
		}
		h.Response.Error(c, http.StatusInternalServerError, ErrorBookSaveFailed, "保存生成内容失败", err.Error())
		return
	}

	h.Response.Success(c, gin.H{
		"chapter":        chapter,
		"generated_text": text,
	})
}

// ========================================
// LLM配置
// ========================================

// GetLLMStatus 获取LLM服务状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"ready":         h.LLMService.IsReady(),
		"state":         h.LLMService.GetReadyState(),
		"provider":      h.LLMService.GetProviderName(),
		"default_model": h.LLMService.GetDefaultModel(),
	})
}

// GetLLMModels 获取当前提供者支持的模型列表
func (h *Handler) GetLLMModels(c *gin.Context) {
	h.Response.Success(c, gin.H{"models": h.LLMService.GetSupportedModels()})
}

// UpdateLLMConfigRequest 更新LLM配置的请求结构
type UpdateLLMConfigRequest struct {
	Provider string            `json:"provider"`
	Config   map[string]string `json:"config"`
}

// UpdateLLMConfig 更新LLM提供者配置
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req UpdateLLMConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求格式错误", err.Error())
		return
	}

	if req.Provider == "" || req.Config == nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "缺少提供者或配置")
		return
	}

	if err := h.LLMService.UpdateProvider(req.Provider, req.Config); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "更新LLM配置失败", err.Error())
		return
	}

	h.Response.Success(c, gin.H{
		"provider": h.LLMService.GetProviderName(),
		"ready":    h.LLMService.IsReady(),
	}, "LLM配置已更新")
}

// ========================================
// 统计与健康检查
// ========================================

// GetStats 获取续写用量统计
func (h *Handler) GetStats(c *gin.Context) {
	h.Response.Success(c, gin.H{"stats": h.StatsService.GetStats()})
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"llm_ready": h.LLMService.IsReady(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
