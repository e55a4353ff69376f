// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"

	// 书籍相关错误
	ErrorBookCorrupted  = "BOOK_CORRUPTED"
	ErrorBookSaveFailed = "BOOK_SAVE_FAILED"

	// 章节相关错误
	ErrorChapterNotFound     = "CHAPTER_NOT_FOUND"
	ErrorChapterCreateFailed = "CHAPTER_CREATE_FAILED"

	// 续写相关错误
	ErrorGenerationFailed = "GENERATION_FAILED"
	ErrorGenerationBusy   = "GENERATION_BUSY"

	// LLM服务相关错误
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorLLMConfigInvalid      = "LLM_CONFIG_INVALID"
)
