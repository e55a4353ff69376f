// internal/services/context_service.go
package services

import (
	"fmt"
	"strings"

	"github.com/novelcraft/novelcraft/internal/config"
	"github.com/novelcraft/novelcraft/internal/models"
)

// ContextService 负责为续写请求拼装上下文
// 上下文 = 全局设定块 + 最近章节的结尾片段 + 本次写作任务
type ContextService struct {
	// 取最近几章作为前情
	ChapterWindow int
	// 每章保留的结尾字符数（按rune计，整章短于该值时全文保留）
	TailRunes int
}

// NewContextService 创建上下文服务，窗口参数来自配置
func NewContextService() *ContextService {
	cfg := config.GetCurrentConfig()
	return &ContextService{
		ChapterWindow: cfg.ContextChapterWindow,
		TailRunes:     cfg.ContextTailRunes,
	}
}

// BuildPrompt 构建发送给生成模型的完整提示词
// 全局设定原样嵌入；最近章节只保留结尾片段以限制提示词长度，
// 代价是超长章节靠前的情节会被丢弃
func (s *ContextService) BuildPrompt(book *models.Book, userPrompt string, targetWordCount int) string {
	var sb strings.Builder

	// 1. 全局书籍设定
	sb.WriteString("你是一个专业的小说家。请根据以下设定续写小说。\n\n")
	sb.WriteString(fmt.Sprintf("【小说标题】：%s\n", book.Title))
	sb.WriteString(fmt.Sprintf("【核心梗概/世界观】：%s\n", book.Premise))
	sb.WriteString(fmt.Sprintf("【人物设定】：%s\n", book.Characters))
	sb.WriteString(fmt.Sprintf("【文风要求】：%s\n", book.Style))

	// 2. 最近章节的前情提要
	recentChapters := s.recentWindow(book.Chapters)
	if len(recentChapters) > 0 {
		sb.WriteString("\n【前情提要 (最近章节内容)】：\n")
		for _, chapter := range recentChapters {
			sb.WriteString(fmt.Sprintf("--- 章节：%s ---\n", chapter.Title))
			sb.WriteString(tailRunes(chapter.Content, s.TailRunes))
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("\n【当前为该小说的第一章】\n")
	}

	// 3. 本次写作任务
	sb.WriteString("\n【本次写作任务】：\n")
	sb.WriteString("请根据以上背景和前情，撰写接下来的剧情。\n")
	sb.WriteString(fmt.Sprintf("用户的具体指引：%s\n\n", userPrompt))
	sb.WriteString("要求：\n")
	sb.WriteString(fmt.Sprintf("1. 字数大约在 %d 字左右。\n", targetWordCount))
	sb.WriteString("2. 严格贴合设定，保持人物性格一致。\n")
	sb.WriteString("3. 承接上文剧情，不要重复之前的内容。\n")
	sb.WriteString("4. 直接输出小说正文，不要包含任何\"好的，这是为您生成的小说\"之类的开场白或结束语。\n")

	return sb.String()
}

// recentWindow 返回章节序列的尾部窗口，保持原有顺序
func (s *ContextService) recentWindow(chapters []models.Chapter) []models.Chapter {
	if len(chapters) <= s.ChapterWindow {
		return chapters
	}
	return chapters[len(chapters)-s.ChapterWindow:]
}

// tailRunes 保留字符串结尾的n个字符
func tailRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
