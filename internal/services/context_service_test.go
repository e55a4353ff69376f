// internal/services/context_service_test.go
package services

import (
	"strings"
	"testing"

	"github.com/novelcraft/novelcraft/internal/models"
)

func newTestContextService() *ContextService {
	return &ContextService{ChapterWindow: 3, TailRunes: 3000}
}

func buildTestBook(chapterCount int) *models.Book {
	book := models.DefaultBook()
	book.Title = "测试小说"
	for i := 0; i < chapterCount; i++ {
		chapter := models.NewChapter()
		chapter.Title = chapterTitle(i + 1)
		chapter.Content = "章节内容" + chapter.Title
		book.Chapters = append(book.Chapters, chapter)
	}
	return book
}

func chapterTitle(n int) string {
	return "第" + strings.Repeat("X", n) + "章"
}

func TestBuildPromptRecentWindow(t *testing.T) {
	service := newTestContextService()
	book := buildTestBook(5)

	prompt := service.BuildPrompt(book, "继续写", 1000)

	// 只包含最后3章
	for _, n := range []int{3, 4, 5} {
		if !strings.Contains(prompt, chapterTitle(n)) {
			t.Errorf("上下文应该包含 %s", chapterTitle(n))
		}
	}
	for _, n := range []int{1, 2} {
		if strings.Contains(prompt, "--- 章节："+chapterTitle(n)) {
			t.Errorf("上下文不应该包含 %s", chapterTitle(n))
		}
	}

	// 保持原有顺序
	pos3 := strings.Index(prompt, chapterTitle(3))
	pos4 := strings.Index(prompt, chapterTitle(4))
	pos5 := strings.Index(prompt, chapterTitle(5))
	if !(pos3 < pos4 && pos4 < pos5) {
		t.Error("最近章节应该按原有顺序排列")
	}
}

func TestBuildPromptEmptyBook(t *testing.T) {
	service := newTestContextService()
	book := buildTestBook(0)

	prompt := service.BuildPrompt(book, "开始写", 800)

	if !strings.Contains(prompt, "【当前为该小说的第一章】") {
		t.Error("没有章节时应该输出第一章标记块")
	}
	if strings.Contains(prompt, "【前情提要") {
		t.Error("没有章节时不应该输出前情提要块")
	}
}

func TestBuildPromptTailTruncation(t *testing.T) {
	service := newTestContextService()
	book := buildTestBook(1)

	// 4000字的章节：前1000字应该被截掉，只保留结尾3000字
	book.Chapters[0].Content = strings.Repeat("前", 1000) + strings.Repeat("后", 3000)

	prompt := service.BuildPrompt(book, "继续写", 1000)

	if !strings.Contains(prompt, strings.Repeat("后", 3000)) {
		t.Error("上下文应该完整保留章节结尾3000字")
	}
	if strings.Contains(prompt, "前前") {
		t.Error("超出截断窗口的开头内容应该被丢弃")
	}
}

func TestBuildPromptShortChapterKeptWhole(t *testing.T) {
	service := newTestContextService()
	book := buildTestBook(1)
	book.Chapters[0].Content = "很短的一章。"

	prompt := service.BuildPrompt(book, "继续写", 1000)

	if !strings.Contains(prompt, "很短的一章。") {
		t.Error("短于截断窗口的章节应该全文保留")
	}
}

func TestBuildPromptGlobalContext(t *testing.T) {
	service := newTestContextService()
	book := buildTestBook(0)
	book.Title = "无尽之海"
	book.Premise = "大航海时代的奇幻冒险"
	book.Style = "热血冒险"
	book.Characters = "主角：林远"

	prompt := service.BuildPrompt(book, "写开头", 500)

	for _, fragment := range []string{
		"【小说标题】：无尽之海",
		"【核心梗概/世界观】：大航海时代的奇幻冒险",
		"【文风要求】：热血冒险",
		"【人物设定】：主角：林远",
		"用户的具体指引：写开头",
		"字数大约在 500 字左右",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("提示词应该包含 %q", fragment)
		}
	}
}

func TestBuildPromptCustomWindow(t *testing.T) {
	service := &ContextService{ChapterWindow: 1, TailRunes: 5}
	book := buildTestBook(3)
	book.Chapters[2].Content = "一二三四五六七八"

	prompt := service.BuildPrompt(book, "继续", 100)

	if strings.Contains(prompt, "--- 章节："+chapterTitle(2)) {
		t.Error("窗口为1时不应该包含倒数第二章")
	}
	if !strings.Contains(prompt, "四五六七八") {
		t.Error("应该保留结尾5个字符")
	}
	if strings.Contains(prompt, "一二三四五六七八") {
		t.Error("超出窗口的字符应该被截掉")
	}
}
