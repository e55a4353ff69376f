// internal/services/book_service_test.go
package services

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/novelcraft/novelcraft/internal/storage"
)

func setupBookService(t *testing.T) (*BookService, *storage.FileStorage, func()) {
	tempDir, err := os.MkdirTemp("", "book_service_test_*")
	if err != nil {
		t.Fatalf("创建临时测试目录失败: %v", err)
	}

	fs, err := storage.NewFileStorage(tempDir)
	if err != nil {
		t.Fatalf("创建文件存储失败: %v", err)
	}

	service, err := NewBookService(fs)
	if err != nil {
		t.Fatalf("创建书籍服务失败: %v", err)
	}

	return service, fs, func() { os.RemoveAll(tempDir) }
}

func TestLoadDefaultBookWhenAbsent(t *testing.T) {
	service, _, cleanup := setupBookService(t)
	defer cleanup()

	book := service.GetBook()

	if book.Title != "未命名小说" {
		t.Errorf("空存储应该加载默认书籍，标题实际为 %q", book.Title)
	}
	if len(book.Chapters) != 0 {
		t.Errorf("默认书籍章节序列应该为空，实际有 %d 章", len(book.Chapters))
	}
	if book.LastActiveChapterID != nil {
		t.Error("默认书籍的活动章节指针应该为nil")
	}
	if service.LoadWarning() != "" {
		t.Errorf("空存储加载不应该产生警告，实际为 %q", service.LoadWarning())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	service, fs, cleanup := setupBookService(t)
	defer cleanup()

	title := "星海征途"
	premise := "一个少年意外进入星际舰队"
	if _, err := service.UpdateSettings(BookSettingsUpdate{Title: &title, Premise: &premise}); err != nil {
		t.Fatalf("更新书籍设定失败: %v", err)
	}

	chapter, err := service.CreateChapter()
	if err != nil {
		t.Fatalf("创建章节失败: %v", err)
	}

	content := "舰桥上一片寂静。"
	if _, err := service.UpdateChapter(chapter.ID, ChapterUpdate{Content: &content}); err != nil {
		t.Fatalf("更新章节失败: %v", err)
	}

	saved := service.GetBook()

	// 用同一存储重新加载，应该逐字段一致
	reloaded, err := NewBookService(fs)
	if err != nil {
		t.Fatalf("重新加载书籍服务失败: %v", err)
	}

	if !reflect.DeepEqual(saved, reloaded.GetBook()) {
		t.Errorf("保存后重新加载的书籍与原书不一致:\n保存: %+v\n加载: %+v", saved, reloaded.GetBook())
	}
}

func TestLoadCorruptBookFallsBackToDefault(t *testing.T) {
	_, fs, cleanup := setupBookService(t)
	defer cleanup()

	if err := fs.SaveRaw("books", "book.json", []byte("{损坏的数据")); err != nil {
		t.Fatalf("写入损坏数据失败: %v", err)
	}

	service, err := NewBookService(fs)
	if err == nil {
		t.Fatal("加载损坏数据应该返回ErrBookCorrupted")
	}
	if !errors.Is(err, ErrBookCorrupted) {
		t.Fatalf("期望ErrBookCorrupted，实际为: %v", err)
	}

	// 服务仍然可用，持有默认书籍
	book := service.GetBook()
	if book.Title != "未命名小说" {
		t.Errorf("损坏数据应该回退到默认书籍，标题实际为 %q", book.Title)
	}
	if service.LoadWarning() == "" {
		t.Error("损坏数据加载后应该有警告信息")
	}
}

func TestCreateChapterSequentialTitles(t *testing.T) {
	service, _, cleanup := setupBookService(t)
	defer cleanup()

	first, err := service.CreateChapter()
	if err != nil {
		t.Fatalf("创建第一章失败: %v", err)
	}
	second, err := service.CreateChapter()
	if err != nil {
		t.Fatalf("创建第二章失败: %v", err)
	}

	if first.Title != "第 1 章" {
		t.Errorf("第一章标题应该是 \"第 1 章\"，实际为 %q", first.Title)
	}
	if second.Title != "第 2 章" {
		t.Errorf("第二章标题应该是 \"第 2 章\"，实际为 %q", second.Title)
	}
	if first.ID == second.ID {
		t.Error("两次创建的章节ID不应该相同")
	}

	// 新章节自动成为活动章节
	book := service.GetBook()
	if book.LastActiveChapterID == nil || *book.LastActiveChapterID != second.ID {
		t.Error("最新创建的章节应该成为活动章节")
	}
}

func TestDeleteActiveChapterClearsSelection(t *testing.T) {
	service, _, cleanup := setupBookService(t)
	defer cleanup()

	first, _ := service.CreateChapter()
	second, _ := service.CreateChapter()

	// second是活动章节，删除它应该清除指针
	if err := service.DeleteChapter(second.ID); err != nil {
		t.Fatalf("删除活动章节失败: %v", err)
	}

	book := service.GetBook()
	if book.LastActiveChapterID != nil {
		t.Error("删除活动章节后指针应该被清除")
	}
	if len(book.Chapters) != 1 {
		t.Errorf("删除后应该剩1章，实际有 %d 章", len(book.Chapters))
	}

	// 删除非活动章节不影响指针
	if err := service.SelectChapter(first.ID); err != nil {
		t.Fatalf("切换章节失败: %v", err)
	}
	third, _ := service.CreateChapter()
	if err := service.SelectChapter(first.ID); err != nil {
		t.Fatalf("切换章节失败: %v", err)
	}
	if err := service.DeleteChapter(third.ID); err != nil {
		t.Fatalf("删除非活动章节失败: %v", err)
	}

	book = service.GetBook()
	if book.LastActiveChapterID == nil || *book.LastActiveChapterID != first.ID {
		t.Error("删除非活动章节不应该影响活动章节指针")
	}
}

func TestDeleteUnknownChapter(t *testing.T) {
	service, _, cleanup := setupBookService(t)
	defer cleanup()

	if err := service.DeleteChapter("不存在的ID"); !errors.Is(err, ErrChapterNotFound) {
		t.Errorf("删除不存在的章节应该返回ErrChapterNotFound，实际为: %v", err)
	}
}

func TestApplyGeneratedText(t *testing.T) {
	service, _, cleanup := setupBookService(t)
	defer cleanup()

	chapter, _ := service.CreateChapter()

	// 内容为空时，生成文本直接作为全文
	updated, err := service.ApplyGeneratedText(chapter.ID, "第一段生成内容。")
	if err != nil {
		t.Fatalf("合并生成内容失败: %v", err)
	}
	if updated.Content != "第一段生成内容。" {
		t.Errorf("空章节应该直接写入生成内容，实际为 %q", updated.Content)
	}

	// 内容非空时，以空行分隔追加
	updated, err = service.ApplyGeneratedText(chapter.ID, "第二段生成内容。")
	if err != nil {
		t.Fatalf("合并生成内容失败: %v", err)
	}
	expected := "第一段生成内容。\n\n第二段生成内容。"
	if updated.Content != expected {
		t.Errorf("追加应该以空行分隔:\n期望: %q\n实际: %q", expected, updated.Content)
	}
	if !strings.Contains(updated.Content, "\n\n") {
		t.Error("追加后的内容应该包含空行分隔")
	}
}

func TestUpdateChapterBumpsLastModified(t *testing.T) {
	service, _, cleanup := setupBookService(t)
	defer cleanup()

	chapter, _ := service.CreateChapter()
	before := chapter.LastModified

	title := "改名的章节"
	updated, err := service.UpdateChapter(chapter.ID, ChapterUpdate{Title: &title})
	if err != nil {
		t.Fatalf("更新章节失败: %v", err)
	}

	if updated.Title != "改名的章节" {
		t.Errorf("章节标题应该已更新，实际为 %q", updated.Title)
	}
	if updated.LastModified < before {
		t.Error("更新后修改时间不应该回退")
	}
}
