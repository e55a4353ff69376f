// internal/models/book_test.go
package models

import (
	"testing"
)

func TestNewChapter(t *testing.T) {
	chapter := NewChapter()

	if chapter.ID == "" {
		t.Fatal("新章节应该有非空ID")
	}
	if chapter.Title != DefaultChapterTitle {
		t.Errorf("新章节标题应该是占位标题 %q，实际为 %q", DefaultChapterTitle, chapter.Title)
	}
	if chapter.Content != "" {
		t.Errorf("新章节内容应该为空，实际为 %q", chapter.Content)
	}
	if chapter.Summary != nil {
		t.Error("新章节摘要应该为nil")
	}
	if chapter.LastModified == 0 {
		t.Error("新章节应该有修改时间戳")
	}
}

func TestNewChapterUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		chapter := NewChapter()
		if seen[chapter.ID] {
			t.Fatalf("章节ID重复: %s", chapter.ID)
		}
		seen[chapter.ID] = true
	}
}

func TestDefaultBook(t *testing.T) {
	book := DefaultBook()

	if book.ID != DefaultBookID {
		t.Errorf("默认书籍ID应该是 %q，实际为 %q", DefaultBookID, book.ID)
	}
	if book.Title != "未命名小说" {
		t.Errorf("默认书籍标题应该是 \"未命名小说\"，实际为 %q", book.Title)
	}
	if len(book.Chapters) != 0 {
		t.Errorf("默认书籍章节序列应该为空，实际有 %d 章", len(book.Chapters))
	}
	if book.LastActiveChapterID != nil {
		t.Error("默认书籍的活动章节指针应该为nil")
	}
}

func TestFindChapter(t *testing.T) {
	book := DefaultBook()
	chapter := NewChapter()
	book.Chapters = append(book.Chapters, chapter)

	found, ok := book.FindChapter(chapter.ID)
	if !ok {
		t.Fatal("应该能找到已添加的章节")
	}
	if found.ID != chapter.ID {
		t.Errorf("找到的章节ID不匹配: %s != %s", found.ID, chapter.ID)
	}

	if _, ok := book.FindChapter("不存在的ID"); ok {
		t.Error("不应该找到不存在的章节")
	}
}

func TestClone(t *testing.T) {
	book := DefaultBook()
	book.Chapters = append(book.Chapters, NewChapter())
	id := book.Chapters[0].ID
	book.LastActiveChapterID = &id

	copied := book.Clone()

	// 修改副本不应该影响原书
	copied.Chapters[0].Title = "改过的标题"
	copied.Title = "另一本书"
	*copied.LastActiveChapterID = "别的章节"

	if book.Chapters[0].Title == "改过的标题" {
		t.Error("修改副本章节影响了原书")
	}
	if book.Title == "另一本书" {
		t.Error("修改副本标题影响了原书")
	}
	if *book.LastActiveChapterID == "别的章节" {
		t.Error("修改副本活动章节指针影响了原书")
	}
}
