// internal/models/book.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultBookID 整个应用只有一本书
const DefaultBookID = "default-book"

// DefaultChapterTitle 新章节的占位标题
const DefaultChapterTitle = "新章节"

// Chapter 表示小说中的一个章节
type Chapter struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	Summary      *string `json:"summary"`       // 预留：自动生成的章节摘要，用于上下文压缩
	LastModified int64   `json:"last_modified"` // Unix毫秒时间戳，每次标题/内容变更时更新
}

// Book 表示整本小说及其全局设定
type Book struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Premise             string    `json:"premise"`    // 核心构思/世界观
	Style               string    `json:"style"`      // 文风要求
	Characters          string    `json:"characters"` // 人物设定
	Chapters            []Chapter `json:"chapters"`
	LastActiveChapterID *string   `json:"last_active_chapter_id"` // 非拥有引用，可能指向已删除的章节
}

// NewChapter 创建一个新章节
// 纯工厂函数：生成唯一ID和占位标题，内容为空，调用方负责后续改写标题
func NewChapter() Chapter {
	return Chapter{
		ID:           uuid.NewString(),
		Title:        DefaultChapterTitle,
		Content:      "",
		Summary:      nil,
		LastModified: time.Now().UnixMilli(),
	}
}

// DefaultBook 返回硬编码的默认书籍记录
// 存储为空或解析失败时作为兜底状态
func DefaultBook() *Book {
	return &Book{
		ID:                  DefaultBookID,
		Title:               "未命名小说",
		Premise:             "这里是一段关于这本小说的核心构思、世界观设定或者主要冲突的描述...",
		Style:               "通俗小说，节奏明快",
		Characters:          "主角：待定\n配角：待定",
		Chapters:            []Chapter{},
		LastActiveChapterID: nil,
	}
}

// FindChapter 按ID查找章节，返回章节指针和是否存在
func (b *Book) FindChapter(id string) (*Chapter, bool) {
	for i := range b.Chapters {
		if b.Chapters[i].ID == id {
			return &b.Chapters[i], true
		}
	}
	return nil, false
}

// Touch 更新章节的最后修改时间
func (c *Chapter) Touch() {
	c.LastModified = time.Now().UnixMilli()
}

// Clone 返回书籍的深拷贝，章节切片独立
func (b *Book) Clone() *Book {
	copied := *b
	copied.Chapters = make([]Chapter, len(b.Chapters))
	copy(copied.Chapters, b.Chapters)
	if b.LastActiveChapterID != nil {
		id := *b.LastActiveChapterID
		copied.LastActiveChapterID = &id
	}
	return &copied
}
