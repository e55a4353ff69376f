// internal/services/book_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"sync"

	apperrors "github.com/novelcraft/novelcraft/internal/errors"
	"github.com/novelcraft/novelcraft/internal/models"
	"github.com/novelcraft/novelcraft/internal/storage"
)

const (
	bookDir  = "books"
	bookFile = "book.json"
)

// ErrBookCorrupted 存储中的书籍记录无法解析
// 调用方拿到默认书籍的同时可以据此提醒用户，而不是无声地丢数据
var ErrBookCorrupted = errors.New("书籍数据已损坏，已回退到默认书籍")

// ErrChapterNotFound 章节不存在
var ErrChapterNotFound error = apperrors.NewNotFoundError("章节不存在", nil)

// BookService 持有内存中的唯一书籍实例并负责其持久化
// 所有变更操作在锁内完成，变更后整体重新序列化到存储
type BookService struct {
	Storage *storage.FileStorage

	mu          sync.Mutex
	book        *models.Book
	loadWarning string // 加载时发生回退的提示，空串表示加载正常
}

// NewBookService 创建书籍服务并从存储加载书籍
// 返回的error只可能是ErrBookCorrupted，此时服务仍然可用（持有默认书籍）
func NewBookService(fileStorage *storage.FileStorage) (*BookService, error) {
	s := &BookService{Storage: fileStorage}
	return s, s.loadBook()
}

// loadBook 从固定存储键加载书籍
// 不存在 -> 默认书籍；解析失败 -> 默认书籍 + ErrBookCorrupted
func (s *BookService) loadBook() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Storage.FileExists(bookDir, bookFile) {
		s.book = models.DefaultBook()
		return nil
	}

	var book models.Book
	if err := s.Storage.LoadJSON(bookDir, bookFile, &book); err != nil {
		log.Printf("加载书籍失败: %v", err)
		s.book = models.DefaultBook()
		s.loadWarning = ErrBookCorrupted.Error()
		return ErrBookCorrupted
	}

	if book.Chapters == nil {
		book.Chapters = []models.Chapter{}
	}
	s.book = &book
	return nil
}

// saveLocked 整体覆盖写入当前书籍，调用方必须持有s.mu
func (s *BookService) saveLocked() error {
	if err := s.Storage.SaveJSON(bookDir, bookFile, s.book); err != nil {
		return apperrors.NewProcessingError("保存书籍失败", err)
	}
	return nil
}

// GetBook 返回当前书籍的深拷贝
func (s *BookService) GetBook() *models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.book.Clone()
}

// LoadWarning 返回加载阶段的回退提示，供界面提醒用户
func (s *BookService) LoadWarning() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadWarning
}

// BookSettingsUpdate 全局设定的部分更新，nil字段表示不修改
type BookSettingsUpdate struct {
	Title      *string `json:"title"`
	Premise    *string `json:"premise"`
	Style      *string `json:"style"`
	Characters *string `json:"characters"`
}

// UpdateSettings 更新书籍全局设定并持久化
func (s *BookService) UpdateSettings(updates BookSettingsUpdate) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if updates.Title != nil {
		s.book.Title = *updates.Title
	}
	if updates.Premise != nil {
		s.book.Premise = *updates.Premise
	}
	if updates.Style != nil {
		s.book.Style = *updates.Style
	}
	if updates.Characters != nil {
		s.book.Characters = *updates.Characters
	}

	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return s.book.Clone(), nil
}

// CreateChapter 创建新章节并追加到章节序列末尾
// 显示标题按序号生成（"第 N 章"），新章节自动成为活动章节
func (s *BookService) CreateChapter() (*models.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chapter := models.NewChapter()
	chapter.Title = fmt.Sprintf("第 %d 章", len(s.book.Chapters)+1)

	s.book.Chapters = append(s.book.Chapters, chapter)
	id := chapter.ID
	s.book.LastActiveChapterID = &id

	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return &chapter, nil
}

// ChapterUpdate 章节的部分更新，nil字段表示不修改
type ChapterUpdate struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// UpdateChapter 原地修改章节标题/内容，刷新修改时间并持久化
func (s *BookService) UpdateChapter(chapterID string, updates ChapterUpdate) (*models.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chapter, ok := s.book.FindChapter(chapterID)
	if !ok {
		return nil, ErrChapterNotFound
	}

	if updates.Title != nil {
		chapter.Title = *updates.Title
	}
	if updates.Content != nil {
		chapter.Content = *updates.Content
	}
	chapter.Touch()

	if err := s.saveLocked(); err != nil {
		return nil, err
	}

	copied := *chapter
	return &copied, nil
}

// DeleteChapter 从章节序列中移除章节
// 如果删除的是活动章节，同时清除活动章节指针（视图回退到设置页）
func (s *BookService) DeleteChapter(chapterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := -1
	for i := range s.book.Chapters {
		if s.book.Chapters[i].ID == chapterID {
			index = i
			break
		}
	}
	if index < 0 {
		return ErrChapterNotFound
	}

	s.book.Chapters = append(s.book.Chapters[:index], s.book.Chapters[index+1:]...)

	if s.book.LastActiveChapterID != nil && *s.book.LastActiveChapterID == chapterID {
		s.book.LastActiveChapterID = nil
	}

	return s.saveLocked()
}

// SelectChapter 设置活动章节
func (s *BookService) SelectChapter(chapterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.book.FindChapter(chapterID); !ok {
		return ErrChapterNotFound
	}

	id := chapterID
	s.book.LastActiveChapterID = &id

	return s.saveLocked()
}

// ApplyGeneratedText 把生成的文本合并进章节内容
// 内容为空时直接作为全文，否则以空行分隔追加
func (s *BookService) ApplyGeneratedText(chapterID, text string) (*models.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chapter, ok := s.book.FindChapter(chapterID)
	if !ok {
		return nil, ErrChapterNotFound
	}

	if chapter.Content == "" {
		chapter.Content = text
	} else {
		chapter.Content = chapter.Content + "\n\n" + text
	}
	chapter.Touch()

	if err := s.saveLocked(); err != nil {
		return nil, err
	}

	copied := *chapter
	return &copied, nil
}
