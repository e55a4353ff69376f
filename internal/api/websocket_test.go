// internal/api/websocket_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/novelcraft/novelcraft/internal/di"
	"github.com/novelcraft/novelcraft/internal/services"
)

func dialGenerateStream(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/generate"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("连接WebSocket失败: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestGenerateStreamChunksAndDone(t *testing.T) {
	router, fake, cleanup := setupTestServer(t, true)
	defer cleanup()

	server := httptest.NewServer(router)
	defer server.Close()

	w := performRequest(router, http.MethodPost, "/api/chapters", nil)
	chapter := dataField(t, decodeResponse(t, w))["chapter"].(map[string]interface{})
	chapterID := chapter["id"].(string)

	fake.text = "流式生成的正文。"

	conn := dialGenerateStream(t, server)
	defer conn.Close()

	if err := conn.WriteJSON(GenerateRequest{ChapterID: chapterID, Prompt: "继续写"}); err != nil {
		t.Fatalf("发送续写请求失败: %v", err)
	}

	var sawChunk, sawDone bool
	for !sawDone {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("读取流式消息失败: %v", err)
		}

		switch msg.Type {
		case "chunk":
			sawChunk = true
			if msg.Text == "" {
				t.Error("chunk消息应该携带文本")
			}
		case "done":
			sawDone = true
			if msg.Text != "流式生成的正文。" {
				t.Errorf("done消息应该携带完整文本，实际为 %q", msg.Text)
			}
			if msg.Chapter == nil {
				t.Error("done消息应该携带合并后的章节")
			}
		case "error":
			t.Fatalf("收到错误消息: %s", msg.Error)
		}
	}

	if !sawChunk {
		t.Error("应该先收到chunk消息")
	}

	// 生成文本应该已经合并进章节
	bookService := di.GetContainer().Get("book").(*services.BookService)
	book := bookService.GetBook()
	updated, ok := book.FindChapter(chapterID)
	if !ok {
		t.Fatal("章节应该仍然存在")
	}
	if updated.Content != "流式生成的正文。" {
		t.Errorf("流式生成的文本应该已合并进章节，实际为 %q", updated.Content)
	}
}

func TestGenerateStreamMidStreamErrorKeepsChapterUntouched(t *testing.T) {
	router, fake, cleanup := setupTestServer(t, true)
	defer cleanup()

	server := httptest.NewServer(router)
	defer server.Close()

	w := performRequest(router, http.MethodPost, "/api/chapters", nil)
	chapter := dataField(t, decodeResponse(t, w))["chapter"].(map[string]interface{})
	chapterID := chapter["id"].(string)

	fake.text = "残缺的片段"
	fake.streamErr = "上游连接中断"

	conn := dialGenerateStream(t, server)
	defer conn.Close()

	if err := conn.WriteJSON(GenerateRequest{ChapterID: chapterID, Prompt: "继续写"}); err != nil {
		t.Fatalf("发送续写请求失败: %v", err)
	}

	// chunk之后应该收到错误消息而不是done
	var sawError bool
	for !sawError {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("读取消息失败: %v", err)
		}
		switch msg.Type {
		case "error":
			sawError = true
		case "done":
			t.Fatal("流中途失败不应该收到done消息")
		}
	}

	// 残缺内容不应该被合并进章节
	bookService := di.GetContainer().Get("book").(*services.BookService)
	book := bookService.GetBook()
	updated, ok := book.FindChapter(chapterID)
	if !ok {
		t.Fatal("章节应该仍然存在")
	}
	if updated.Content != "" {
		t.Errorf("流中途失败后章节内容应该保持不变，实际为 %q", updated.Content)
	}
}

func TestGenerateStreamMissingChapter(t *testing.T) {
	router, _, cleanup := setupTestServer(t, true)
	defer cleanup()

	server := httptest.NewServer(router)
	defer server.Close()

	conn := dialGenerateStream(t, server)
	defer conn.Close()

	if err := conn.WriteJSON(GenerateRequest{ChapterID: "不存在的ID", Prompt: "继续写"}); err != nil {
		t.Fatalf("发送续写请求失败: %v", err)
	}

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("读取消息失败: %v", err)
	}
	if msg.Type != "error" {
		t.Errorf("不存在的章节应该返回error消息，实际为 %+v", msg)
	}
}

func TestGenerateStreamNotReady(t *testing.T) {
	router, _, cleanup := setupTestServer(t, false)
	defer cleanup()

	server := httptest.NewServer(router)
	defer server.Close()

	w := performRequest(router, http.MethodPost, "/api/chapters", nil)
	chapter := dataField(t, decodeResponse(t, w))["chapter"].(map[string]interface{})

	conn := dialGenerateStream(t, server)
	defer conn.Close()

	if err := conn.WriteJSON(GenerateRequest{ChapterID: chapter["id"].(string), Prompt: "继续写"}); err != nil {
		t.Fatalf("发送续写请求失败: %v", err)
	}

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("读取消息失败: %v", err)
	}
	if msg.Type != "error" {
		t.Errorf("服务未就绪时应该返回error消息，实际为 %+v", msg)
	}
}
