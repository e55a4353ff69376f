// internal/api/websocket.go
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/novelcraft/novelcraft/internal/services"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 本地单用户应用，不做来源检查
		return true
	},
}

const wsWriteTimeout = 10 * time.Second

// wsMessage 流式续写的下行消息
type wsMessage struct {
	Type    string      `json:"type"` // chunk / done / error
	Text    string      `json:"text,omitempty"`
	Error   string      `json:"error,omitempty"`
	Chapter interface{} `json:"chapter,omitempty"`
}

// GenerateStream 通过WebSocket流式续写
// 客户端连接后发送一条GenerateRequest，服务端逐段推送生成文本，
// 结束时把完整文本合并进章节并推送最终章节状态
func (h *Handler) GenerateStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket升级失败: %v", err)
		return
	}
	defer conn.Close()

	var req GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeWSError(conn, "请求格式错误")
		return
	}

	if req.ChapterID == "" {
		writeWSError(conn, "缺少章节ID")
		return
	}
	if req.TargetWordCount <= 0 {
		req.TargetWordCount = 1000
	}

	book := h.BookService.GetBook()
	if _, ok := book.FindChapter(req.ChapterID); !ok {
		writeWSError(conn, "章节不存在")
		return
	}

	// 客户端断开时取消上游生成请求
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	stream, err := h.LLMService.StreamSegment(ctx, book, req.Prompt, req.TargetWordCount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGenerationBusy):
			writeWSError(conn, err.Error())
		case errors.Is(err, services.ErrLLMNotReady):
			writeWSError(conn, "续写服务未就绪")
		default:
			log.Printf("流式续写失败: %v", err)
			writeWSError(conn, "续写失败，请稍后重试")
		}
		return
	}

	var fullText string
	for resp := range stream {
		if resp.Error != "" {
			// 流中途失败，不把已收到的残缺内容合并进章节
			log.Printf("流式续写中断: %s", resp.Error)
			writeWSError(conn, "续写失败，请稍后重试")
			return
		}

		if resp.Done {
			// Done消息携带完整文本
			fullText = resp.Text
			continue
		}

		if err := writeWS(conn, wsMessage{Type: "chunk", Text: resp.Text}); err != nil {
			cancel()
			return
		}
	}

	if ctx.Err() != nil {
		return
	}

	if fullText == "" {
		writeWSError(conn, "续写失败，未返回内容")
		return
	}

	chapter, err := h.BookService.ApplyGeneratedText(req.ChapterID, fullText)
	if err != nil {
		writeWSError(conn, "保存生成内容失败")
		return
	}

	writeWS(conn, wsMessage{Type: "done", Text: fullText, Chapter: chapter})
}

func writeWS(conn *websocket.Conn, msg wsMessage) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(msg)
}

func writeWSError(conn *websocket.Conn, message string) {
	if err := writeWS(conn, wsMessage{Type: "error", Error: message}); err != nil {
		log.Printf("WebSocket写入失败: %v", err)
	}
}
