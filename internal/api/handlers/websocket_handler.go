package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/pkg/logger"
)

// WebSocketHandler streams chat turns over a persistent connection,
// running the same pipeline as the HTTP chat endpoint.
type WebSocketHandler struct {
	chat *ChatHandler
}

func NewWebSocketHandler(chat *ChatHandler) *WebSocketHandler {
	return &WebSocketHandler{chat: chat}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type      string `json:"type"`
			Text      string `json:"text"`
			Language  string `json:"language"`
			SessionID string `json:"sessionId"`
			UserID    string `json:"userId"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "chat" {
			continue
		}

		if msg.Text == "" {
			h.sendError(c, "Text is required")
			continue
		}

		req := &ChatRequest{
			Text:      msg.Text,
			Language:  msg.Language,
			SessionID: msg.SessionID,
			UserID:    msg.UserID,
		}

		if err := h.streamResponse(c, req); err != nil {
			logger.Error("Failed to stream chat response", zap.Error(err))
			h.sendError(c, "Failed to process message")
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, req *ChatRequest) error {
	h.sendChunk(c, "status", "Processing...")

	resp := h.chat.ProcessTurn(context.Background(), req)

	words := splitIntoWords(resp.Transcript)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}

		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":           "complete",
		"language":       resp.Language,
		"source":         resp.Source,
		"matchedSchemes": resp.MatchedSchemes,
		"intentData":     resp.IntentData,
		"eligibility":    resp.Eligibility,
		"navigationStep": resp.NavigationStep,
	})
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
