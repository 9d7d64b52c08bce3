package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
)

type messageRequest struct {
	Content string `json:"content"`
}

type unreadResponse struct {
	Count int `json:"count"`
}

// GetConversation возвращает диалог поддержки текущего пользователя, создавая его при необходимости.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	conv, err := h.service.GetOrCreateConversation(r.Context(), user)
	if err != nil {
		h.writeError(w, "get conversation", err, zap.String("userID", user.ID))
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// GetMyMessages возвращает сообщения диалога текущего пользователя.
func (h *Handler) GetMyMessages(w http.ResponseWriter, r *http.Request) {
	user, conv, ok := h.ownConversation(w, r)
	if !ok {
		return
	}
	h.writeMessages(w, r, user, conv.ID)
}

// SendMyMessage отправляет сообщение в поддержку от текущего пользователя.
func (h *Handler) SendMyMessage(w http.ResponseWriter, r *http.Request) {
	user, conv, ok := h.ownConversation(w, r)
	if !ok {
		return
	}
	h.sendMessage(w, r, user, conv.ID)
}

// MarkMyMessagesRead отмечает ответы поддержки прочитанными.
func (h *Handler) MarkMyMessagesRead(w http.ResponseWriter, r *http.Request) {
	user, conv, ok := h.ownConversation(w, r)
	if !ok {
		return
	}
	h.markRead(w, r, user, conv.ID)
}

// GetMyUnread возвращает число непрочитанных ответов для текущего пользователя.
func (h *Handler) GetMyUnread(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	count, err := h.service.GetUnreadCount(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "unread count", err, zap.String("userID", user.ID))
		return
	}
	writeJSON(w, http.StatusOK, unreadResponse{Count: count})
}

// AdminListConversations возвращает все диалоги, последние по активности первыми.
func (h *Handler) AdminListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.service.ListConversations(r.Context())
	if err != nil {
		h.writeError(w, "list conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

// AdminGetMessages возвращает сообщения выбранного диалога.
func (h *Handler) AdminGetMessages(w http.ResponseWriter, r *http.Request) {
	admin, ok := sessionUser(w, r)
	if !ok {
		return
	}
	h.writeMessages(w, r, admin, chi.URLParam(r, "conversationID"))
}

// AdminSendMessage отвечает покупателю в выбранном диалоге.
func (h *Handler) AdminSendMessage(w http.ResponseWriter, r *http.Request) {
	admin, ok := sessionUser(w, r)
	if !ok {
		return
	}
	h.sendMessage(w, r, admin, chi.URLParam(r, "conversationID"))
}

// AdminMarkRead отмечает сообщения покупателя прочитанными.
func (h *Handler) AdminMarkRead(w http.ResponseWriter, r *http.Request) {
	admin, ok := sessionUser(w, r)
	if !ok {
		return
	}
	h.markRead(w, r, admin, chi.URLParam(r, "conversationID"))
}

// AdminUnread возвращает суммарное число непрочитанных сообщений покупателей.
func (h *Handler) AdminUnread(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.GetTotalUnreadForAdmin(r.Context())
	if err != nil {
		h.writeError(w, "admin unread count", err)
		return
	}
	writeJSON(w, http.StatusOK, unreadResponse{Count: count})
}

func (h *Handler) ownConversation(w http.ResponseWriter, r *http.Request) (model.User, *model.Conversation, bool) {
	user, ok := sessionUser(w, r)
	if !ok {
		return model.User{}, nil, false
	}

	conv, err := h.service.GetOrCreateConversation(r.Context(), user)
	if err != nil {
		h.writeError(w, "get conversation", err, zap.String("userID", user.ID))
		return model.User{}, nil, false
	}
	return user, conv, true
}

func (h *Handler) writeMessages(w http.ResponseWriter, r *http.Request, viewer model.User, conversationID string) {
	msgs, err := h.service.GetMessages(r.Context(), viewer, conversationID)
	if err != nil {
		h.writeError(w, "get messages", err, zap.String("conversation", conversationID))
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request, sender model.User, conversationID string) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	msg, err := h.service.SendMessage(r.Context(), sender, conversationID, req.Content)
	if err != nil {
		h.writeError(w, "send message", err, zap.String("conversation", conversationID))
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request, reader model.User, conversationID string) {
	if err := h.service.MarkMessagesAsRead(r.Context(), reader, conversationID); err != nil {
		h.writeError(w, "mark messages read", err, zap.String("conversation", conversationID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
