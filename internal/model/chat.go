package model

import "time"

// ConversationStatus описывает состояние диалога поддержки.
type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

// Conversation описывает диалог поддержки. На каждого пользователя ровно один диалог.
// UnreadCount считает сообщения пользователя, не прочитанные администратором.
type Conversation struct {
	ID              string             `json:"id"`
	UserID          string             `json:"userId"`
	UserName        string             `json:"userName"`
	UserEmail       string             `json:"userEmail"`
	LastMessage     string             `json:"lastMessage"`
	LastMessageTime time.Time          `json:"lastMessageTime"`
	UnreadCount     int                `json:"unreadCount"`
	Status          ConversationStatus `json:"status"`
}

// Message описывает сообщение в диалоге поддержки.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	SenderRole     Role      `json:"senderRole"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Read           bool      `json:"read"`
}
