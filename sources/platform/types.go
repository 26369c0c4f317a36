package platform

import "time"

type ConversationID int64

type MessageID int64

// Message is the payload unit flowing through feeds: one chat message as
// the coordination layer sees it. The wire format of the backend is not
// modeled here.
type Message struct {
	ID             MessageID      `json:"id"`
	ConversationID ConversationID `json:"conversation_id"`
	SenderID       int64          `json:"sender_id"`
	Text           string         `json:"text"`
	SentAt         time.Time      `json:"sent_at"`
	Outgoing       bool           `json:"outgoing"`
}

// Batch is what a feed emits: the latest known ordered window of messages
// for one conversation.
type Batch struct {
	ConversationID ConversationID `json:"conversation_id"`
	Messages       []Message      `json:"messages"`
}
