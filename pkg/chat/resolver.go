// Package chat implements the message path: conversation resolution,
// the delivery pipeline and seen receipts.
package chat

import (
	"baatcheet/pkg/models"
)

// ConversationStore is the slice of conversation persistence the chat
// components need.
type ConversationStore interface {
	FindOrCreateConversation(a, b string) (*models.Conversation, error)
	GetConversation(id string) (*models.Conversation, error)
	UpdateLastMessage(convID, msgID string, ts int64) error
}

// MessageStore is the slice of message persistence the chat components need.
type MessageStore interface {
	SaveMessage(m *models.Message) error
	GetMessage(id string) (*models.Message, error)
	MarkSeen(id string, seenAt int64) (*models.Message, bool, error)
}

// UserLookup resolves profile fields for reply snapshots.
type UserLookup interface {
	FindUser(id string) (*models.User, error)
}

// Resolver maps an unordered user pair to its single conversation,
// creating it on first contact. Atomicity lives in the store: the pair
// index is written under a lock keyed by the sorted pair, so concurrent
// first contact from both directions yields exactly one conversation.
type Resolver struct {
	convs ConversationStore
}

// NewResolver returns a resolver over the given store.
func NewResolver(convs ConversationStore) *Resolver {
	return &Resolver{convs: convs}
}

// Resolve returns the conversation for (a, b), creating it when absent.
func (r *Resolver) Resolve(a, b string) (*models.Conversation, error) {
	return r.convs.FindOrCreateConversation(a, b)
}
