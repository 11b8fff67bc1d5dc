package chat

import (
	"time"

	"baatcheet/pkg/logger"
	"baatcheet/pkg/models"
)

// Receipts records seen timestamps and notifies the interested parties.
type Receipts struct {
	msgs   MessageStore
	sender Sender
}

// NewReceipts wires the receipt tracker.
func NewReceipts(msgs MessageStore, sender Sender) *Receipts {
	return &Receipts{msgs: msgs, sender: sender}
}

// MarkSeen sets seenAt on the message. First-seen wins: a repeat call is a
// no-op that returns the already-seen record, not an error. Used by the
// request/response path, which performs no live notification.
func (r *Receipts) MarkSeen(msgID string) (*models.Message, error) {
	m, changed, err := r.msgs.MarkSeen(msgID, time.Now().UTC().UnixNano())
	if err != nil {
		return nil, err
	}
	if changed {
		logger.Debug("message_seen", "msg", m.ID, "conv", m.Conversation)
	}
	return m, nil
}

// MarkSeenLive is the live-channel path: after recording the receipt it
// notifies every connection of the message's sender (message:seen) and
// echoes to the acting user's own group (message:seen:echo) so the seer's
// other devices catch up. Each call emits exactly one notification pair,
// idempotent writes included.
func (r *Receipts) MarkSeenLive(actorID, msgID string) (*models.Message, error) {
	m, err := r.MarkSeen(msgID)
	if err != nil {
		return nil, err
	}
	if r.sender != nil {
		r.sender.ToUser(m.From, "message:seen", models.SeenEvent{MessageID: m.ID})
		r.sender.ToUser(actorID, "message:seen:echo", models.SeenEvent{MessageID: m.ID})
	}
	return m, nil
}
