package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"baatcheet/pkg/logger"
	"baatcheet/pkg/metrics"
	"baatcheet/pkg/models"
	"baatcheet/pkg/utils"
)

func msgKey(convID, msgID string) string { return "conv:" + convID + ":msg:" + msgID }
func msgIdxKey(msgID string) string      { return "msg:" + msgID }

// SaveMessage appends a message to its conversation log and indexes it by
// ID. The ID is assigned here when empty; message IDs sort in creation
// order, so the conversation log needs no separate sequence column.
func (s *Store) SaveMessage(m *models.Message) error {
	if m.Conversation == "" {
		return fmt.Errorf("message conversation required")
	}
	if m.ID == "" {
		m.ID = utils.GenMsgID()
	}
	now := time.Now().UTC().UnixNano()
	if m.CreatedTS == 0 {
		m.CreatedTS = now
	}
	if m.DeliveredAt == 0 {
		m.DeliveredAt = now
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	batch := s.db.NewBatch()
	if err := batch.Set([]byte(msgKey(m.Conversation, m.ID)), b, nil); err != nil {
		return err
	}
	if err := batch.Set([]byte(msgIdxKey(m.ID)), b, nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("save_message_failed", "conv", m.Conversation, "id", m.ID, "error", err)
		metrics.StoreOps.WithLabelValues("save_message", "error").Inc()
		return err
	}
	logger.Debug("message_saved", "conv", m.Conversation, "id", m.ID)
	metrics.StoreOps.WithLabelValues("save_message", "ok").Inc()
	return nil
}

// GetMessage returns the message by ID or ErrNotFound.
func (s *Store) GetMessage(id string) (*models.Message, error) {
	v, err := s.get(msgIdxKey(id))
	if err != nil {
		return nil, err
	}
	var m models.Message
	if err := json.Unmarshal(v, &m); err != nil {
		return nil, fmt.Errorf("invalid message JSON: %w", err)
	}
	return &m, nil
}

// ListMessagesBefore returns up to limit messages of the conversation older
// than cursor (a message ID; empty means newest-bounded), in chronological
// order. nextCursor is the oldest returned ID, or empty when the page ran
// short of limit.
func (s *Store) ListMessagesBefore(convID, cursor string, limit int) ([]models.Message, string, error) {
	if s.db == nil {
		return nil, "", fmt.Errorf("pebble not opened; call store.Open first")
	}
	if limit <= 0 {
		limit = 30
	}
	prefix := []byte("conv:" + convID + ":msg:")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, "", err
	}
	defer iter.Close()

	// position just past the newest wanted key, then walk backwards
	var upper []byte
	if cursor != "" {
		upper = []byte(msgKey(convID, cursor))
	} else {
		upper = append(append([]byte(nil), prefix...), 0xff)
	}
	out := make([]models.Message, 0, limit)
	for ok := iter.SeekLT(upper); ok; ok = iter.Prev() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("list_messages_skip_invalid", "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, "", err
	}
	// collected newest-first; flip to chronological
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	next := ""
	if len(out) == limit {
		next = out[0].ID
	}
	return out, next, nil
}

// MarkSeen sets seenAt once. Later calls return the already-seen record
// with changed=false; first-seen wins and the timestamp never moves. The
// store mutex covers the read through the commit so concurrent marks from
// two devices cannot both observe an unseen record.
func (s *Store) MarkSeen(id string, seenAt int64) (*models.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.GetMessage(id)
	if err != nil {
		return nil, false, err
	}
	if m.SeenAt != 0 {
		return m, false, nil
	}
	m.SeenAt = seenAt
	b, err := json.Marshal(m)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal message: %w", err)
	}
	batch := s.db.NewBatch()
	if err := batch.Set([]byte(msgKey(m.Conversation, m.ID)), b, nil); err != nil {
		return nil, false, err
	}
	if err := batch.Set([]byte(msgIdxKey(m.ID)), b, nil); err != nil {
		return nil, false, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		metrics.StoreOps.WithLabelValues("mark_seen", "error").Inc()
		return nil, false, err
	}
	metrics.StoreOps.WithLabelValues("mark_seen", "ok").Inc()
	return m, true, nil
}
