package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"

	"baatcheet/pkg/logger"
	"baatcheet/pkg/metrics"
	"baatcheet/pkg/models"
	"baatcheet/pkg/utils"
)

// pairKey builds the uniqueness key for an unordered participant pair.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "pair:" + a + "|" + b
}

func convMetaKey(id string) string { return "conv:" + id + ":meta" }

// GetConversation returns the conversation or ErrNotFound.
func (s *Store) GetConversation(id string) (*models.Conversation, error) {
	v, err := s.get(convMetaKey(id))
	if err != nil {
		return nil, err
	}
	var c models.Conversation
	if err := json.Unmarshal(v, &c); err != nil {
		return nil, fmt.Errorf("invalid conversation JSON: %w", err)
	}
	return &c, nil
}

// FindConversationByParticipants resolves the unordered pair to its
// conversation, or ErrNotFound.
func (s *Store) FindConversationByParticipants(a, b string) (*models.Conversation, error) {
	v, err := s.get(pairKey(a, b))
	if err != nil {
		return nil, err
	}
	return s.GetConversation(string(v))
}

// FindOrCreateConversation returns the conversation for the pair, creating
// it on first contact. The lookup and create run under the store mutex, so
// two racing first-contact calls (A->B and B->A) always converge on one
// conversation.
func (s *Store) FindOrCreateConversation(a, b string) (*models.Conversation, error) {
	if a == "" || b == "" {
		return nil, fmt.Errorf("both participants required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, err := s.FindConversationByParticipants(a, b); err == nil {
		return c, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC().UnixNano()
	c := models.Conversation{
		ID:        utils.GenID(),
		CreatedTS: now,
		UpdatedTS: now,
	}
	p := []string{a, b}
	sort.Strings(p)
	c.Participants = [2]string{p[0], p[1]}

	cb, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	// pair index and meta land atomically
	batch := s.db.NewBatch()
	if err := batch.Set([]byte(pairKey(a, b)), []byte(c.ID), nil); err != nil {
		return nil, err
	}
	if err := batch.Set([]byte(convMetaKey(c.ID)), cb, nil); err != nil {
		return nil, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("create_conversation_failed", "a", a, "b", b, "error", err)
		metrics.StoreOps.WithLabelValues("create_conversation", "error").Inc()
		return nil, err
	}
	logger.Info("conversation_created", "conv", c.ID, "a", a, "b", b)
	metrics.StoreOps.WithLabelValues("create_conversation", "ok").Inc()
	return &c, nil
}

// UpdateLastMessage moves the conversation summary pointer. Losing this
// write is tolerable; the message log stays intact either way.
func (s *Store) UpdateLastMessage(convID, msgID string, ts int64) error {
	c, err := s.GetConversation(convID)
	if err != nil {
		return err
	}
	c.LastMessage = msgID
	c.UpdatedTS = ts
	cb, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return s.set(convMetaKey(convID), cb)
}

// ListConversationsByUser returns the user's conversations, most recent
// activity first, up to limit.
func (s *Store) ListConversationsByUser(userID string, limit int) ([]models.Conversation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("conv:")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Conversation
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !strings.HasSuffix(string(iter.Key()), ":meta") {
			continue
		}
		var c models.Conversation
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			continue
		}
		if c.Has(userID) {
			out = append(out, c)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedTS > out[j].UpdatedTS })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
