package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"baatcheet/pkg/logger"
	"baatcheet/pkg/metrics"
	"baatcheet/pkg/models"
)

func userKey(id string) string { return "user:" + id }

// SaveUser stores a user profile under its ID.
func (s *Store) SaveUser(u models.User) error {
	if u.ID == "" {
		return fmt.Errorf("user id required")
	}
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := s.set(userKey(u.ID), b); err != nil {
		logger.Error("save_user_failed", "user", u.ID, "error", err)
		metrics.StoreOps.WithLabelValues("save_user", "error").Inc()
		return err
	}
	metrics.StoreOps.WithLabelValues("save_user", "ok").Inc()
	return nil
}

// FindUser returns the stored user or ErrNotFound.
func (s *Store) FindUser(id string) (*models.User, error) {
	v, err := s.get(userKey(id))
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal(v, &u); err != nil {
		return nil, fmt.Errorf("invalid user JSON: %w", err)
	}
	return &u, nil
}

// ListUsers returns up to limit stored users in key order. limit <= 0 means
// no bound.
func (s *Store) ListUsers(limit int) ([]models.User, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("user:")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.User
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var u models.User
		if err := json.Unmarshal(iter.Value(), &u); err != nil {
			logger.Warn("list_users_skip_invalid", "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, u)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}

// UpdatePresence persists the cold presence view. lastSeen is unix-nano;
// zero clears the field (user just came online).
func (s *Store) UpdatePresence(id string, online bool, lastSeen int64) error {
	u, err := s.FindUser(id)
	if err != nil {
		return err
	}
	u.Online = online
	u.LastSeen = lastSeen
	return s.SaveUser(*u)
}
