package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"baatcheet/pkg/auth"
	"baatcheet/pkg/logger"
	"baatcheet/pkg/models"
	"baatcheet/pkg/utils"
)

// RegisterConversations registers HTTP handlers for conversation listing.
func RegisterConversations(r *mux.Router, d Deps) {
	r.HandleFunc("/conversations", d.listConversations).Methods(http.MethodGet)
}

type conversationSummary struct {
	ID          string             `json:"id"`
	Other       *models.RosterUser `json:"other,omitempty"`
	LastMessage *models.Message    `json:"lastMessage,omitempty"`
	UpdatedAt   int64              `json:"updatedAt"`
}

// listConversations returns the caller's conversations, newest activity
// first, shaped with the other participant's profile and the last message.
func (d Deps) listConversations(w http.ResponseWriter, r *http.Request) {
	me := auth.UserIDFromContext(r.Context())
	convs, err := d.Store.ListConversationsByUser(me, d.Chat.Roster())
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]conversationSummary, 0, len(convs))
	for _, c := range convs {
		s := conversationSummary{ID: c.ID, UpdatedAt: c.UpdatedTS}
		otherID := c.Other(me)
		if u, err := d.Store.FindUser(otherID); err == nil {
			s.Other = &models.RosterUser{
				ID:        u.ID,
				Name:      u.Name,
				AvatarURL: u.AvatarURL,
				Online:    d.Tracker.Registry().IsOnline(u.ID),
				LastSeen:  u.LastSeen,
			}
		} else {
			logger.Debug("conversation_other_missing", "conv", c.ID, "user", otherID)
		}
		if c.LastMessage != "" {
			if m, err := d.Store.GetMessage(c.LastMessage); err == nil {
				s.LastMessage = m
			}
		}
		out = append(out, s)
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Conversations []conversationSummary `json:"conversations"`
	}{Conversations: out})
}
