package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"baatcheet/pkg/auth"
	"baatcheet/pkg/logger"
	"baatcheet/pkg/models"
	"baatcheet/pkg/utils"
)

// RegisterUsers registers HTTP handlers for user-related endpoints.
func RegisterUsers(r *mux.Router, d Deps) {
	r.HandleFunc("/users", d.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", d.createUser).Methods(http.MethodPost)
}

// listUsers returns every known user except the caller, roster-limited.
func (d Deps) listUsers(w http.ResponseWriter, r *http.Request) {
	me := auth.UserIDFromContext(r.Context())
	users, err := d.Store.ListUsers(d.Chat.Roster())
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]models.RosterUser, 0, len(users))
	for _, u := range users {
		if u.ID == me {
			continue
		}
		out = append(out, models.RosterUser{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			AvatarURL: u.AvatarURL,
			Online:    d.Tracker.Registry().IsOnline(u.ID),
			LastSeen:  u.LastSeen,
		})
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Users []models.RosterUser `json:"users"`
	}{Users: out})
}

// createUser provisions a profile. Backend API keys only; credentials are
// handled by the external account service, never here.
func (d Deps) createUser(w http.ResponseWriter, r *http.Request) {
	if !auth.IsBackend(r.Context()) {
		utils.JSONError(w, http.StatusForbidden, "backend key required")
		return
	}
	var u models.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if u.Name == "" {
		utils.JSONError(w, http.StatusBadRequest, "name required")
		return
	}
	if u.ID == "" {
		u.ID = utils.GenID()
	}
	u.Online = false
	u.CreatedTS = time.Now().UTC().UnixNano()
	if err := d.Store.SaveUser(u); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("user_provisioned", "user", u.ID)
	_ = utils.JSONWrite(w, http.StatusCreated, u)
}
