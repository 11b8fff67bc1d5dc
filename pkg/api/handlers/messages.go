package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"baatcheet/pkg/auth"
	"baatcheet/pkg/chat"
	"baatcheet/pkg/models"
	"baatcheet/pkg/store"
	"baatcheet/pkg/utils"
	"baatcheet/pkg/validation"
)

// RegisterMessages registers HTTP handlers for message endpoints.
func RegisterMessages(r *mux.Router, d Deps) {
	r.HandleFunc("/users/{id}/messages", d.messagesByUser).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/messages", d.messagesByConversation).Methods(http.MethodGet)
	r.HandleFunc("/messages", d.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}/seen", d.markSeen).Methods(http.MethodPost)
}

type messagePage struct {
	ConversationID string           `json:"conversationId,omitempty"`
	Messages       []models.Message `json:"messages"`
	NextCursor     *string          `json:"nextCursor"`
}

func (d Deps) pageLimit(r *http.Request) int {
	limit := d.Chat.DefaultPage()
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > d.Chat.MaxPage() {
		limit = d.Chat.MaxPage()
	}
	return limit
}

// messagesByUser pages through the history with another user, creating the
// conversation on first fetch.
func (d Deps) messagesByUser(w http.ResponseWriter, r *http.Request) {
	me := auth.UserIDFromContext(r.Context())
	other := mux.Vars(r)["id"]
	conv, err := d.Resolver.Resolve(me, other)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	d.writePage(w, r, conv.ID, true)
}

// messagesByConversation pages by conversation id; the caller must be a
// participant.
func (d Deps) messagesByConversation(w http.ResponseWriter, r *http.Request) {
	me := auth.UserIDFromContext(r.Context())
	convID := mux.Vars(r)["id"]
	conv, err := d.Store.GetConversation(convID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "conversation not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !conv.Has(me) {
		utils.JSONError(w, http.StatusForbidden, "not a participant")
		return
	}
	d.writePage(w, r, conv.ID, false)
}

func (d Deps) writePage(w http.ResponseWriter, r *http.Request, convID string, includeConv bool) {
	msgs, next, err := d.Store.ListMessagesBefore(convID, r.URL.Query().Get("cursor"), d.pageLimit(r))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	page := messagePage{Messages: msgs}
	if includeConv {
		page.ConversationID = convID
	}
	if next != "" {
		page.NextCursor = &next
	}
	if page.Messages == nil {
		page.Messages = []models.Message{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, page)
}

// sendMessage is the request/response submission path: it persists and
// returns synchronously. No live acknowledgment channel exists here, so
// there is no sender-side echo.
func (d Deps) sendMessage(w http.ResponseWriter, r *http.Request) {
	me := auth.UserIDFromContext(r.Context())
	from, err := d.Store.FindUser(me)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	var in chat.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	m, conv, err := d.Pipeline.Submit(*from, in)
	if err != nil {
		if errors.Is(err, validation.ErrMissingRecipient) || errors.Is(err, validation.ErrEmptyMessage) {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, struct {
		Message        *models.Message `json:"message"`
		ConversationID string          `json:"conversationId"`
	}{Message: m, ConversationID: conv.ID})
}

// markSeen records a seen receipt over REST. First-seen wins; repeats
// return the already-seen record. No live notification on this path.
func (d Deps) markSeen(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := d.Receipts.MarkSeen(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "message not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Message *models.Message `json:"message"`
	}{Message: m})
}
