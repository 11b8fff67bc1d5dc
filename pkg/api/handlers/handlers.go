// Package handlers holds the REST endpoint implementations mounted under
// /v1.
package handlers

import (
	"baatcheet/pkg/chat"
	"baatcheet/pkg/config"
	"baatcheet/pkg/presence"
	"baatcheet/pkg/store"
)

// Deps bundles what the endpoint handlers need. Handlers are registered
// per concern (users, conversations, messages) on a mux subrouter.
type Deps struct {
	Store    *store.Store
	Tracker  *presence.Tracker
	Resolver *chat.Resolver
	Pipeline *chat.Pipeline
	Receipts *chat.Receipts
	Chat     config.ChatConfig
}
