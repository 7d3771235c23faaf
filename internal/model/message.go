package model

import "time"

// ChangeKind identifies the mutation behind a ChangeEvent.
type ChangeKind string

// Change kinds.
const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent is published by the store after every successful mutation.
type ChangeEvent struct {
	Kind   ChangeKind `json:"kind"`
	ItemID string     `json:"itemId"`
}

// View is what a dashboard renders: the filtered and sorted items plus
// the category choices and summary statistics.
type View struct {
	Items      []Item     `json:"items"`
	Categories []string   `json:"categories"`
	Summary    Summary    `json:"summary"`
	Filter     Filter     `json:"filter"`
	Sort       SortConfig `json:"sort"`
}

// WebSocket message types.
const (
	WSMessageTypeSearch  = "search"
	WSMessageTypeFilter  = "filter"
	WSMessageTypeSort    = "sort"
	WSMessageTypeReset   = "reset"
	WSMessageTypeRefresh = "refresh"
	WSMessageTypeView    = "view"
	WSMessageTypePing    = "ping"
	WSMessageTypePong    = "pong"
	WSMessageTypeError   = "error"
)

// ClientMessage is an intent sent by a dashboard client.
type ClientMessage struct {
	Type     string `json:"type"`
	Term     string `json:"term,omitempty"`
	Category string `json:"category,omitempty"`
	Field    string `json:"field,omitempty"`
}

// WebSocketMessage represents a message sent to a dashboard client.
type WebSocketMessage struct {
	Type      string    `json:"type"`
	View      *View     `json:"view,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewViewMessage wraps a rendered view.
func NewViewMessage(view View) WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypeView,
		View:      &view,
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorMessage reports a rejected intent to the client.
func NewErrorMessage(errMsg string) WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypeError,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	}
}

// NewPongMessage answers a client ping.
func NewPongMessage() WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypePong,
		Timestamp: time.Now().UTC(),
	}
}
