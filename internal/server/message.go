// Package server provides the local WebSocket bridge between the popup and
// the storage adapter. Each request is a JSON envelope naming one adapter
// operation; each reply carries the adapter's result or a coded error.
package server

import (
	"encoding/json"

	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// MessageType identifies the kind of message being sent over WebSocket.
// Requests use the bare type; replies append ".result".
type MessageType string

const (
	// MessageTypeSessionsList returns every visible session.
	// Payload: none. Reply: SessionsPayload
	MessageTypeSessionsList MessageType = "sessions.list"

	// MessageTypeSessionsCount returns the number of visible sessions.
	// Payload: none. Reply: CountPayload
	MessageTypeSessionsCount MessageType = "sessions.count"

	// MessageTypeSessionsSave saves the given tabs as a new session.
	// Payload: SavePayload. Reply: ResultPayload
	MessageTypeSessionsSave MessageType = "sessions.save"

	// MessageTypeSessionsDelete deletes a session by name.
	// Payload: NamePayload. Reply: ResultPayload
	MessageTypeSessionsDelete MessageType = "sessions.delete"

	// MessageTypeGroupsList returns every visible group.
	// Payload: none. Reply: GroupsPayload
	MessageTypeGroupsList MessageType = "groups.list"

	// MessageTypeGroupsCount returns the number of visible groups.
	// Payload: none. Reply: CountPayload
	MessageTypeGroupsCount MessageType = "groups.count"

	// MessageTypeGroupsSave saves the given tabs as a new group, refusing
	// with a limit result once the free group quota is reached.
	// Payload: SavePayload. Reply: ResultPayload
	MessageTypeGroupsSave MessageType = "groups.save"

	// MessageTypeGroupsDelete deletes a group by name.
	// Payload: NamePayload. Reply: ResultPayload
	MessageTypeGroupsDelete MessageType = "groups.delete"

	// MessageTypeGroupsRename relabels a group.
	// Payload: RenamePayload. Reply: ResultPayload
	MessageTypeGroupsRename MessageType = "groups.rename"

	// MessageTypeGroupsRemoveTab drops one tab from a group.
	// Payload: RemoveTabPayload. Reply: ResultPayload with Tabs
	MessageTypeGroupsRemoveTab MessageType = "groups.remove_tab"

	// MessageTypeProfileGet returns the signed-in user's cloud profile.
	// Payload: none. Reply: ProfilePayload
	MessageTypeProfileGet MessageType = "profile.get"

	// MessageTypeTierGet returns the resolved tier.
	// Payload: none. Reply: TierPayload
	MessageTypeTierGet MessageType = "tier.get"

	// MessageTypeError reports a failed request.
	// Payload: ErrorPayload
	MessageTypeError MessageType = "error"
)

// resultType returns the reply type for a request type.
func resultType(t MessageType) MessageType {
	return t + ".result"
}

// Message is the envelope for every outgoing message.
type Message struct {
	// Type identifies what kind of message this is.
	Type MessageType `json:"type"`

	// ID echoes the request ID so clients can match replies to requests.
	ID string `json:"id,omitempty"`

	// Payload contains the message-specific data.
	Payload interface{} `json:"payload"`
}

// request is the envelope for every incoming message. The payload is
// decoded once the type is known.
type request struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SavePayload carries a new session or group.
type SavePayload struct {
	Name string      `json:"name"`
	Tabs []model.Tab `json:"tabs"`
}

// NamePayload names the session or group to delete.
type NamePayload struct {
	Name string `json:"name"`
}

// RenamePayload carries a group rename.
type RenamePayload struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// RemoveTabPayload names a group and the tab to drop from it.
type RemoveTabPayload struct {
	Group string `json:"group"`
	TabID *int   `json:"tab_id"`
}

// ResultPayload reports the outcome of a mutation.
type ResultPayload struct {
	// Result is one of cloud, local, duplicate, limit, not_found.
	Result model.Result `json:"result"`

	// Tabs is the group's remaining tabs after groups.remove_tab.
	Tabs []model.Tab `json:"tabs,omitempty"`
}

// SessionsPayload lists sessions.
type SessionsPayload struct {
	Sessions []model.SavedSession `json:"sessions"`
}

// GroupsPayload lists groups.
type GroupsPayload struct {
	Groups []model.TabGroup `json:"groups"`
}

// CountPayload carries a collection size.
type CountPayload struct {
	Count int `json:"count"`
}

// ProfilePayload carries the cloud profile, or null when signed out.
type ProfilePayload struct {
	Profile *model.UserProfile `json:"profile"`
}

// TierPayload describes the resolved entitlement.
type TierPayload struct {
	Tier  model.Tier `json:"tier"`
	Email string     `json:"email,omitempty"`

	// DaysRemaining counts whole days left in the active trial or
	// subscription window. Omitted when no window is open.
	DaysRemaining *int `json:"days_remaining,omitempty"`
}

// ErrorPayload carries error information.
type ErrorPayload struct {
	// Code is a stable error code for programmatic handling.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// NewErrorMessage creates an error reply to the request with the given ID.
func NewErrorMessage(id, code, message string) Message {
	return Message{
		Type: MessageTypeError,
		ID:   id,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// newResultMessage creates the reply to a request.
func newResultMessage(req request, payload interface{}) Message {
	return Message{
		Type:    resultType(req.Type),
		ID:      req.ID,
		Payload: payload,
	}
}
