package transport

import (
	"encoding/json"
	"errors"
)

// Inbound event names.
const (
	EventSetUsername     = "set_username"
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventNewMessage      = "new_message"
	EventUsernameUpdated = "username_updated"
)

// Outbound event names.
const (
	EventSendMessage    = "send_message"
	EventUpdateUsername = "update_username"
)

// Envelope is the frame exchanged with the coordinator.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var errMissingField = errors.New("missing required field")

// Username is the payload of set_username, user_joined, user_left and update_username.
type Username struct {
	Username string `json:"username"`
}

func (p Username) Validate() error {
	if p.Username == "" {
		return errMissingField
	}
	return nil
}

// NewMessage is the payload of new_message.
type NewMessage struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (p NewMessage) Validate() error {
	if p.Username == "" {
		return errMissingField
	}
	return nil
}

// UsernameUpdated is the payload of username_updated.
type UsernameUpdated struct {
	OldUsername string `json:"old_username"`
	NewUsername string `json:"new_username"`
}

func (p UsernameUpdated) Validate() error {
	if p.OldUsername == "" || p.NewUsername == "" {
		return errMissingField
	}
	return nil
}

// SendMessage is the payload of send_message.
type SendMessage struct {
	Message string `json:"message"`
}
