package chat

import "fmt"

// Kind distinguishes conversation content from informational notices.
type Kind string

const (
	KindUser   Kind = "user"
	KindSystem Kind = "system"
)

// Message is one immutable entry of the conversation.
// Author and AvatarRef are empty for system notices.
type Message struct {
	Content   string `json:"content"`
	Kind      Kind   `json:"kind"`
	Author    string `json:"author,omitempty"`
	AvatarRef string `json:"avatarRef,omitempty"`
}

// UserMessage builds a user-kind message as received from the coordinator.
func UserMessage(content, author, avatar string) Message {
	return Message{Content: content, Kind: KindUser, Author: author, AvatarRef: avatar}
}

// Notice builds a system-kind message.
func Notice(text string) Message {
	return Message{Content: text, Kind: KindSystem}
}

func JoinedNotice(name string) Message {
	return Notice(fmt.Sprintf("%s joined the chat", name))
}

func LeftNotice(name string) Message {
	return Notice(fmt.Sprintf("%s left the chat", name))
}

func RenamedNotice(oldName, newName string) Message {
	return Notice(fmt.Sprintf("%s changed their name to %s", oldName, newName))
}

// IdentityLabel is the header text shown for the local user.
func IdentityLabel(name string) string {
	return "Your username: " + name
}
