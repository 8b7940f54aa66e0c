// Package schema defines the versioned wire and on-disk shapes shared by the
// fixture store, the messaging backend client, and the run tracker.
package schema

import "encoding/json"

// MessageKind closes the union of payload shapes a fixture or a populate
// request can carry.
type MessageKind string

const (
	MessageText     MessageKind = "text"
	MessagePhoto    MessageKind = "photo"
	MessageDocument MessageKind = "document"
	MessageVoice    MessageKind = "voice"
	MessageAudio    MessageKind = "audio"
)

// MediaPayload describes a photo/document/voice/audio attachment, either by
// referencing a backend-assigned file handle or a relative local asset path.
type MediaPayload struct {
	FileID   string `json:"fileId,omitempty"`
	Caption  string `json:"caption,omitempty"`
	FileName string `json:"fileName,omitempty"`
	// LocalAsset is a path relative to <fixtureRoot>/assets/, set when the
	// payload has not yet been uploaded to the backend.
	LocalAsset string `json:"localAsset,omitempty"`
}

// Message is the upstream payload captured by a fixture or replayed by the
// populator. Exactly one of the kind-specific fields is populated, matching
// Kind; Extra preserves any fields the backend adds that this schema does
// not yet know about.
type Message struct {
	Kind MessageKind `json:"kind"`

	Text string `json:"text,omitempty"`

	Photo    *MediaPayload `json:"photo,omitempty"`
	Document *MediaPayload `json:"document,omitempty"`
	Voice    *MediaPayload `json:"voice,omitempty"`
	Audio    *MediaPayload `json:"audio,omitempty"`

	// ChatID is a backend chat/channel identifier. Committed fixtures MUST
	// carry the PlaceholderChatID sentinel; the fixture store replaces it
	// with a synthetic sentinel at load time.
	ChatID string `json:"chatId"`

	// MessageID is the backend-assigned identifier for this message, once
	// sent. Zero/empty until the populator has forwarded it once.
	MessageID int64 `json:"messageId,omitempty"`

	Extra map[string]json.RawMessage `json:"extra,omitempty"`
}

// PlaceholderChatID is the sentinel committed fixtures use in place of a
// real chat identifier.
const PlaceholderChatID = "__TEST_CHAT__"

// SetMedia stores payload in the field matching the message's kind. A call
// on a text/unknown kind is a no-op.
func (m *Message) SetMedia(payload *MediaPayload) {
	switch m.Kind {
	case MessagePhoto:
		m.Photo = payload
	case MessageDocument:
		m.Document = payload
	case MessageVoice:
		m.Voice = payload
	case MessageAudio:
		m.Audio = payload
	}
}

// Media returns the populated media payload for kinds other than text, or
// nil for text/unknown kinds.
func (m Message) Media() *MediaPayload {
	switch m.Kind {
	case MessagePhoto:
		return m.Photo
	case MessageDocument:
		return m.Document
	case MessageVoice:
		return m.Voice
	case MessageAudio:
		return m.Audio
	default:
		return nil
	}
}
