// Package archive holds the records served by a Messenger archive server
// along with the pure helpers used to present them.
package archive

import (
	"encoding/json"
	"fmt"
)

const (
	// DefaultIcon is the placeholder used when no picture can be resolved.
	DefaultIcon = "/assets/svg/no_image.svg"

	GroupChatTitle = "Group Chat"
	UnknownSender  = "Unknown"
)

// ID is a Facebook identifier. Archives carry ids as JSON strings or as
// JSON numbers; both decode to the same textual form so they compare equal.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// matches reports whether two ids refer to the same entity. An empty id
// never matches anything.
func (id ID) matches(other ID) bool {
	return id != "" && id == other
}

// Participant is a member of a thread.
type Participant struct {
	FBID        ID     `json:"FBID"`
	Name        string `json:"Name"`
	ImageSrc    string `json:"ImageSrc,omitempty"`
	BigImageSrc string `json:"BigImageSrc,omitempty"`
}

// Thread is one conversation in the archive.
type Thread struct {
	ThreadFBID   ID            `json:"ThreadFBID"`
	Name         string        `json:"Name,omitempty"`
	Image        string        `json:"Image,omitempty"`
	OtherUserID  ID            `json:"OtherUserID,omitempty"`
	Participants []Participant `json:"Participants"`
}

// ParticipantIcon prefers the large picture, then the small one, then the
// placeholder.
func ParticipantIcon(p Participant) string {
	if p.BigImageSrc != "" {
		return p.BigImageSrc
	}
	if p.ImageSrc != "" {
		return p.ImageSrc
	}
	return DefaultIcon
}

// ThreadTitle returns the thread's own name, or the name of the peer in a
// one-to-one thread, or GroupChatTitle.
//
// Participants are scanned in full and the last match wins.
func ThreadTitle(t Thread) string {
	if t.Name != "" {
		return t.Name
	}
	title := GroupChatTitle
	for _, p := range t.Participants {
		if p.FBID.matches(t.OtherUserID) {
			title = p.Name
		}
	}
	return title
}

// ThreadIcon resolves a thread picture with the same precedence as
// ThreadTitle: the thread image, then the peer's picture, then DefaultIcon.
func ThreadIcon(t Thread) string {
	if t.Image != "" {
		return t.Image
	}
	icon := DefaultIcon
	for _, p := range t.Participants {
		if p.FBID.matches(t.OtherUserID) {
			icon = ParticipantIcon(p)
		}
	}
	return icon
}

// Identity is the resolved name and picture of a message sender.
type Identity struct {
	Name string
	Icon string
	// Known is set when the sender matched a participant.
	Known bool
}

// SenderIdentity looks up a sender among the thread participants. The last
// matching participant wins; no match yields the Unknown identity.
func SenderIdentity(participants []Participant, sender ID) Identity {
	identity := Identity{Name: UnknownSender, Icon: DefaultIcon}
	for _, p := range participants {
		if p.FBID.matches(sender) {
			identity = Identity{Name: p.Name, Icon: ParticipantIcon(p), Known: true}
		}
	}
	return identity
}
