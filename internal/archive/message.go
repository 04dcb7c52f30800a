package archive

// AttachmentKind identifies which variant an attachment record holds.
type AttachmentKind int

const (
	AttachmentUnknown AttachmentKind = iota
	AttachmentImage
	AttachmentAudio
	AttachmentVideo
	AttachmentFile
	AttachmentSticker
)

var attachmentKindNames = map[AttachmentKind]string{
	AttachmentUnknown: "unknown",
	AttachmentImage:   "image",
	AttachmentAudio:   "audio",
	AttachmentVideo:   "video",
	AttachmentFile:    "file",
	AttachmentSticker: "sticker",
}

func (k AttachmentKind) String() string {
	return attachmentKindNames[k]
}

// Attachment is an untyped attachment record. Its kind is decided by which
// field is populated.
type Attachment struct {
	HiResURL  string `json:"HiResURL,omitempty"`
	AudioURL  string `json:"AudioURL,omitempty"`
	VideoURL  string `json:"VideoURL,omitempty"`
	FileURL   string `json:"FileURL,omitempty"`
	Name      string `json:"Name,omitempty"`
	StickerID ID     `json:"StickerID,omitempty"`
	RawURL    string `json:"RawURL,omitempty"`
}

// Kind dispatches on the populated fields in declaration order: image,
// audio, video, file, sticker. The first match wins.
func (a Attachment) Kind() AttachmentKind {
	switch {
	case a.HiResURL != "":
		return AttachmentImage
	case a.AudioURL != "":
		return AttachmentAudio
	case a.VideoURL != "":
		return AttachmentVideo
	case a.FileURL != "":
		return AttachmentFile
	case a.StickerID != "":
		return AttachmentSticker
	}
	return AttachmentUnknown
}

// URL returns the link that belongs to the attachment's kind.
func (a Attachment) URL() string {
	switch a.Kind() {
	case AttachmentImage:
		return a.HiResURL
	case AttachmentAudio:
		return a.AudioURL
	case AttachmentVideo:
		return a.VideoURL
	case AttachmentFile:
		return a.FileURL
	case AttachmentSticker:
		return a.RawURL
	}
	return ""
}

// Label is the short caption shown for the attachment.
func (a Attachment) Label() string {
	kind := a.Kind()
	if kind == AttachmentFile && a.Name != "" {
		return a.Name
	}
	return kind.String()
}

// Sender is the message_sender object inside a message's raw data.
type Sender struct {
	ID ID `json:"id"`
}

// RawData is the subset of the raw Messenger payload the viewer reads.
type RawData struct {
	MessageSender *Sender `json:"message_sender,omitempty"`
}

// Message is one entry of a thread's action log.
type Message struct {
	Body        string       `json:"Body,omitempty"`
	Attachments []Attachment `json:"Attachments,omitempty"`
	RawData     RawData      `json:"RawData"`
}

// SenderID returns the sender id, or "" when the sender object is missing.
func (m Message) SenderID() ID {
	if m.RawData.MessageSender == nil {
		return ""
	}
	return m.RawData.MessageSender.ID
}

// Renderable reports whether the message has anything to show.
func (m Message) Renderable() bool {
	return m.Body != "" || len(m.Attachments) > 0
}
