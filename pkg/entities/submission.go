package entities

type AttachmentKind string

const (
	AttachmentKindPhoto     AttachmentKind = "photo"
	AttachmentKindVideo     AttachmentKind = "video"
	AttachmentKindDocument  AttachmentKind = "document"
	AttachmentKindVoice     AttachmentKind = "voice"
	AttachmentKindVideoNote AttachmentKind = "video_note"
)

// HasCaptionSlot reports whether telegram accepts a caption on a send of
// this kind. Voice and video note messages carry no caption, so any text
// has to go out as a separate message.
func (k AttachmentKind) HasCaptionSlot() bool {
	return k != AttachmentKindVoice && k != AttachmentKindVideoNote
}

// Attachment is a reference to an already-uploaded telegram file.
type Attachment struct {
	Kind   AttachmentKind
	FileID string
}

type SubmissionKind string

const (
	// SubmissionKindText is a plain text submission
	SubmissionKindText SubmissionKind = "text"

	// SubmissionKindSingle is a submission with exactly one attachment
	SubmissionKindSingle SubmissionKind = "single"

	// SubmissionKindAlbum is a submission with two or more attachments
	// sent as one grouped-media message
	SubmissionKindAlbum SubmissionKind = "album"
)

// Submission is what a user sends to the channel. Text always carries the
// attribution footer. Attachment is set for SubmissionKindSingle, Album
// for SubmissionKindAlbum.
type Submission struct {
	Kind       SubmissionKind
	Text       string
	Attachment Attachment
	Album      []Attachment
}
