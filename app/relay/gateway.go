package relay

import (
	"context"

	e "nuclight.org/suggest-tg-bot/pkg/entities"
)

// Gateway is the outbound side of the messaging transport. Send calls
// return the id of the sent message where a later edit or delete may
// reference it.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendTextReply(ctx context.Context, chatID int64, text string, replyTo int) (int, error)
	SendButtons(ctx context.Context, chatID int64, text string, buttons []e.Button) (int, error)
	SendAttachment(ctx context.Context, chatID int64, att e.Attachment, caption string) (int, error)
	SendAlbum(ctx context.Context, chatID int64, album []e.Attachment, caption string) error
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	EditButtons(ctx context.Context, chatID int64, messageID int, text string, buttons []e.Button) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}
