package relay

import (
	"context"
	"fmt"

	e "nuclight.org/suggest-tg-bot/pkg/entities"
)

// Dispatcher sends a finished submission to a chat. The same branching
// serves both the preview in the user's private chat and the final relay
// to the channel.
type Dispatcher struct {
	Gateway Gateway
}

func (d *Dispatcher) Send(ctx context.Context, chatID int64, sub e.Submission) error {
	switch sub.Kind {
	case e.SubmissionKindText:
		_, err := d.Gateway.SendText(ctx, chatID, sub.Text)
		return err

	case e.SubmissionKindSingle:
		att := sub.Attachment

		if att.Kind.HasCaptionSlot() {
			_, err := d.Gateway.SendAttachment(ctx, chatID, att, sub.Text)
			return err
		}

		// voice and video note have no caption slot, the text follows as
		// a reply to the attachment
		messageID, err := d.Gateway.SendAttachment(ctx, chatID, att, "")
		if err != nil {
			return err
		}
		if sub.Text == "" {
			return nil
		}
		_, err = d.Gateway.SendTextReply(ctx, chatID, sub.Text, messageID)
		return err

	case e.SubmissionKindAlbum:
		return d.Gateway.SendAlbum(ctx, chatID, sub.Album, sub.Text)

	default:
		return fmt.Errorf("unknown submission kind: %s", sub.Kind)
	}
}
