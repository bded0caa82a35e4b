package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	e "nuclight.org/suggest-tg-bot/pkg/entities"
)

// Outbound operations behind the relay.Gateway interface. The bot api
// client does not take a context, so it is accepted and ignored here the
// same way the rest of this package does.

func (c *Client) SendText(_ context.Context, chatID int64, text string) (int, error) {
	sent, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) SendTextReply(_ context.Context, chatID int64, text string, replyTo int) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) SendButtons(_ context.Context, chatID int64, text string, buttons []e.Button) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = takeKeyboard(buttons)

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) SendAttachment(_ context.Context, chatID int64, att e.Attachment, caption string) (int, error) {
	var conf tgbotapi.Chattable

	switch att.Kind {
	case e.AttachmentKindPhoto:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(att.FileID))
		photo.Caption = caption
		conf = photo
	case e.AttachmentKindVideo:
		video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(att.FileID))
		video.Caption = caption
		conf = video
	case e.AttachmentKindDocument:
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(att.FileID))
		doc.Caption = caption
		conf = doc
	case e.AttachmentKindVoice:
		conf = tgbotapi.NewVoice(chatID, tgbotapi.FileID(att.FileID))
	case e.AttachmentKindVideoNote:
		conf = tgbotapi.NewVideoNote(chatID, 0, tgbotapi.FileID(att.FileID))
	default:
		return 0, fmt.Errorf("unknown attachment kind: %s", att.Kind)
	}

	sent, err := c.bot.Send(conf)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// SendAlbum sends attachments as one grouped-media message. Telegram
// accepts at most one caption per group, it goes on the first item.
func (c *Client) SendAlbum(_ context.Context, chatID int64, album []e.Attachment, caption string) error {
	files := make([]interface{}, 0, len(album))

	for i, att := range album {
		itemCaption := ""
		if i == 0 {
			itemCaption = caption
		}

		switch att.Kind {
		case e.AttachmentKindPhoto:
			media := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(att.FileID))
			media.Caption = itemCaption
			files = append(files, media)
		case e.AttachmentKindVideo:
			media := tgbotapi.NewInputMediaVideo(tgbotapi.FileID(att.FileID))
			media.Caption = itemCaption
			files = append(files, media)
		case e.AttachmentKindDocument:
			media := tgbotapi.NewInputMediaDocument(tgbotapi.FileID(att.FileID))
			media.Caption = itemCaption
			files = append(files, media)
		default:
			return fmt.Errorf("attachment kind %s cannot be part of a media group", att.Kind)
		}
	}

	_, err := c.bot.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, files))
	return err
}

func (c *Client) EditText(_ context.Context, chatID int64, messageID int, text string) error {
	_, err := c.bot.Request(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

func (c *Client) EditButtons(_ context.Context, chatID int64, messageID int, text string, buttons []e.Button) error {
	_, err := c.bot.Request(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, takeKeyboard(buttons)))
	return err
}

func (c *Client) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	_, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func takeKeyboard(buttons []e.Button) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}
