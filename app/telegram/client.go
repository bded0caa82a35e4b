package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	e "nuclight.org/suggest-tg-bot/pkg/entities"
	"nuclight.org/suggest-tg-bot/pkg/logger"
)

// Handler receives inbound events already mapped to entities.
type Handler interface {
	HandleCommand(ctx context.Context, cmd e.Command) error
	HandleCallback(ctx context.Context, cb e.Callback) error
	HandleMessage(ctx context.Context, msg e.Inbound) error
}

type Client struct {
	Log        logger.Logger
	APIToken   string
	WorkersNum int
	Handler    Handler

	bot *tgbotapi.BotAPI
	wg  sync.WaitGroup
}

func (c *Client) Start(ctx context.Context) (err error) {
	if c.WorkersNum == 0 {
		return fmt.Errorf("workers number must be greater than 0")
	}

	log := c.Log

	c.bot, err = tgbotapi.NewBotAPI(c.APIToken)
	if err != nil {
		return fmt.Errorf("creating bot api: %w", err)
	}

	log.Info("bot api created", "username", c.bot.Self.UserName)

	updatesConf := tgbotapi.NewUpdate(0)
	updatesConf.Timeout = 60

	updatesChan := c.bot.GetUpdatesChan(updatesConf)

	for i := 0; i < c.WorkersNum; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.handleUpdatesFromChan(ctx, updatesChan)
		}()
	}

	return nil
}

func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) handleUpdatesFromChan(ctx context.Context, updatesChan tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updatesChan:
			err := c.handleUpdate(ctx, update)
			if err != nil {
				c.Log.Error("handling update", "tg_update_id", update.UpdateID, "error", err)
			}
		}
	}
}

func (c *Client) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	log := c.Log.With("tg_update_id", update.UpdateID)

	defer func() {
		if err := recover(); err != nil {
			sentry.CurrentHub().Recover(err)
			log.Error("panic", "error", err)
		}
	}()

	if update.CallbackQuery != nil {
		return c.handleCallback(ctx, update.CallbackQuery)
	}

	if update.Message == nil {
		return nil
	}

	if update.Message.From == nil {
		log.Warn("message from is nil")
		return nil
	}

	if update.Message.Chat == nil {
		log.Warn("message chat is nil")
		return nil
	}

	if !update.Message.Chat.IsPrivate() {
		log.Debug("ignoring non-private message", "tg_chat_id", update.Message.Chat.ID)
		return nil
	}

	if update.Message.IsCommand() {
		cmd := e.Command{
			Sender: takeSender(update.Message.From),
			ChatID: update.Message.Chat.ID,
			Name:   update.Message.Command(),
			Args:   strings.Fields(update.Message.CommandArguments()),
		}

		log.Info("command received", "command", cmd.Name, "tg_user_id", cmd.Sender.TgID)

		err := c.Handler.HandleCommand(ctx, cmd)
		if err != nil {
			return fmt.Errorf("handling command %q: %w", cmd.Name, err)
		}

		return nil
	}

	msg := takeInbound(update.Message)

	log.Info(
		"new message",
		"tg_message_id", update.Message.MessageID,
		"tg_user_id", msg.Sender.TgID,
		"tg_user_nick", msg.Sender.Username,
		"burst_id", msg.BurstID,
		"has_attachment", msg.Attachment != nil,
	)

	err := c.Handler.HandleMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("handling message: %w", err)
	}

	return nil
}

func (c *Client) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query.Message == nil || query.Message.Chat == nil {
		return nil
	}

	// stop the client-side loading spinner
	if _, err := c.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		c.Log.Warn("answering callback query", "error", err)
	}

	cb := e.Callback{
		Sender:    takeSender(query.From),
		ChatID:    query.Message.Chat.ID,
		MessageID: query.Message.MessageID,
		Data:      query.Data,
	}

	err := c.Handler.HandleCallback(ctx, cb)
	if err != nil {
		return fmt.Errorf("handling callback %q: %w", cb.Data, err)
	}

	return nil
}

func takeSender(user *tgbotapi.User) e.Sender {
	return e.Sender{
		TgID:     user.ID,
		Username: user.UserName,
	}
}

func takeInbound(message *tgbotapi.Message) e.Inbound {
	msg := e.Inbound{
		Sender:    takeSender(message.From),
		ChatID:    message.Chat.ID,
		MessageID: message.MessageID,
		BurstID:   message.MediaGroupID,
		Text:      message.Text,
		Caption:   message.Caption,
	}

	switch {
	case len(message.Photo) > 0:
		// telegram sends several sizes of one photo, the last is the largest
		photo := message.Photo[len(message.Photo)-1]
		msg.Attachment = &e.Attachment{Kind: e.AttachmentKindPhoto, FileID: photo.FileID}
	case message.Video != nil:
		msg.Attachment = &e.Attachment{Kind: e.AttachmentKindVideo, FileID: message.Video.FileID}
	case message.Document != nil:
		msg.Attachment = &e.Attachment{Kind: e.AttachmentKindDocument, FileID: message.Document.FileID}
	case message.Voice != nil:
		msg.Attachment = &e.Attachment{Kind: e.AttachmentKindVoice, FileID: message.Voice.FileID}
	case message.VideoNote != nil:
		msg.Attachment = &e.Attachment{Kind: e.AttachmentKindVideoNote, FileID: message.VideoNote.FileID}
	}

	return msg
}
