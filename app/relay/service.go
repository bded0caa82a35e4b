// Package relay implements the submission pipeline: a user composes a
// message in a private chat, previews it with the attribution footer,
// confirms or cancels it within a time window, and the bot relays it
// verbatim to the destination channel.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nuclight.org/suggest-tg-bot/app/registry"
	e "nuclight.org/suggest-tg-bot/pkg/entities"
	"nuclight.org/suggest-tg-bot/pkg/footer"
	"nuclight.org/suggest-tg-bot/pkg/logger"
)

const (
	callbackCompose       = "send_message"
	callbackComposeCancel = "cancel_send"
	callbackConfirm       = "confirm_send"
	callbackConfirmCancel = "cancel_confirm"
)

const (
	textStart          = "Чтобы отправить сообщение в канал нажмите кнопку ниже."
	textCompose        = "Введите ваше сообщение. Вы можете прикрепить медиа"
	textBanned         = "Вы заблокированы и не можете отправить сообщения. Для получения справки напишите /baninfo."
	textComposeCancel  = "Отправка отменена"
	textConfirmPrompt  = "Подтвердите отправку"
	textSent           = "Сообщение успешно отправлено в канал!"
	textConfirmCancel  = "Отменено."
	textConfirmExpired = "Время на подтверждение истекло, отправка отменена."

	buttonCompose = "Отправить сообщение"
	buttonConfirm = "Отправить"
	buttonCancel  = "Отмена"
)

// Store is the user side of the record store.
type Store interface {
	FindOrCreateUser(ctx context.Context, tgID int64, username string) (int64, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	ListUsers(ctx context.Context) ([]e.User, error)
}

const (
	defaultSettleDelay    = 1500 * time.Millisecond
	defaultConfirmTimeout = 30 * time.Second
)

// Service drives per-user submission sessions. All session state is
// ephemeral and lost on restart.
type Service struct {
	Log     logger.Logger
	Gateway Gateway
	Store   Store
	Bans    *registry.Registry

	// ChannelID is the destination channel submissions are relayed to
	ChannelID int64

	// AdminID is the telegram id allowed to run admin commands
	AdminID int64

	// SettleDelay is the media burst quiet period, zero means 1.5s
	SettleDelay time.Duration

	// ConfirmTimeout is the confirmation window, zero means 30s
	ConfirmTimeout time.Duration

	initOnce sync.Once
	agg      *Aggregator
	disp     *Dispatcher

	mu       sync.Mutex
	sessions map[int64]*session
}

type sessionState int

const (
	stateIdle sessionState = iota
	stateAwaiting
	statePreviewed
)

type promptRef struct {
	chatID    int64
	messageID int
}

type session struct {
	state   sessionState
	pending e.Submission
	prompt  promptRef
	timer   *time.Timer

	// gen invalidates a superseded confirmation window's timeout
	gen int
}

func (s *Service) init() {
	s.initOnce.Do(func() {
		if s.SettleDelay == 0 {
			s.SettleDelay = defaultSettleDelay
		}
		if s.ConfirmTimeout == 0 {
			s.ConfirmTimeout = defaultConfirmTimeout
		}
		s.sessions = make(map[int64]*session)
		s.disp = &Dispatcher{Gateway: s.Gateway}
		s.agg = NewAggregator(s.SettleDelay, s.finalizeBurst)
	})
}

func (s *Service) session(userID int64) *session {
	sess := s.sessions[userID]
	if sess == nil {
		sess = &session{}
		s.sessions[userID] = sess
	}
	return sess
}

// HandleCallback handles a pressed inline keyboard button.
func (s *Service) HandleCallback(ctx context.Context, cb e.Callback) error {
	s.init()

	userID, err := s.Store.FindOrCreateUser(ctx, cb.Sender.TgID, cb.Sender.Username)
	if err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}

	switch cb.Data {
	case callbackCompose:
		return s.startCompose(ctx, userID, cb)
	case callbackComposeCancel:
		return s.cancelCompose(ctx, userID, cb)
	case callbackConfirm:
		return s.confirm(ctx, userID, cb)
	case callbackConfirmCancel:
		return s.cancelConfirm(ctx, userID, cb)
	default:
		return nil
	}
}

func (s *Service) startCompose(ctx context.Context, userID int64, cb e.Callback) error {
	status, err := s.Bans.IsBanned(ctx, userID)
	if err != nil {
		return fmt.Errorf("checking ban: %w", err)
	}

	if status.Active {
		return s.Gateway.EditText(ctx, cb.ChatID, cb.MessageID, textBanned)
	}

	err = s.Gateway.EditButtons(ctx, cb.ChatID, cb.MessageID, textCompose, []e.Button{
		{Label: buttonCancel, Data: callbackComposeCancel},
	})
	if err != nil {
		return fmt.Errorf("editing compose prompt: %w", err)
	}

	s.mu.Lock()
	s.session(userID).state = stateAwaiting
	s.mu.Unlock()

	return nil
}

func (s *Service) cancelCompose(ctx context.Context, userID int64, cb e.Callback) error {
	s.clearSession(userID)

	_ = s.Gateway.DeleteMessage(ctx, cb.ChatID, cb.MessageID)

	_, err := s.Gateway.SendText(ctx, cb.ChatID, textComposeCancel)
	return err
}

func (s *Service) confirm(ctx context.Context, userID int64, cb e.Callback) error {
	s.mu.Lock()
	sess := s.sessions[userID]
	if sess == nil || sess.state != statePreviewed {
		// stale action, the window is gone
		s.mu.Unlock()
		return nil
	}

	sub := sess.pending
	sess.reset()
	s.mu.Unlock()

	status, err := s.Bans.IsBanned(ctx, userID)
	if err != nil {
		return fmt.Errorf("checking ban: %w", err)
	}

	// a ban may have been applied during the confirmation window
	if status.Active {
		return s.Gateway.EditText(ctx, cb.ChatID, cb.MessageID, textBanned)
	}

	if err := s.disp.Send(ctx, s.ChannelID, sub); err != nil {
		s.Log.Error("relaying submission", "user_id", userID, "kind", sub.Kind, "error", err)
		return s.Gateway.EditText(ctx, cb.ChatID, cb.MessageID, fmt.Sprintf("Ошибка при отправке: %s", err))
	}

	s.Log.Info("submission relayed", "user_id", userID, "kind", sub.Kind)

	return s.Gateway.EditText(ctx, cb.ChatID, cb.MessageID, textSent)
}

func (s *Service) cancelConfirm(ctx context.Context, userID int64, cb e.Callback) error {
	s.clearSession(userID)

	_ = s.Gateway.DeleteMessage(ctx, cb.ChatID, cb.MessageID)

	_, err := s.Gateway.SendText(ctx, cb.ChatID, textConfirmCancel)
	return err
}

// HandleMessage handles a non-command message from a private chat. It is
// meaningful only while the user is composing; anything else is ignored.
func (s *Service) HandleMessage(ctx context.Context, msg e.Inbound) error {
	s.init()

	userID, err := s.Store.FindOrCreateUser(ctx, msg.Sender.TgID, msg.Sender.Username)
	if err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}

	s.mu.Lock()
	sess := s.sessions[userID]
	composing := sess != nil && sess.state != stateIdle
	s.mu.Unlock()

	if !composing {
		return nil
	}

	// a ban may have started mid-composition
	status, err := s.Bans.IsBanned(ctx, userID)
	if err != nil {
		return fmt.Errorf("checking ban: %w", err)
	}
	if status.Active {
		s.clearSession(userID)
		_, err := s.Gateway.SendText(ctx, msg.ChatID, textBanned)
		return err
	}

	if msg.BurstID != "" && msg.Attachment != nil {
		s.agg.Add(msg.BurstID, msg.ChatID, userID, *msg.Attachment, msg.Caption)
		return nil
	}

	var sub e.Submission
	switch {
	case msg.Text != "":
		sub = e.Submission{
			Kind: e.SubmissionKindText,
			Text: footer.Format(msg.Text, userID),
		}
	case msg.Attachment != nil:
		sub = e.Submission{
			Kind:       e.SubmissionKindSingle,
			Text:       footer.Format(msg.Caption, userID),
			Attachment: *msg.Attachment,
		}
	default:
		return nil
	}

	return s.preview(ctx, msg.ChatID, userID, sub)
}

// finalizeBurst is the aggregator's settle callback.
func (s *Service) finalizeBurst(settled Settled) {
	ctx := context.Background()

	text := footer.Format(settled.Caption, settled.UserID)

	var sub e.Submission
	if len(settled.Media) == 1 {
		sub = e.Submission{
			Kind:       e.SubmissionKindSingle,
			Text:       text,
			Attachment: settled.Media[0],
		}
	} else {
		sub = e.Submission{
			Kind:  e.SubmissionKindAlbum,
			Text:  text,
			Album: settled.Media,
		}
	}

	if err := s.preview(ctx, settled.ChatID, settled.UserID, sub); err != nil {
		s.Log.Error("finalizing media burst", "user_id", settled.UserID, "error", err)
	}
}

// preview renders the pending submission into the user's chat, emits the
// confirm/cancel prompt and starts the confirmation window. A prior
// window, if any, is superseded: its timer stopped and its prompt
// deleted.
func (s *Service) preview(ctx context.Context, chatID, userID int64, sub e.Submission) error {
	if err := s.disp.Send(ctx, chatID, sub); err != nil {
		_, _ = s.Gateway.SendText(ctx, chatID, fmt.Sprintf("Ошибка при создании предпросмотра: %s", err))
		return fmt.Errorf("sending preview: %w", err)
	}

	promptID, err := s.Gateway.SendButtons(ctx, chatID, textConfirmPrompt, []e.Button{
		{Label: buttonConfirm, Data: callbackConfirm},
		{Label: buttonCancel, Data: callbackConfirmCancel},
	})
	if err != nil {
		return fmt.Errorf("sending confirmation prompt: %w", err)
	}

	s.mu.Lock()
	sess := s.session(userID)
	if sess.timer != nil {
		sess.timer.Stop()
	}
	prevPrompt := sess.prompt

	sess.state = statePreviewed
	sess.pending = sub
	sess.prompt = promptRef{chatID: chatID, messageID: promptID}
	sess.gen++
	gen := sess.gen
	sess.timer = time.AfterFunc(s.ConfirmTimeout, func() {
		s.expireConfirmation(userID, gen)
	})
	s.mu.Unlock()

	if prevPrompt.messageID != 0 {
		_ = s.Gateway.DeleteMessage(ctx, prevPrompt.chatID, prevPrompt.messageID)
	}

	return nil
}

// expireConfirmation fires when the confirmation window elapses without
// confirm or cancel.
func (s *Service) expireConfirmation(userID int64, gen int) {
	s.mu.Lock()
	sess := s.sessions[userID]
	if sess == nil || sess.state != statePreviewed || sess.gen != gen {
		// confirmed, cancelled or superseded before the deadline
		s.mu.Unlock()
		return
	}
	prompt := sess.prompt
	sess.reset()
	s.mu.Unlock()

	ctx := context.Background()

	_ = s.Gateway.DeleteMessage(ctx, prompt.chatID, prompt.messageID)

	if _, err := s.Gateway.SendText(ctx, prompt.chatID, textConfirmExpired); err != nil {
		s.Log.Error("notifying confirmation expiry", "user_id", userID, "error", err)
	}

	s.Log.Info("confirmation expired", "user_id", userID)
}

func (s *Service) clearSession(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.sessions[userID]; sess != nil {
		sess.reset()
	}
}

// reset returns the session to idle, dropping the pending submission and
// stopping the confirmation countdown. Callers hold the service mutex.
func (sess *session) reset() {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	sess.state = stateIdle
	sess.pending = e.Submission{}
	sess.prompt = promptRef{}
}
