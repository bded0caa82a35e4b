package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	e "nuclight.org/suggest-tg-bot/pkg/entities"
)

const (
	textBanUsage      = "Использование: /ban [ID пользователя] [время в часах или x для вечного бана] [причина]"
	textBanValueError = "Ошибка: ID пользователя должен быть числом, а время - числом или 'x' для вечного бана."
	textUnbanUsage    = "Использование: /unban [ID пользователя]"
	textIDValueError  = "Ошибка: ID пользователя должен быть числом."
	textNoBans        = "Нет активных блокировок."
	textNotBanned     = "Вы не заблокированы."
	textEmptyDB       = "База данных пуста."
	textNoReason      = "Не указана"

	// eternalMarker in place of the hours argument makes a ban permanent
	eternalMarker = "x"
)

// HandleCommand dispatches a bot command. Admin commands invoked by
// anyone else are silently ignored so their existence is not revealed.
func (s *Service) HandleCommand(ctx context.Context, cmd e.Command) error {
	s.init()

	switch cmd.Name {
	case "start":
		return s.cmdStart(ctx, cmd)
	case "baninfo":
		return s.cmdBanInfo(ctx, cmd)
	case "ban":
		if cmd.Sender.TgID != s.AdminID {
			return nil
		}
		return s.cmdBan(ctx, cmd)
	case "unban":
		if cmd.Sender.TgID != s.AdminID {
			return nil
		}
		return s.cmdUnban(ctx, cmd)
	case "banlist":
		if cmd.Sender.TgID != s.AdminID {
			return nil
		}
		return s.cmdBanList(ctx, cmd)
	case "takedb":
		if cmd.Sender.TgID != s.AdminID {
			return nil
		}
		return s.cmdTakeDB(ctx, cmd)
	default:
		return nil
	}
}

func (s *Service) cmdStart(ctx context.Context, cmd e.Command) error {
	_, err := s.Store.FindOrCreateUser(ctx, cmd.Sender.TgID, cmd.Sender.Username)
	if err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}

	_, err = s.Gateway.SendButtons(ctx, cmd.ChatID, textStart, []e.Button{
		{Label: buttonCompose, Data: callbackCompose},
	})
	return err
}

func (s *Service) cmdBan(ctx context.Context, cmd e.Command) error {
	if len(cmd.Args) < 2 {
		return s.reply(ctx, cmd.ChatID, textBanUsage)
	}

	userID, err := strconv.ParseInt(cmd.Args[0], 10, 64)
	if err != nil {
		return s.reply(ctx, cmd.ChatID, textBanValueError)
	}

	timeArg := strings.ToLower(cmd.Args[1])
	eternal := timeArg == eternalMarker

	var hours float64
	if !eternal {
		hours, err = strconv.ParseFloat(timeArg, 64)
		if err != nil {
			return s.reply(ctx, cmd.ChatID, textBanValueError)
		}
	}

	reason := strings.Join(cmd.Args[2:], " ")

	exists, err := s.Store.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if !exists {
		return s.reply(ctx, cmd.ChatID, fmt.Sprintf("Пользователь с ID %d не найден.", userID))
	}

	timeText := "Вечная"
	if eternal {
		err = s.Bans.BanForever(ctx, userID, reason)
	} else {
		err = s.Bans.Ban(ctx, userID, time.Duration(hours*float64(time.Hour)), reason)
		timeText = fmt.Sprintf("%g часов", hours)
	}
	if err != nil {
		return fmt.Errorf("banning user: %w", err)
	}

	s.Log.Info("user banned", "user_id", userID, "eternal", eternal, "hours", hours, "reason", reason)

	reasonText := reason
	if reasonText == "" {
		reasonText = textNoReason
	}

	return s.reply(ctx, cmd.ChatID, fmt.Sprintf(
		"Пользователь [ID: %d] заблокирован.\nВремя: %s\nПричина: %s",
		userID, timeText, reasonText,
	))
}

func (s *Service) cmdUnban(ctx context.Context, cmd e.Command) error {
	if len(cmd.Args) != 1 {
		return s.reply(ctx, cmd.ChatID, textUnbanUsage)
	}

	userID, err := strconv.ParseInt(cmd.Args[0], 10, 64)
	if err != nil {
		return s.reply(ctx, cmd.ChatID, textIDValueError)
	}

	exists, err := s.Store.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if !exists {
		return s.reply(ctx, cmd.ChatID, fmt.Sprintf("Пользователь с ID %d не найден.", userID))
	}

	existed, err := s.Bans.Unban(ctx, userID)
	if err != nil {
		return fmt.Errorf("unbanning user: %w", err)
	}
	if !existed {
		return s.reply(ctx, cmd.ChatID, fmt.Sprintf("Пользователь [ID: %d] не заблокирован.", userID))
	}

	s.Log.Info("user unbanned", "user_id", userID)

	return s.reply(ctx, cmd.ChatID, fmt.Sprintf("Пользователь [ID: %d] разблокирован.", userID))
}

func (s *Service) cmdBanInfo(ctx context.Context, cmd e.Command) error {
	userID, err := s.Store.FindOrCreateUser(ctx, cmd.Sender.TgID, cmd.Sender.Username)
	if err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}

	status, err := s.Bans.IsBanned(ctx, userID)
	if err != nil {
		return fmt.Errorf("checking ban: %w", err)
	}

	if !status.Active {
		return s.reply(ctx, cmd.ChatID, textNotBanned)
	}

	timeText := "Вечная"
	if status.Until != nil {
		left := time.Until(*status.Until)
		hoursLeft := int(left.Hours())
		minutesLeft := int(left.Minutes()) % 60

		if hoursLeft > 0 {
			timeText = fmt.Sprintf("%d часов %d минут", hoursLeft, minutesLeft)
		} else {
			timeText = fmt.Sprintf("%d минут", minutesLeft)
		}
	}

	reasonText := status.Reason
	if reasonText == "" {
		reasonText = textNoReason
	}

	return s.reply(ctx, cmd.ChatID, fmt.Sprintf(
		"Вы заблокированы.\nЗакончится через: %s\nПричина: %s",
		timeText, reasonText,
	))
}

func (s *Service) cmdBanList(ctx context.Context, cmd e.Command) error {
	bans, err := s.Bans.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing bans: %w", err)
	}

	if len(bans) == 0 {
		return s.reply(ctx, cmd.ChatID, textNoBans)
	}

	entries := make([]string, 0, len(bans))
	for _, ban := range bans {
		timeText := "Бессрочно"
		if ban.Until != nil {
			timeText = fmt.Sprintf("%d часов", int(time.Until(*ban.Until).Hours()))
		}

		reasonText := ban.Reason
		if reasonText == "" {
			reasonText = textNoReason
		}

		entries = append(entries, fmt.Sprintf("%d\n%s\n%s", ban.UserID, timeText, reasonText))
	}

	return s.reply(ctx, cmd.ChatID, strings.Join(entries, "\n\n"))
}

func (s *Service) cmdTakeDB(ctx context.Context, cmd e.Command) error {
	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	if len(users) == 0 {
		return s.reply(ctx, cmd.ChatID, textEmptyDB)
	}

	var sb strings.Builder
	sb.WriteString("База данных пользователей:\n\n")
	for _, user := range users {
		fmt.Fprintf(&sb, "%d %d %s\n", user.ID, user.TgID, user.Username)
	}

	return s.reply(ctx, cmd.ChatID, sb.String())
}

func (s *Service) reply(ctx context.Context, chatID int64, text string) error {
	_, err := s.Gateway.SendText(ctx, chatID, text)
	return err
}
