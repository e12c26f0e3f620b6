package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/NasaVasa/aptwatch/internal/format"
	"github.com/NasaVasa/aptwatch/internal/usecase"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const maxMessageLen = 3800

type Handlers struct {
	userUC         *usecase.UserUsecase
	alertUC        *usecase.AlertUsecase
	notificationUC *usecase.NotificationUsecase
	complexUC      *usecase.ComplexUsecase
	logger         *zap.Logger
}

func NewHandlers(userUC *usecase.UserUsecase, alertUC *usecase.AlertUsecase, notificationUC *usecase.NotificationUsecase, complexUC *usecase.ComplexUsecase, logger *zap.Logger) *Handlers {
	return &Handlers{userUC: userUC, alertUC: alertUC, notificationUC: notificationUC, complexUC: complexUC, logger: logger}
}

func (h *Handlers) HandleUpdate(ctx context.Context, api *tgbotapi.BotAPI, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	if update.Message.From == nil {
		return
	}
	if update.Message.IsCommand() {
		h.handleCommand(ctx, api, update)
		return
	}
}

func (h *Handlers) handleCommand(ctx context.Context, api *tgbotapi.BotAPI, update tgbotapi.Update) {
	command := update.Message.Command()
	args := update.Message.CommandArguments()
	chatID := update.Message.Chat.ID
	telegramUserID := update.Message.From.ID
	username := update.Message.From.UserName

	h.logger.Info(
		"telegram command received",
		zap.Int64("chat_id", chatID),
		zap.Int64("telegram_user_id", telegramUserID),
		zap.String("username", username),
		zap.String("command", command),
		zap.String("args", args),
	)

	switch command {
	case "start":
		if _, err := h.userUC.StartOrGetUser(ctx, telegramUserID, username); err != nil {
			h.logger.Warn("start command failed", zap.Int64("telegram_user_id", telegramUserID), zap.Error(err))
			h.reply(api, chatID, "Failed to register. Please try again.")
			return
		}
		h.logger.Info("start command complete", zap.Int64("telegram_user_id", telegramUserID))
		h.reply(api, chatID, "Welcome to aptwatch.\n\n"+HelpText)
	case "help":
		h.reply(api, chatID, HelpText)
	case "complex":
		aptSeq, err := ParseAptSeq(args)
		if err != nil {
			h.reply(api, chatID, "Usage: /complex <apt_seq>")
			return
		}
		info, err := h.complexUC.GetComplex(ctx, aptSeq)
		if err != nil {
			h.reply(api, chatID, h.errorMessage(err))
			return
		}
		h.reply(api, chatID, formatComplex(info))
	case "watch":
		aptSeq, operator, price, err := ParseWatchArgs(args)
		if err != nil {
			h.logger.Warn("watch invalid args", zap.Int64("telegram_user_id", telegramUserID), zap.String("args", args))
			h.reply(api, chatID, "Usage: /watch <apt_seq> <below|above> <price>")
			return
		}
		userID, ok := h.resolveUser(ctx, api, chatID, telegramUserID)
		if !ok {
			return
		}
		condition, err := h.alertUC.CreateCondition(ctx, userID, domain.PriceAlertCondition{
			Name:     fmt.Sprintf("%s %s", operator, format.Won(price)),
			Criteria: domain.Criteria{ComplexID: &aptSeq},
			AlertConditions: domain.AlertConditions{
				PriceThreshold: &domain.ThresholdRule{Operator: operator, Value: price},
			},
		})
		if err != nil {
			h.logger.Warn("watch failed", zap.Uint("user_id", userID), zap.Error(err))
			h.reply(api, chatID, h.errorMessage(err))
			return
		}
		h.logger.Info("watch complete", zap.Uint("user_id", userID), zap.Uint("condition_id", condition.ID))
		h.reply(api, chatID, "Alert created: "+formatCondition(*condition))
	case "alerts":
		userID, ok := h.resolveUser(ctx, api, chatID, telegramUserID)
		if !ok {
			return
		}
		conditions, err := h.alertUC.ListConditions(ctx, userID)
		if err != nil {
			h.logger.Warn("alerts list failed", zap.Uint("user_id", userID), zap.Error(err))
			h.reply(api, chatID, h.errorMessage(err))
			return
		}
		if len(conditions) == 0 {
			h.reply(api, chatID, "No alerts yet. Use /watch to create one.")
			return
		}
		lines := make([]string, 0, len(conditions))
		for _, condition := range conditions {
			lines = append(lines, formatCondition(condition))
		}
		h.reply(api, chatID, joinBounded("Your alerts:\n", lines, "alerts"))
	case "enable", "disable", "delete":
		alertID, err := ParseAlertID(args)
		if err != nil {
			h.logger.Warn(command+" invalid args", zap.Int64("telegram_user_id", telegramUserID), zap.String("args", args))
			h.reply(api, chatID, fmt.Sprintf("Usage: /%s <alert_id>", command))
			return
		}
		userID, ok := h.resolveUser(ctx, api, chatID, telegramUserID)
		if !ok {
			return
		}
		switch command {
		case "enable":
			err = h.alertUC.EnableCondition(ctx, userID, alertID)
		case "disable":
			err = h.alertUC.DisableCondition(ctx, userID, alertID)
		default:
			err = h.alertUC.DeleteCondition(ctx, userID, alertID)
		}
		if err != nil {
			h.logger.Warn(command+" failed", zap.Uint("user_id", userID), zap.Uint("condition_id", alertID), zap.Error(err))
			h.reply(api, chatID, h.errorMessage(err))
			return
		}
		h.logger.Info(command+" complete", zap.Uint("user_id", userID), zap.Uint("condition_id", alertID))
		h.reply(api, chatID, fmt.Sprintf("Alert #%d %sd.", alertID, command))
	case "inbox":
		status, err := ParseInboxArgs(args)
		if err != nil {
			h.reply(api, chatID, "Usage: /inbox [unread|read|archived]")
			return
		}
		userID, ok := h.resolveUser(ctx, api, chatID, telegramUserID)
		if !ok {
			return
		}
		page, err := h.notificationUC.List(ctx, userID, status, inboxPageSize, "")
		if err != nil {
			h.logger.Warn("inbox failed", zap.Uint("user_id", userID), zap.Error(err))
			h.reply(api, chatID, h.errorMessage(err))
			return
		}
		if len(page.Notifications) == 0 {
			h.reply(api, chatID, "Inbox is empty.")
			return
		}
		lines := make([]string, 0, len(page.Notifications))
		for _, n := range page.Notifications {
			lines = append(lines, formatNotification(n))
		}
		h.reply(api, chatID, joinBounded("Notifications:\n", lines, "notifications"))
	case "read", "archive":
		notificationID, err := ParseNotificationID(args)
		if err != nil {
			h.reply(api, chatID, fmt.Sprintf("Usage: /%s <notification_id>", command))
			return
		}
		userID, ok := h.resolveUser(ctx, api, chatID, telegramUserID)
		if !ok {
			return
		}
		var n *domain.Notification
		if command == "read" {
			n, err = h.notificationUC.MarkRead(ctx, userID, notificationID)
		} else {
			n, err = h.notificationUC.Archive(ctx, userID, notificationID)
		}
		if err != nil {
			h.logger.Warn(command+" failed", zap.Uint("user_id", userID), zap.String("notification_id", notificationID), zap.Error(err))
			h.reply(api, chatID, h.errorMessage(err))
			return
		}
		if command == "read" {
			h.reply(api, chatID, n.Title+"\n"+n.Message)
			return
		}
		h.reply(api, chatID, "Notification archived.")
	default:
		h.logger.Warn("unknown command", zap.Int64("telegram_user_id", telegramUserID), zap.String("command", command))
		h.reply(api, chatID, "Unknown command.\n\n"+HelpText)
	}
}

func (h *Handlers) resolveUser(ctx context.Context, api *tgbotapi.BotAPI, chatID, telegramUserID int64) (uint, bool) {
	userID, err := h.alertUC.UserIDForTelegram(ctx, telegramUserID)
	if err != nil {
		h.reply(api, chatID, h.errorMessage(err))
		return 0, false
	}
	return userID, true
}

func (h *Handlers) errorMessage(err error) string {
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, usecase.ErrUserNotRegistered):
		return "Please /start to register first."
	case errors.Is(err, usecase.ErrAlertNotFound):
		return "Alert not found."
	case errors.Is(err, usecase.ErrComplexNotFound):
		return "Complex not found. Check the apt_seq."
	case errors.Is(err, usecase.ErrComplexDirectoryDisabled):
		return "Complex lookup is not available."
	case errors.Is(err, usecase.ErrNotificationNotFound):
		return "Notification not found."
	case errors.Is(err, usecase.ErrNotificationArchived):
		return "Notification is archived."
	case errors.As(err, &validationErr):
		return "Invalid alert: " + validationErr.Error()
	}

	h.logger.Warn("unhandled error", zap.Error(err))
	return "Something went wrong. Please try again."
}

func (h *Handlers) reply(api *tgbotapi.BotAPI, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := api.Send(msg); err != nil {
		h.logger.Warn("failed to send message", zap.Error(err))
	}
}

func formatComplex(info *domain.ComplexInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (#%d)\n", info.Name, info.AptSeq)
	if info.Address != "" {
		b.WriteString(info.Address + "\n")
	}
	if info.RegionCode != "" {
		fmt.Fprintf(&b, "Region: %s\n", info.RegionCode)
	}
	if info.BuildYear > 0 {
		fmt.Fprintf(&b, "Built: %d\n", info.BuildYear)
	}
	if info.TotalHouseholds > 0 {
		fmt.Fprintf(&b, "Households: %d\n", info.TotalHouseholds)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCondition(c domain.PriceAlertCondition) string {
	status := "disabled"
	if c.IsActive {
		status = "enabled"
	}

	scope := "all regions"
	switch {
	case c.Criteria.ComplexName != "":
		scope = c.Criteria.ComplexName
	case c.Criteria.ComplexID != nil:
		scope = fmt.Sprintf("complex #%d", *c.Criteria.ComplexID)
	case len(c.Criteria.RegionCodes) > 0:
		scope = "regions " + strings.Join(c.Criteria.RegionCodes, ",")
	}

	var rules []string
	if t := c.AlertConditions.PriceThreshold; t != nil {
		rules = append(rules, fmt.Sprintf("price %s %s", t.Operator, format.Won(t.Value)))
	}
	if ch := c.AlertConditions.PriceChange; ch != nil {
		rules = append(rules, fmt.Sprintf("%s %s%% %s", ch.Period, ch.Percentage.String(), ch.Operator))
	}
	if c.AlertConditions.NewListing {
		rules = append(rules, "new listings")
	}

	return fmt.Sprintf("#%d [%s] %s: %s (%s)", c.ID, status, c.Name, scope, strings.Join(rules, ", "))
}

func formatNotification(n domain.Notification) string {
	title := strings.ReplaceAll(strings.TrimSpace(n.Title), "\n", " ")
	if r := []rune(title); len(r) > 60 {
		title = string(r[:57]) + "..."
	}
	return fmt.Sprintf("[%s] %s\n%s %s", n.Status, title, n.CreatedAt.Format("2006-01-02 15:04"), n.ID)
}

func joinBounded(header string, lines []string, noun string) string {
	var b strings.Builder
	b.WriteString(header)
	for i, line := range lines {
		if b.Len()+len(line)+1 > maxMessageLen {
			fmt.Fprintf(&b, "...and %d more %s", len(lines)-i, noun)
			break
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
