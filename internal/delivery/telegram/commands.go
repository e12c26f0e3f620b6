package telegram

import (
	"errors"
	"strconv"
	"strings"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/NasaVasa/aptwatch/internal/format"
	"github.com/google/uuid"
)

const HelpText = `Commands:
/start - register
/help - show this help
/complex <apt_seq> - show a complex
/watch <apt_seq> <below|above> <price> - alert on a complex price
/alerts - list your alerts
/enable <alert_id>
/disable <alert_id>
/delete <alert_id>
/inbox [unread|read|archived] - recent notifications
/read <notification_id>
/archive <notification_id>

Notes:
- Prices accept 억/만 units: 5억, 4억8000만, or plain won.
- Lease and rent transactions compare against the deposit.
Example:
/watch 11680 below 15억
`

const inboxPageSize = 10

var ErrInvalidArguments = errors.New("invalid arguments")

func ParseAlertID(args string) (uint, error) {
	idStr := strings.TrimSpace(args)
	if idStr == "" {
		return 0, ErrInvalidArguments
	}
	value, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || value == 0 {
		return 0, ErrInvalidArguments
	}
	return uint(value), nil
}

func ParseNotificationID(args string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(args))
	if err != nil {
		return "", ErrInvalidArguments
	}
	return id.String(), nil
}

// ParseInboxArgs returns the status filter for /inbox. No argument lists every status.
func ParseInboxArgs(args string) (domain.NotificationStatus, error) {
	arg := strings.ToLower(strings.TrimSpace(args))
	if arg == "" {
		return "", nil
	}
	status := domain.NotificationStatus(arg)
	if !status.Valid() {
		return "", ErrInvalidArguments
	}
	return status, nil
}

func ParseAptSeq(args string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || value <= 0 {
		return 0, ErrInvalidArguments
	}
	return value, nil
}

func ParseWatchArgs(args string) (aptSeq int64, operator domain.ThresholdOperator, price int64, err error) {
	parts := strings.Fields(args)
	if len(parts) < 3 {
		return 0, "", 0, ErrInvalidArguments
	}
	aptSeq, err = ParseAptSeq(parts[0])
	if err != nil {
		return 0, "", 0, err
	}

	switch strings.ToLower(parts[1]) {
	case "below", "<", "<=":
		operator = domain.ThresholdBelow
	case "above", ">", ">=":
		operator = domain.ThresholdAbove
	default:
		return 0, "", 0, ErrInvalidArguments
	}

	price, err = format.ParseWon(strings.Join(parts[2:], ""))
	if err != nil || price <= 0 {
		return 0, "", 0, ErrInvalidArguments
	}
	return aptSeq, operator, price, nil
}
