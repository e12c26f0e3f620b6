package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/NasaVasa/aptwatch/internal/format"
	"github.com/google/uuid"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

func DefaultTemplates() map[domain.NotificationType]domain.NotificationTemplate {
	return map[domain.NotificationType]domain.NotificationTemplate{
		domain.NotificationPriceAlert: {
			Title:         "[{{condition_name}}] {{complex_name}} 가격 알림",
			Message:       "{{complex_name}} {{area}} {{transaction_type}} {{price}} ({{transaction_date}})\n{{reasons}}",
			DigestTitle:   "[{{condition_name}}] 가격 알림 {{count}}건",
			DigestMessage: "{{period_label}} 동안 조건을 만족한 거래 {{count}}건\n{{summary}}",
			Priority:      domain.PriorityHigh,
		},
		domain.NotificationNewTransaction: {
			Title:         "[{{condition_name}}] {{complex_name}} 신규 거래",
			Message:       "{{complex_name}} {{area}} {{transaction_type}} {{price}} 신규 거래가 등록되었습니다. ({{transaction_date}})",
			DigestTitle:   "[{{condition_name}}] 신규 거래 {{count}}건",
			DigestMessage: "{{period_label}} 동안 등록된 신규 거래 {{count}}건\n{{summary}}",
			Priority:      domain.PriorityMedium,
		},
	}
}

type ComposeInput struct {
	Condition domain.PriceAlertCondition
	Category  domain.NotificationType
	Outcomes  []domain.Outcome
	Setting   domain.NotificationSetting
	Batched   bool
	Now       time.Time
}

// NotificationComposer renders notifications from templates and fired outcomes.
type NotificationComposer struct {
	templates map[domain.NotificationType]domain.NotificationTemplate
	ttl       time.Duration
	newID     func() string
}

func NewNotificationComposer(templates map[domain.NotificationType]domain.NotificationTemplate, ttl time.Duration, newID func() string) *NotificationComposer {
	merged := DefaultTemplates()
	for t, tpl := range templates {
		merged[t] = tpl
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &NotificationComposer{templates: merged, ttl: ttl, newID: newID}
}

// Compose builds an unread notification. The in-app channel is marked sent here; other
// enabled channels start unsent.
func (c *NotificationComposer) Compose(input ComposeInput) domain.Notification {
	tpl := c.templates[input.Category]
	now := input.Now.UTC()
	vars := buildTemplateVars(input)

	title, message := tpl.Title, tpl.Message
	if len(input.Outcomes) > 1 {
		if tpl.DigestTitle != "" {
			title = tpl.DigestTitle
		}
		if tpl.DigestMessage != "" {
			message = tpl.DigestMessage
		}
	}

	priority := tpl.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if input.Batched && priority == domain.PriorityHigh {
		priority = domain.PriorityMedium
	}

	email, push := input.Setting.Channels(input.Category)
	notification := domain.Notification{
		ID:          c.newID(),
		UserID:      input.Condition.UserID,
		Type:        input.Category,
		Priority:    priority,
		Status:      domain.StatusUnread,
		Title:       render(title, vars),
		Message:     render(message, vars),
		ActionType:  domain.ActionViewProperty,
		ActionURL:   vars.actionURL,
		RelatedID:   strconv.FormatUint(uint64(input.Condition.ID), 10),
		RelatedType: domain.RelatedAlert,
		Channels: domain.NotificationChannels{
			InApp: domain.ChannelDelivery{Enabled: true, Sent: true, SentAt: &now},
			Email: domain.ChannelDelivery{Enabled: email},
			Push:  domain.ChannelDelivery{Enabled: push},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.ttl > 0 {
		expires := now.Add(c.ttl)
		notification.ExpiresAt = &expires
	}
	return notification
}

type templateVars struct {
	conditionName   string
	complexName     string
	area            string
	price           string
	transactionType string
	transactionDate string
	reasons         string
	summary         string
	count           string
	periodLabel     string
	actionURL       string
}

// lookup resolves a placeholder. Unknown names render empty.
func (v templateVars) lookup(name string) string {
	switch name {
	case "condition_name":
		return v.conditionName
	case "complex_name":
		return v.complexName
	case "area":
		return v.area
	case "price":
		return v.price
	case "transaction_type":
		return v.transactionType
	case "transaction_date":
		return v.transactionDate
	case "reasons":
		return v.reasons
	case "summary":
		return v.summary
	case "count":
		return v.count
	case "period_label":
		return v.periodLabel
	case "action_url":
		return v.actionURL
	}
	return ""
}

func render(tpl string, vars templateVars) string {
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return ""
		}
		return vars.lookup(sub[1])
	})
}

func buildTemplateVars(input ComposeInput) templateVars {
	vars := templateVars{
		conditionName: input.Condition.Name,
		count:         strconv.Itoa(len(input.Outcomes)),
		periodLabel:   "최근",
	}
	if vars.conditionName == "" {
		vars.conditionName = fmt.Sprintf("알림 #%d", input.Condition.ID)
	}
	if len(input.Outcomes) == 0 {
		return vars
	}

	latest := input.Outcomes[len(input.Outcomes)-1]
	tx := latest.Transaction
	vars.complexName = tx.ComplexName
	vars.area = format.Area(tx.ExclusiveArea)
	vars.price = format.Won(tx.Price)
	vars.transactionType = transactionTypeLabel(tx.TransactionType)
	if !tx.TransactionDate.IsZero() {
		vars.transactionDate = tx.TransactionDate.Format("2006-01-02")
	}
	vars.actionURL = fmt.Sprintf("/complexes/%d?area=%d&type=%s", tx.ComplexID, tx.AreaBucket(), tx.TransactionType)

	reasonLines := make([]string, 0, len(latest.Reasons))
	for _, r := range latest.Reasons {
		reasonLines = append(reasonLines, describeReason(r))
	}
	vars.reasons = strings.Join(reasonLines, "\n")

	summary := make([]string, 0, len(input.Outcomes))
	for _, o := range input.Outcomes {
		parts := make([]string, 0, len(o.Reasons))
		for _, r := range o.Reasons {
			parts = append(parts, describeReason(r))
		}
		summary = append(summary, fmt.Sprintf("• %s %s %s: %s",
			o.Transaction.ComplexName,
			format.Area(o.Transaction.ExclusiveArea),
			format.Won(o.Transaction.Price),
			strings.Join(parts, ", "),
		))
	}
	vars.summary = strings.Join(summary, "\n")

	if input.Batched {
		first := input.Outcomes[0].EvaluatedAt
		last := latest.EvaluatedAt
		if !first.IsZero() && !last.IsZero() {
			vars.periodLabel = fmt.Sprintf("%s ~ %s", first.Format("01-02"), last.Format("01-02"))
		}
	}
	return vars
}

func describeReason(r domain.Reason) string {
	switch v := r.(type) {
	case domain.ThresholdReason:
		direction := "이하"
		if v.Operator == domain.ThresholdAbove {
			direction = "이상"
		}
		return fmt.Sprintf("설정가 %s %s (차이 %s)", format.Won(v.Threshold), direction, format.Won(v.Magnitude().IntPart()))
	case domain.ChangeReason:
		if v.Baseline == 0 {
			return fmt.Sprintf("%s 기준가 없음, 신규 가격 %s", periodLabel(v.Period), format.Won(v.Price))
		}
		return fmt.Sprintf("%s 대비 %s (기준 %s)", periodLabel(v.Period), format.Percent(v.Change), format.Won(v.Baseline))
	case domain.NewListingReason:
		return "신규 거래"
	default:
		panic(fmt.Sprintf("unknown reason %T", r))
	}
}

func periodLabel(p domain.Period) string {
	switch p {
	case domain.PeriodWeekly:
		return "전주"
	case domain.PeriodMonthly:
		return "전월"
	default:
		return "전일"
	}
}

func transactionTypeLabel(t domain.TransactionType) string {
	switch t {
	case domain.TransactionSale:
		return "매매"
	case domain.TransactionLease:
		return "전세"
	case domain.TransactionRent:
		return "월세"
	}
	return string(t)
}
