package usecase

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/NasaVasa/aptwatch/internal/domain"
)

var (
	ErrUserNotRegistered = errors.New("user not registered")
	ErrAlertNotFound     = errors.New("alert not found")
	ErrComplexNotFound   = errors.New("complex not found")
)

type AlertUsecase struct {
	users     domain.UserRepository
	alerts    domain.AlertRuleStore
	complexes domain.ComplexDirectory
	watcher   RuleWatcher
}

func NewAlertUsecase(users domain.UserRepository, alerts domain.AlertRuleStore, complexes domain.ComplexDirectory, watcher RuleWatcher) *AlertUsecase {
	return &AlertUsecase{users: users, alerts: alerts, complexes: complexes, watcher: watcher}
}

// UserIDForTelegram resolves a registered telegram account to its user id.
func (u *AlertUsecase) UserIDForTelegram(ctx context.Context, telegramUserID int64) (uint, error) {
	user, err := u.users.GetByTelegramID(ctx, telegramUserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, ErrUserNotRegistered
		}
		return 0, err
	}
	return user.ID, nil
}

func (u *AlertUsecase) CreateCondition(ctx context.Context, userID uint, input domain.PriceAlertCondition) (*domain.PriceAlertCondition, error) {
	if _, err := u.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotRegistered
		}
		return nil, err
	}

	condition := domain.PriceAlertCondition{
		UserID:          userID,
		Name:            strings.TrimSpace(input.Name),
		IsActive:        true,
		Version:         1,
		Criteria:        normalizeCriteria(input.Criteria),
		AlertConditions: input.AlertConditions,
	}
	if err := condition.Validate(); err != nil {
		return nil, err
	}
	if err := u.resolveComplex(ctx, &condition.Criteria); err != nil {
		return nil, err
	}

	if err := u.alerts.Create(ctx, &condition); err != nil {
		return nil, err
	}
	if u.watcher != nil {
		u.watcher.RequestRefresh()
	}
	return &condition, nil
}

func (u *AlertUsecase) ListConditions(ctx context.Context, userID uint) ([]domain.PriceAlertCondition, error) {
	return u.alerts.ListByUser(ctx, userID)
}

func (u *AlertUsecase) EnableCondition(ctx context.Context, userID uint, conditionID uint) error {
	return u.setActive(ctx, userID, conditionID, true)
}

func (u *AlertUsecase) DisableCondition(ctx context.Context, userID uint, conditionID uint) error {
	return u.setActive(ctx, userID, conditionID, false)
}

func (u *AlertUsecase) DeleteCondition(ctx context.Context, userID uint, conditionID uint) error {
	if err := u.alerts.Delete(ctx, userID, conditionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrAlertNotFound
		}
		return err
	}
	if u.watcher != nil {
		u.watcher.Revoke(conditionID, math.MaxUint64)
	}
	return nil
}

func (u *AlertUsecase) setActive(ctx context.Context, userID uint, conditionID uint, active bool) error {
	version, err := u.alerts.SetActive(ctx, userID, conditionID, active)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrAlertNotFound
		}
		return err
	}
	if u.watcher == nil {
		return nil
	}
	if active {
		u.watcher.RequestRefresh()
	} else {
		u.watcher.Revoke(conditionID, version)
	}
	return nil
}

// resolveComplex fills the complex name and region from the directory when the
// criteria reference a complex by id.
func (u *AlertUsecase) resolveComplex(ctx context.Context, criteria *domain.Criteria) error {
	if criteria.ComplexID == nil || u.complexes == nil {
		return nil
	}
	info, err := u.complexes.GetComplex(ctx, *criteria.ComplexID)
	if err != nil {
		if errors.Is(err, domain.ErrComplexNotFound) {
			return ErrComplexNotFound
		}
		return err
	}
	if criteria.ComplexName == "" {
		criteria.ComplexName = info.Name
	}
	if len(criteria.RegionCodes) == 0 && info.RegionCode != "" {
		criteria.RegionCodes = []string{info.RegionCode}
	}
	return nil
}

func normalizeCriteria(c domain.Criteria) domain.Criteria {
	c.ComplexName = strings.TrimSpace(c.ComplexName)
	codes := make([]string, 0, len(c.RegionCodes))
	for _, code := range c.RegionCodes {
		if trimmed := strings.TrimSpace(code); trimmed != "" {
			codes = append(codes, trimmed)
		}
	}
	c.RegionCodes = codes
	if len(c.RegionCodes) == 0 {
		c.RegionCodes = nil
	}
	return c
}
