package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/NasaVasa/aptwatch/internal/domain"
)

type UserUsecase struct {
	users domain.UserRepository
}

func NewUserUsecase(users domain.UserRepository) *UserUsecase {
	return &UserUsecase{users: users}
}

// StartOrGetUser registers a telegram account on first contact. Later calls refresh the
// stored username when the account's handle changed.
func (u *UserUsecase) StartOrGetUser(ctx context.Context, telegramUserID int64, username string) (*domain.User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")

	user, err := u.users.GetByTelegramID(ctx, telegramUserID)
	if err == nil {
		if username != "" && username != user.Username {
			if err := u.users.UpdateUsername(ctx, user.ID, username); err != nil {
				return nil, err
			}
			user.Username = username
		}
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	newUser := &domain.User{TelegramUserID: telegramUserID, Username: username}
	if err := u.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Registered concurrently by the bot and the API.
			return u.users.GetByTelegramID(ctx, telegramUserID)
		}
		return nil, err
	}
	return newUser, nil
}

func (u *UserUsecase) GetUser(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotRegistered
		}
		return nil, err
	}
	return user, nil
}
