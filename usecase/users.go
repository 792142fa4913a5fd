package usecase

import (
	"context"
	"errors"
	"time"

	"main/model"
	"main/utils"
)

var ErrEmailTaken = errors.New("email already registered")

// UserStore is what the auth flows need from user persistence. The Mongo
// repository satisfies it in production; tests use an in-memory fake.
type UserStore interface {
	Insert(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByProvider(ctx context.Context, provider, providerID string) (*model.User, error)
	UpdateTwoFactor(ctx context.Context, userID string, enabled bool, methods []string) error
	SetAuthenticatorSecret(ctx context.Context, userID, secret string) error
	AppendLoginAttempt(ctx context.Context, userID string, attempt model.LoginAttempt) error
	AddKnownDevice(ctx context.Context, userID, deviceKey string) error
	SetLoginNotifications(ctx context.Context, userID string, enabled bool) error
	LinkProvider(ctx context.Context, userID, provider, providerID string) error
}

type UserService struct {
	Users UserStore
}

// PromotePending turns a verified pending registration into a real user.
// The caller deletes the pending record once this returns successfully.
func (s *UserService) PromotePending(ctx context.Context, pending *model.PendingRegistration) (*model.User, error) {
	if existing, err := s.Users.FindByEmail(ctx, pending.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	role := pending.Role
	if role == "" {
		role = "customer"
	}

	user := &model.User{
		UserID:             utils.GenerateUserID(),
		FirstName:          pending.FirstName,
		LastName:           pending.LastName,
		Email:              pending.Email,
		Password:           pending.Password,
		Role:               role,
		CreatedAt:          time.Now(),
		LoginNotifications: true,
	}

	if err := s.Users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// FindOrCreateFromOAuth resolves the user for a completed OAuth callback,
// linking the provider id onto an existing account with the same email, or
// creating a fresh account when none exists.
func (s *UserService) FindOrCreateFromOAuth(ctx context.Context, profile OAuthIdentity) (*model.User, error) {
	user, err := s.Users.FindByProvider(ctx, profile.Provider, profile.ProviderID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	if profile.Email != "" {
		user, err = s.Users.FindByEmail(ctx, profile.Email)
		if err != nil {
			return nil, err
		}
		if user != nil {
			if err := s.Users.LinkProvider(ctx, user.UserID, profile.Provider, profile.ProviderID); err != nil {
				return nil, err
			}
			return user, nil
		}
	}

	user = &model.User{
		UserID:             utils.GenerateUserID(),
		FirstName:          profile.FirstName,
		LastName:           profile.LastName,
		Email:              profile.Email,
		Role:               "customer",
		CreatedAt:          time.Now(),
		LoginNotifications: true,
	}
	switch profile.Provider {
	case "google":
		user.GoogleID = profile.ProviderID
	case "github":
		user.GithubID = profile.ProviderID
	}

	if err := s.Users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// OAuthIdentity mirrors the resolved provider profile without importing the
// oauth service package.
type OAuthIdentity struct {
	Provider   string
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
}

// EnableMethod adds a 2FA channel and flags 2FA on.
func (s *UserService) EnableMethod(ctx context.Context, user *model.User, method string) error {
	if user.HasTwoFactorMethod(method) {
		return nil
	}
	methods := append(append([]string{}, user.TwoFactorMethods...), method)
	return s.Users.UpdateTwoFactor(ctx, user.UserID, true, methods)
}

// DisableMethod removes a 2FA channel. Removing the last one clears the
// enabled flag.
func (s *UserService) DisableMethod(ctx context.Context, user *model.User, method string) error {
	methods := make([]string, 0, len(user.TwoFactorMethods))
	for _, m := range user.TwoFactorMethods {
		if m != method {
			methods = append(methods, m)
		}
	}
	return s.Users.UpdateTwoFactor(ctx, user.UserID, len(methods) > 0, methods)
}

// RecordLoginAttempt appends to the user's history; new successful devices
// are remembered.
func (s *UserService) RecordLoginAttempt(ctx context.Context, userID string, attempt model.LoginAttempt, deviceKey string) error {
	if err := s.Users.AppendLoginAttempt(ctx, userID, attempt); err != nil {
		return err
	}
	if attempt.Success && deviceKey != "" {
		return s.Users.AddKnownDevice(ctx, userID, deviceKey)
	}
	return nil
}
