package identity

import (
	"context"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/zange-app/zange/backend/internal/apperrors"
	"github.com/zange-app/zange/backend/internal/local/store"
	"github.com/zange-app/zange/backend/pkg/normalize"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const minPasswordLength = 8

// SignUp registers a local account and makes it the active user.
func (r *Resolver) SignUp(ctx context.Context, email, password, nickname string) (*store.User, error) {
	email = normalize.Email(email)
	if email == "" {
		return nil, apperrors.Invalid("email", "required")
	}
	if normalize.Length(password) < minPasswordLength {
		return nil, apperrors.Invalid("password", "must be at least 8 characters")
	}
	if _, ok, err := r.store.UserByEmail(ctx, email); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if nickname == "" {
		nickname = email
	}
	u := store.User{
		ID:           r.newID(),
		Email:        email,
		PasswordHash: string(hash),
		Profile:      store.Profile{Nickname: nickname, Avatar: store.DefaultAvatar},
		Following:    []string{},
		Followers:    []string{},
	}

	users, err := r.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveUsers(ctx, append(users, u)); err != nil {
		return nil, err
	}
	if err := r.store.SaveProfile(ctx, email, u.Profile); err != nil {
		return nil, err
	}
	if err := r.store.SetActiveUserID(ctx, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignIn checks a local password. Shadow users have no password and cannot
// sign in this way.
func (r *Resolver) SignIn(ctx context.Context, email, password string) (*store.User, error) {
	u, ok, err := r.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !ok || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
		// Older clients stored the password itself; it is hashed on first use.
		if subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(password)) != 1 {
			return nil, ErrInvalidCredentials
		}
		if u, err = r.rehashPassword(ctx, u.ID, password); err != nil {
			return nil, err
		}
	} else if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := r.store.SetActiveUserID(ctx, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Resolver) rehashPassword(ctx context.Context, userID, password string) (store.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, err
	}
	users, err := r.store.Users(ctx)
	if err != nil {
		return store.User{}, err
	}
	u := findUser(users, userID)
	if u == nil {
		return store.User{}, apperrors.NotFound("user", userID)
	}
	u.PasswordHash = string(hash)
	if err := r.store.SaveUsers(ctx, users); err != nil {
		return store.User{}, err
	}
	return *u, nil
}

// SignOut clears both the local session and the cached server owner.
func (r *Resolver) SignOut(ctx context.Context) error {
	if err := r.store.SetActiveUserID(ctx, ""); err != nil {
		return err
	}
	return r.store.SetActiveOwner(ctx, "")
}

// UpdateProfile writes p to the user record and its namespaced profile.
func (r *Resolver) UpdateProfile(ctx context.Context, userID string, p store.Profile) (*store.User, error) {
	users, err := r.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	u := findUser(users, userID)
	if u == nil {
		return nil, apperrors.NotFound("user", userID)
	}
	if p.Avatar == "" {
		p.Avatar = store.DefaultAvatar
	}
	u.Profile = p
	if err := r.store.SaveUsers(ctx, users); err != nil {
		return nil, err
	}
	if u.Email != "" {
		if err := r.store.SaveProfile(ctx, u.Email, p); err != nil {
			return nil, err
		}
	}
	updated := *u
	return &updated, nil
}
