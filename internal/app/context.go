package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskline/internal/domain"
	"taskline/internal/repo"
)

// ResolveUser picks the acting user for a CLI invocation. It prefers the
// override (an id, username, or email), then a single-user database.
func ResolveUser(ctx context.Context, userOverride string, r repo.Repo) (domain.User, error) {
	if userOverride != "" {
		if u, err := r.GetUser(ctx, userOverride); err == nil {
			return u, nil
		} else if !errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, err
		}
		u, err := r.FindUserByUsernameOrEmail(ctx, userOverride)
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, fmt.Errorf("user %q not found; register with tl user add", userOverride)
		}
		return u, err
	}
	users, err := r.ListUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	switch len(users) {
	case 0:
		return domain.User{}, fmt.Errorf("no users registered; register with tl user add")
	case 1:
		return users[0], nil
	default:
		return domain.User{}, fmt.Errorf("user not specified; use --user")
	}
}

// RegisterUser inserts a new directory user. Username and email collide
// case-insensitively with existing rows via the unique indexes.
func RegisterUser(ctx context.Context, r repo.Repo, username, email, name string) (domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if username == "" {
		return domain.User{}, fmt.Errorf("username is required")
	}
	if email == "" {
		return domain.User{}, fmt.Errorf("email is required")
	}
	if name == "" {
		name = username
	}
	u := domain.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.InsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
