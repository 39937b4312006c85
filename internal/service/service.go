package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"taskline/internal/access"
	"taskline/internal/domain"
	"taskline/internal/events"
	"taskline/internal/repo"
)

// Service is the collaboration layer: it owns the access-control policy and
// the transactional boundaries, and delegates row work to the repo.
type Service struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Log      *log.Logger
	Now      func() time.Time
	Defaults TaskDefaults
}

// TaskDefaults are workspace-configured fallbacks for new tasks. Empty
// fields fall back to Medium/pending.
type TaskDefaults struct {
	Priority string
	Status   string
}

func New(db *sql.DB, logger *log.Logger) Service {
	if logger == nil {
		logger = log.Default()
	}
	return Service{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Log:    logger,
		Now:    time.Now,
	}
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Service) nowString() string {
	return s.now().UTC().Format(time.RFC3339)
}

// ListAccess is the result of a successful list access check.
type ListAccess struct {
	List    domain.CollabList
	IsOwner bool
}

// EnsureListAccess verifies the user may act on a list. With ownerOnly the
// owner role is required; otherwise any membership grants access. Denials
// are repo.ErrNotFound (list missing) or access.ForbiddenError.
func (s Service) EnsureListAccess(ctx context.Context, listID, userID string, ownerOnly bool) (ListAccess, error) {
	l, err := s.Repo.GetList(ctx, listID)
	if err != nil {
		return ListAccess{}, err
	}
	role, err := s.Repo.RoleOf(ctx, listID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ListAccess{}, access.ForbiddenError{OwnerRequired: ownerOnly}
	}
	if err != nil {
		return ListAccess{}, err
	}
	isOwner := role == domain.RoleOwner
	if ownerOnly && !isOwner {
		return ListAccess{}, access.ForbiddenError{OwnerRequired: true}
	}
	return ListAccess{List: l, IsOwner: isOwner}, nil
}

// EnsureTaskAccess verifies the user may read or write a task. Tasks scoped
// to a collaborative list are open to every member of that list regardless
// of role; personal tasks only to their creator.
func (s Service) EnsureTaskAccess(ctx context.Context, taskID, userID string) (domain.Task, error) {
	t, err := s.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.CollabListID != nil {
		if _, err := s.EnsureListAccess(ctx, *t.CollabListID, userID, false); err != nil {
			return domain.Task{}, err
		}
		return t, nil
	}
	if t.OwnerUserID != userID {
		return domain.Task{}, access.ForbiddenError{}
	}
	return t, nil
}
