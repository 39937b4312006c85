package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"taskline/internal/access"
	"taskline/internal/domain"
	"taskline/internal/events"
	"taskline/internal/repo"
)

// TaskCreateOptions are parameters for creating a task. Zero-valued
// Priority and Status fall back to the service's configured defaults,
// then Medium/pending.
type TaskCreateOptions struct {
	OwnerUserID  string
	Title        string
	Description  string
	Priority     string
	Status       string
	DueDate      string
	CollabListID string
}

func (s Service) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Task{}, access.ValidationError{Field: "title"}
	}
	if opts.Priority == "" {
		opts.Priority = s.Defaults.Priority
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(opts.Priority) {
		return domain.Task{}, access.ValidationError{Field: "priority", Reason: "must be Low, Medium or High"}
	}
	if opts.Status == "" {
		opts.Status = s.Defaults.Status
	}
	if opts.Status == "" {
		opts.Status = domain.StatusPending
	}
	if !domain.ValidStatus(opts.Status) {
		return domain.Task{}, access.ValidationError{Field: "status", Reason: "must be pending, in-progress or completed"}
	}
	if opts.CollabListID != "" {
		if _, err := s.EnsureListAccess(ctx, opts.CollabListID, opts.OwnerUserID, false); err != nil {
			return domain.Task{}, err
		}
	}
	now := s.nowString()
	t := domain.Task{
		ID:          uuid.New().String(),
		OwnerUserID: opts.OwnerUserID,
		Title:       title,
		Description: strings.TrimSpace(opts.Description),
		Priority:    opts.Priority,
		Status:      opts.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if opts.DueDate != "" {
		d := opts.DueDate
		t.DueDate = &d
	}
	if opts.CollabListID != "" {
		id := opts.CollabListID
		t.CollabListID = &id
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := s.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	listID := ""
	if t.CollabListID != nil {
		listID = *t.CollabListID
	}
	if err := s.Events.Append(ctx, tx, "task.created", listID, "task", t.ID, opts.OwnerUserID, events.EventPayload{"title": t.Title}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskQuery scopes and filters a task listing for one user.
type TaskQuery struct {
	CollabListID    string
	Status          string
	Priority        string
	Search          string
	IncludeArchived bool
	ArchivedOnly    bool
}

// Tasks lists tasks visible to the user. A collab_list_id scopes the query
// to that list after an access check; otherwise personal tasks are
// returned. Search applies to personal tasks only.
func (s Service) Tasks(ctx context.Context, userID string, q TaskQuery) ([]domain.Task, error) {
	if q.CollabListID != "" {
		if _, err := s.EnsureListAccess(ctx, q.CollabListID, userID, false); err != nil {
			return nil, err
		}
		return s.Repo.ListTasks(ctx, repo.TaskFilters{
			ListID:          q.CollabListID,
			Status:          q.Status,
			Priority:        q.Priority,
			IncludeArchived: q.IncludeArchived,
			ArchivedOnly:    q.ArchivedOnly,
		})
	}
	if q.Search != "" && !q.ArchivedOnly {
		return s.Repo.SearchTasks(ctx, userID, q.Search)
	}
	return s.Repo.ListTasks(ctx, repo.TaskFilters{
		OwnerID:         userID,
		Status:          q.Status,
		Priority:        q.Priority,
		IncludeArchived: q.IncludeArchived,
		ArchivedOnly:    q.ArchivedOnly,
	})
}

// GetTask returns a task after an access check.
func (s Service) GetTask(ctx context.Context, taskID, userID string) (domain.Task, error) {
	return s.EnsureTaskAccess(ctx, taskID, userID)
}

// TaskUpdate is the caller-facing patch; nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
	DueDate     *string
}

func (u TaskUpdate) empty() bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil &&
		u.Status == nil && u.DueDate == nil
}

// UpdateTask applies a patch to a task the user can access. An empty patch
// is a distinct no-op failure and leaves updated_at untouched.
func (s Service) UpdateTask(ctx context.Context, taskID, userID string, u TaskUpdate) (domain.Task, error) {
	if _, err := s.EnsureTaskAccess(ctx, taskID, userID); err != nil {
		return domain.Task{}, err
	}
	if u.empty() {
		return domain.Task{}, access.ErrNoFields
	}
	patch := repo.TaskPatch{Description: u.Description, DueDate: u.DueDate}
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return domain.Task{}, access.ValidationError{Field: "title", Reason: "cannot be empty"}
		}
		patch.Title = &title
	}
	if u.Priority != nil {
		if !domain.ValidPriority(*u.Priority) {
			return domain.Task{}, access.ValidationError{Field: "priority", Reason: "must be Low, Medium or High"}
		}
		patch.Priority = u.Priority
	}
	if u.Status != nil {
		if !domain.ValidStatus(*u.Status) {
			return domain.Task{}, access.ValidationError{Field: "status", Reason: "must be pending, in-progress or completed"}
		}
		patch.Status = u.Status
	}
	t, err := s.Repo.UpdateTask(ctx, taskID, patch, s.nowString())
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.appendTaskEvent(ctx, t, "task.updated", userID, nil); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// SetTaskStatus updates only the status field.
func (s Service) SetTaskStatus(ctx context.Context, taskID, userID, status string) (domain.Task, error) {
	if status == "" {
		return domain.Task{}, access.ValidationError{Field: "status"}
	}
	return s.UpdateTask(ctx, taskID, userID, TaskUpdate{Status: &status})
}

// SetTaskArchived toggles the archived flag. Re-archiving an archived task
// succeeds and leaves the flag set.
func (s Service) SetTaskArchived(ctx context.Context, taskID, userID string, archived bool) (domain.Task, error) {
	if _, err := s.EnsureTaskAccess(ctx, taskID, userID); err != nil {
		return domain.Task{}, err
	}
	t, err := s.Repo.SetTaskArchived(ctx, taskID, archived, s.nowString())
	if err != nil {
		return domain.Task{}, err
	}
	evt := "task.archived"
	if !archived {
		evt = "task.unarchived"
	}
	if err := s.appendTaskEvent(ctx, t, evt, userID, nil); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask removes a task the user can access.
func (s Service) DeleteTask(ctx context.Context, taskID, userID string) error {
	t, err := s.EnsureTaskAccess(ctx, taskID, userID)
	if err != nil {
		return err
	}
	deleted, err := s.Repo.DeleteTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return repo.ErrNotFound
	}
	return s.appendTaskEvent(ctx, t, "task.deleted", userID, events.EventPayload{"title": t.Title})
}

func (s Service) appendTaskEvent(ctx context.Context, t domain.Task, evtType, userID string, payload events.EventPayload) error {
	listID := ""
	if t.CollabListID != nil {
		listID = *t.CollabListID
	}
	return s.Events.Append(ctx, nil, evtType, listID, "task", t.ID, userID, payload)
}
