package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"taskline/internal/access"
	"taskline/internal/domain"
)

const taskColumns = `id, owner_user_id, title, description, priority, status, due_date, collab_list_id, archived, created_at, updated_at`

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return r.DB.ExecContext(ctx, query, args...)
	}
	_, err := exec(`INSERT INTO tasks(id, owner_user_id, title, description, priority, status, due_date, collab_list_id, archived, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.OwnerUserID, t.Title, nullable(t.Description), t.Priority, t.Status,
		nullableStringPtr(t.DueDate), nullableStringPtr(t.CollabListID), boolToInt(t.Archived), t.CreatedAt, t.UpdatedAt)
	return err
}

func scanTaskRow(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var description, dueDate, listID sql.NullString
	var archived int
	err := scan(&t.ID, &t.OwnerUserID, &t.Title, &description, &t.Priority, &t.Status,
		&dueDate, &listID, &archived, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if description.Valid {
		t.Description = description.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if listID.Valid {
		t.CollabListID = &listID.String
	}
	t.Archived = archived != 0
	return t, nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTaskRow(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

// TaskFilters scopes a listing to either a personal owner or a
// collaborative list. Exactly one of OwnerID/ListID should be set.
type TaskFilters struct {
	OwnerID         string
	ListID          string
	Status          string
	Priority        string
	IncludeArchived bool
	ArchivedOnly    bool
}

// ListTasks returns tasks matching scope and filters, newest created_at
// first. Archived tasks are excluded unless IncludeArchived or ArchivedOnly
// is set.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ListID != "" {
		clauses = append(clauses, "collab_list_id=?")
		args = append(args, f.ListID)
	} else {
		clauses = append(clauses, "owner_user_id=?", "collab_list_id IS NULL")
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	switch {
	case f.ArchivedOnly:
		clauses = append(clauses, "archived=1")
	case !f.IncludeArchived:
		clauses = append(clauses, "archived=0")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// SearchTasks matches personal tasks whose title or description contains
// the term, case-insensitively. Archived tasks are excluded.
func (r Repo) SearchTasks(ctx context.Context, ownerID, term string) ([]domain.Task, error) {
	pattern := "%" + term + "%"
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+taskColumns+` FROM tasks
WHERE owner_user_id=? AND collab_list_id IS NULL
  AND (title LIKE ? COLLATE NOCASE OR description LIKE ? COLLATE NOCASE)
  AND archived=0
ORDER BY created_at DESC, id DESC`, ownerID, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]domain.Task, error) {
	var res []domain.Task
	for rows.Next() {
		t, err := scanTaskRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// TaskPatch holds the updatable subset of task fields. Nil means "leave
// unchanged"; for Description and DueDate a pointer to the empty string
// clears the column.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
	DueDate     *string
	Archived    *bool
}

func (p TaskPatch) empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Status == nil && p.DueDate == nil && p.Archived == nil
}

// UpdateTask applies a patch. An empty patch returns access.ErrNoFields
// without touching updated_at; any non-empty patch refreshes updated_at.
func (r Repo) UpdateTask(ctx context.Context, id string, p TaskPatch, now string) (domain.Task, error) {
	if p.empty() {
		return domain.Task{}, access.ErrNoFields
	}
	var fields []string
	var args []any
	if p.Title != nil {
		fields = append(fields, "title=?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*p.Description))
	}
	if p.Priority != nil {
		fields = append(fields, "priority=?")
		args = append(args, *p.Priority)
	}
	if p.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *p.Status)
	}
	if p.DueDate != nil {
		fields = append(fields, "due_date=?")
		args = append(args, nullable(*p.DueDate))
	}
	if p.Archived != nil {
		fields = append(fields, "archived=?")
		args = append(args, boolToInt(*p.Archived))
	}
	fields = append(fields, "updated_at=?")
	args = append(args, now, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE tasks SET %s WHERE id=?`, strings.Join(fields, ", ")), args...)
	if err != nil {
		return domain.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Task{}, ErrNotFound
	}
	return r.GetTask(ctx, id)
}

// SetTaskArchived toggles the soft-hidden flag; archived tasks stay in
// storage until explicitly deleted.
func (r Repo) SetTaskArchived(ctx context.Context, id string, archived bool, now string) (domain.Task, error) {
	return r.UpdateTask(ctx, id, TaskPatch{Archived: &archived}, now)
}

func (r Repo) DeleteTask(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteAllTasksForList removes every task scoped to the list. Zero matches
// is success; list deletion retries must not fail here.
func (r Repo) DeleteAllTasksForList(ctx context.Context, listID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE collab_list_id=?`, listID)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
