package repo

import (
	"context"
	"database/sql"

	"taskline/internal/domain"
)

const listColumns = `id, name, created_at, updated_at`

func scanList(row *sql.Row) (domain.CollabList, error) {
	var l domain.CollabList
	err := row.Scan(&l.ID, &l.Name, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	return l, err
}

// InsertList writes the list row inside the caller's transaction. The owner
// membership must be inserted in the same transaction; a list without an
// owner membership is an invalid state.
func (r Repo) InsertList(ctx context.Context, tx *sql.Tx, l domain.CollabList) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO collab_lists(id, name, created_at, updated_at) VALUES (?,?,?,?)`,
		l.ID, l.Name, l.CreatedAt, l.UpdatedAt)
	return err
}

func (r Repo) GetList(ctx context.Context, id string) (domain.CollabList, error) {
	return scanList(r.DB.QueryRowContext(ctx, `SELECT `+listColumns+` FROM collab_lists WHERE id=?`, id))
}

// ListsOwnedBy returns lists where the user holds the owner role, newest
// first.
func (r Repo) ListsOwnedBy(ctx context.Context, userID string) ([]domain.CollabList, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT l.id, l.name, l.created_at, l.updated_at
FROM collab_lists l
JOIN collab_members m ON m.list_id = l.id
WHERE m.user_id=? AND m.role='owner'
ORDER BY l.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLists(rows)
}

// ListsForMember returns lists where the user holds any role, newest first.
func (r Repo) ListsForMember(ctx context.Context, userID string) ([]domain.CollabList, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT l.id, l.name, l.created_at, l.updated_at
FROM collab_lists l
JOIN collab_members m ON m.list_id = l.id
WHERE m.user_id=?
ORDER BY l.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLists(rows)
}

func collectLists(rows *sql.Rows) ([]domain.CollabList, error) {
	var res []domain.CollabList
	for rows.Next() {
		var l domain.CollabList
		if err := rows.Scan(&l.ID, &l.Name, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// RenameList updates the name; the owner gate lives in the service.
func (r Repo) RenameList(ctx context.Context, id, newName, now string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE collab_lists SET name=?, updated_at=? WHERE id=?`, newName, now, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteListRow removes only the list row. Cascades over memberships and
// tasks are orchestrated by the service.
func (r Repo) DeleteListRow(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM collab_lists WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
