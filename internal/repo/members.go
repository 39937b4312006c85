package repo

import (
	"context"
	"database/sql"

	"taskline/internal/domain"
)

// AddMember inserts a membership row. Duplicates are signaled by the
// UNIQUE(list_id,user_id) constraint: INSERT OR IGNORE affecting zero rows
// means the pair already exists and false is returned. There is
// deliberately no existence pre-check, so two concurrent adds of the same
// user cannot both succeed.
func (r Repo) AddMember(ctx context.Context, tx *sql.Tx, listID, userID string, role domain.Role, now string) (bool, error) {
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return r.DB.ExecContext(ctx, query, args...)
	}
	res, err := exec(`INSERT OR IGNORE INTO collab_members(list_id, user_id, role, created_at) VALUES (?,?,?,?)`,
		listID, userID, string(role), now)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r Repo) RemoveMember(ctx context.Context, listID, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM collab_members WHERE list_id=? AND user_id=?`, listID, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RemoveAllMembers is the cascade helper used by list deletion. Zero rows
// removed is success, so retries of a partially-deleted list do not error.
func (r Repo) RemoveAllMembers(ctx context.Context, tx *sql.Tx, listID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM collab_members WHERE list_id=?`, listID)
	return err
}

// ListMembers returns the roster joined with directory records, owner first
// then by display name.
func (r Repo) ListMembers(ctx context.Context, listID string) ([]domain.Member, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT m.list_id, m.user_id, m.role, m.created_at, u.username, u.name, u.email
FROM collab_members m
JOIN users u ON u.id = m.user_id
WHERE m.list_id=?
ORDER BY CASE WHEN m.role='owner' THEN 0 ELSE 1 END, u.name COLLATE NOCASE`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Member
	for rows.Next() {
		var m domain.Member
		var role string
		if err := rows.Scan(&m.ListID, &m.UserID, &role, &m.CreatedAt, &m.Username, &m.Name, &m.Email); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		res = append(res, m)
	}
	return res, rows.Err()
}

// RoleOf returns the user's role on a list, or ErrNotFound if no membership
// exists.
func (r Repo) RoleOf(ctx context.Context, listID, userID string) (domain.Role, error) {
	var role string
	err := r.DB.QueryRowContext(ctx, `SELECT role FROM collab_members WHERE list_id=? AND user_id=?`, listID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.Role(role), nil
}

func (r Repo) IsMember(ctx context.Context, listID, userID string) (bool, error) {
	_, err := r.RoleOf(ctx, listID, userID)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r Repo) IsOwner(ctx context.Context, listID, userID string) (bool, error) {
	role, err := r.RoleOf(ctx, listID, userID)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == domain.RoleOwner, nil
}

// HasAtLeast compares the user's role rank against the required role.
// A user without a membership never passes.
func (r Repo) HasAtLeast(ctx context.Context, listID, userID string, required domain.Role) (bool, error) {
	role, err := r.RoleOf(ctx, listID, userID)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role.Rank() >= required.Rank(), nil
}

func (r Repo) CountMembers(ctx context.Context, listID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM collab_members WHERE list_id=?`, listID).Scan(&n)
	return n, err
}

// OwnerOf returns the user id holding the owner role on a list.
func (r Repo) OwnerOf(ctx context.Context, listID string) (string, error) {
	var userID string
	err := r.DB.QueryRowContext(ctx, `SELECT user_id FROM collab_members WHERE list_id=? AND role='owner'`, listID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return userID, err
}
