package repo

import (
	"context"
	"database/sql"
	"strings"

	"taskline/internal/domain"
)

// LatestEvents returns audit events newest first, optionally filtered by
// list, type, or acting user.
func (r Repo) LatestEvents(ctx context.Context, limit int, listID, evtType, userID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if listID != "" {
		clauses = append(clauses, "list_id=?")
		args = append(args, listID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if userID != "" {
		clauses = append(clauses, "user_id=?")
		args = append(args, userID)
	}
	query := `SELECT id, ts, type, list_id, entity_kind, entity_id, user_id, payload_json FROM events WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var listID, entityID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &listID, &e.EntityKind, &entityID, &e.UserID, &payload); err != nil {
			return nil, err
		}
		if listID.Valid {
			e.ListID = listID.String
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
