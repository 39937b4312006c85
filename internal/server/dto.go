package server

import (
	"encoding/json"

	"taskline/internal/domain"
	"taskline/internal/service"
)

// Request payloads

type CreateListRequest struct {
	Name string `json:"name"`
}

type RenameListRequest struct {
	Name string `json:"name"`
}

type AddMemberRequest struct {
	UsernameOrEmail string `json:"username_or_email"`
}

type CreateTaskRequest struct {
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	Priority     *string `json:"priority,omitempty" enum:"Low,Medium,High"`
	Status       *string `json:"status,omitempty" enum:"pending,in-progress,completed"`
	DueDate      *string `json:"due_date,omitempty"`
	CollabListID *string `json:"collab_list_id,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty" enum:"Low,Medium,High"`
	Status      *string `json:"status,omitempty" enum:"pending,in-progress,completed"`
	DueDate     *string `json:"due_date,omitempty"`
}

type SetTaskStatusRequest struct {
	Status string `json:"status" enum:"pending,in-progress,completed"`
}

// Response payloads. Every body carries the success flag; mutations that
// return no entity carry only the flag and a message.

type ListResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	List    ListPayload `json:"list"`
}

type ListsResponse struct {
	Success bool          `json:"success"`
	Lists   []ListPayload `json:"lists"`
}

type ListDetailResponse struct {
	Success bool            `json:"success"`
	List    ListPayload     `json:"list"`
	Members []MemberPayload `json:"members"`
}

type MemberResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Member  MemberPayload `json:"member"`
}

type MembersResponse struct {
	Success bool            `json:"success"`
	Members []MemberPayload `json:"members"`
}

type TaskResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Task    TaskPayload `json:"task"`
}

type TasksResponse struct {
	Success bool          `json:"success"`
	Tasks   []TaskPayload `json:"tasks"`
	Count   int           `json:"count"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MeResponse struct {
	Success bool        `json:"success"`
	User    domain.User `json:"user"`
}

type EventsResponse struct {
	Success bool           `json:"success"`
	Events  []EventPayload `json:"events"`
}

type ListPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwnerID     string `json:"owner_id"`
	OwnerName   string `json:"owner_name,omitempty"`
	IsOwner     bool   `json:"is_owner"`
	MemberCount int    `json:"member_count,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type MemberPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role" enum:"owner,editor,member"`
	JoinedAt string `json:"joined_at" format:"date-time"`
}

type TaskPayload struct {
	ID           string  `json:"id"`
	OwnerUserID  string  `json:"owner_user_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Priority     string  `json:"priority" enum:"Low,Medium,High"`
	Status       string  `json:"status" enum:"pending,in-progress,completed"`
	DueDate      *string `json:"due_date,omitempty"`
	CollabListID *string `json:"collab_list_id,omitempty"`
	Archived     bool    `json:"archived"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	UpdatedAt    string  `json:"updated_at" format:"date-time"`
}

type EventPayload struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	ListID     string         `json:"list_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	UserID     string         `json:"user_id"`
	Payload    map[string]any `json:"payload"`
}

// Conversion helpers

func listPayload(s service.ListSummary) ListPayload {
	return ListPayload{
		ID:          s.List.ID,
		Name:        s.List.Name,
		OwnerID:     s.OwnerID,
		OwnerName:   s.OwnerName,
		IsOwner:     s.IsOwner,
		MemberCount: s.MemberCount,
		CreatedAt:   s.List.CreatedAt,
		UpdatedAt:   s.List.UpdatedAt,
	}
}

func memberPayload(m domain.Member) MemberPayload {
	return MemberPayload{
		UserID:   m.UserID,
		Username: m.Username,
		Name:     m.Name,
		Email:    m.Email,
		Role:     string(m.Role),
		JoinedAt: m.CreatedAt,
	}
}

func taskPayload(t domain.Task) TaskPayload {
	return TaskPayload{
		ID:           t.ID,
		OwnerUserID:  t.OwnerUserID,
		Title:        t.Title,
		Description:  t.Description,
		Priority:     t.Priority,
		Status:       t.Status,
		DueDate:      t.DueDate,
		CollabListID: t.CollabListID,
		Archived:     t.Archived,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func eventPayload(e domain.Event) EventPayload {
	return EventPayload{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		ListID:     e.ListID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		UserID:     e.UserID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func mapTasks(items []domain.Task) []TaskPayload {
	res := make([]TaskPayload, 0, len(items))
	for _, t := range items {
		res = append(res, taskPayload(t))
	}
	return res
}

func mapMembers(items []domain.Member) []MemberPayload {
	res := make([]MemberPayload, 0, len(items))
	for _, m := range items {
		res = append(res, memberPayload(m))
	}
	return res
}

// JSON helpers

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}

func stringOrEmpty(in *string) string {
	if in == nil {
		return ""
	}
	return *in
}
