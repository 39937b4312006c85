package tasklinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Taskline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Task represents the API task model.
type Task struct {
	ID           string  `json:"id"`
	OwnerUserID  string  `json:"owner_user_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Priority     string  `json:"priority"`
	Status       string  `json:"status"`
	DueDate      *string `json:"due_date,omitempty"`
	CollabListID *string `json:"collab_list_id,omitempty"`
	Archived     bool    `json:"archived"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// List represents a collaborative list.
type List struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwnerID     string `json:"owner_id"`
	OwnerName   string `json:"owner_name,omitempty"`
	IsOwner     bool   `json:"is_owner"`
	MemberCount int    `json:"member_count,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Member represents a list membership joined with its user record.
type Member struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

// User represents a directory record.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
}

// TaskFilters narrow ListTasks.
type TaskFilters struct {
	CollabListID    string
	Status          string
	Priority        string
	Search          string
	IncludeArchived bool
	ArchivedOnly    bool
}

// Me returns the authenticated user's directory record.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "v1/me", nil, &resp)
	return resp.User, err
}

// CreateList creates a collaborative list owned by the caller.
func (c *Client) CreateList(ctx context.Context, name string) (List, error) {
	var resp struct {
		List List `json:"list"`
	}
	err := c.do(ctx, http.MethodPost, "v1/collab_lists", map[string]any{"name": name}, &resp)
	return resp.List, err
}

// Lists returns every list the caller owns or belongs to.
func (c *Client) Lists(ctx context.Context) ([]List, error) {
	var resp struct {
		Lists []List `json:"lists"`
	}
	err := c.do(ctx, http.MethodGet, "v1/collab_lists", nil, &resp)
	return resp.Lists, err
}

// RenameList renames a list; caller must be the owner.
func (c *Client) RenameList(ctx context.Context, listID, name string) (List, error) {
	var resp struct {
		List List `json:"list"`
	}
	endpoint := fmt.Sprintf("v1/collab_lists/%s", url.PathEscape(listID))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{"name": name}, &resp)
	return resp.List, err
}

// DeleteList deletes a list and its tasks; caller must be the owner.
func (c *Client) DeleteList(ctx context.Context, listID string) error {
	endpoint := fmt.Sprintf("v1/collab_lists/%s", url.PathEscape(listID))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// AddMember invites a user by username or email.
func (c *Client) AddMember(ctx context.Context, listID, usernameOrEmail string) (Member, error) {
	var resp struct {
		Member Member `json:"member"`
	}
	endpoint := fmt.Sprintf("v1/collab_lists/%s/members", url.PathEscape(listID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"username_or_email": usernameOrEmail}, &resp)
	return resp.Member, err
}

// RemoveMember removes a member; caller must be the owner.
func (c *Client) RemoveMember(ctx context.Context, listID, userID string) error {
	endpoint := fmt.Sprintf("v1/collab_lists/%s/members/%s", url.PathEscape(listID), url.PathEscape(userID))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// Members returns the list roster, owner first.
func (c *Client) Members(ctx context.Context, listID string) ([]Member, error) {
	var resp struct {
		Members []Member `json:"members"`
	}
	endpoint := fmt.Sprintf("v1/collab_lists/%s/members", url.PathEscape(listID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Members, err
}

// CreateTask creates a task; pass listID to scope it to a collaborative list.
func (c *Client) CreateTask(ctx context.Context, title, listID string) (Task, error) {
	body := map[string]any{"title": title}
	if listID != "" {
		body["collab_list_id"] = listID
	}
	var resp struct {
		Task Task `json:"task"`
	}
	err := c.do(ctx, http.MethodPost, "v1/tasks", body, &resp)
	return resp.Task, err
}

// ListTasks returns the caller's visible tasks with optional filters.
func (c *Client) ListTasks(ctx context.Context, f TaskFilters) ([]Task, error) {
	q := url.Values{}
	if f.CollabListID != "" {
		q.Set("collab_list_id", f.CollabListID)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.IncludeArchived {
		q.Set("include_archived", "true")
	}
	if f.ArchivedOnly {
		q.Set("archived_only", "true")
	}
	endpoint := "v1/tasks"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Tasks []Task `json:"tasks"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Tasks, err
}

// GetTask fetches a task by id.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp struct {
		Task Task `json:"task"`
	}
	endpoint := fmt.Sprintf("v1/tasks/%s", url.PathEscape(id))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Task, err
}

// UpdateTask applies a partial update; nil map values are not supported, send
// only the fields to change.
func (c *Client) UpdateTask(ctx context.Context, id string, fields map[string]any) (Task, error) {
	var resp struct {
		Task Task `json:"task"`
	}
	endpoint := fmt.Sprintf("v1/tasks/%s", url.PathEscape(id))
	err := c.do(ctx, http.MethodPut, endpoint, fields, &resp)
	return resp.Task, err
}

// SetTaskStatus updates only the status field.
func (c *Client) SetTaskStatus(ctx context.Context, id, status string) (Task, error) {
	var resp struct {
		Task Task `json:"task"`
	}
	endpoint := fmt.Sprintf("v1/tasks/%s/status", url.PathEscape(id))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{"status": status}, &resp)
	return resp.Task, err
}

// ArchiveTask soft-hides a task from default listings.
func (c *Client) ArchiveTask(ctx context.Context, id string) (Task, error) {
	return c.archive(ctx, id, "archive")
}

// UnarchiveTask restores an archived task.
func (c *Client) UnarchiveTask(ctx context.Context, id string) (Task, error) {
	return c.archive(ctx, id, "unarchive")
}

func (c *Client) archive(ctx context.Context, id, action string) (Task, error) {
	var resp struct {
		Task Task `json:"task"`
	}
	endpoint := fmt.Sprintf("v1/tasks/%s/%s", url.PathEscape(id), action)
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp.Task, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("v1/tasks/%s", url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if json.Unmarshal(b, &envelope) == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
			apiErr.Code = envelope.Code
		} else {
			apiErr.Message = string(b)
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
