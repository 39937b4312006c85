package domain

// Role of a membership within a collaborative list. The owner role is
// established at list creation and never reassigned.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleMember Role = "member"
)

// Rank returns the role's position in the permission hierarchy,
// owner(3) > editor(2) > member(1). Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

func (r Role) Valid() bool { return r.Rank() > 0 }

// Task priority labels, kept as the stored data spells them.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Task belongs to exactly one scope: personal (CollabListID nil) or a
// collaborative list. OwnerUserID is the creator and gates access only for
// personal tasks; once a task is in a list, any member may read or write it.
type Task struct {
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

// CollabList carries no owner column; ownership is the membership row
// holding the owner role.
type CollabList struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Membership struct {
	ListID    string `json:"list_id"`
	UserID    string `json:"user_id"`
	Role      Role   `json:"role" enum:"owner,editor,member"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Member is a membership joined with its directory record, as returned by
// the roster queries.
type Member struct {
	Membership
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ListID     string `json:"list_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	UserID     string `json:"user_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
