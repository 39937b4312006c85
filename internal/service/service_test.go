package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskline/internal/access"
	"taskline/internal/db"
	"taskline/internal/domain"
	"taskline/internal/migrate"
	"taskline/internal/repo"
	"taskline/internal/service"
)

type testEnv struct {
	Svc service.Service
	Ctx context.Context
	Now *time.Time
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := service.New(conn, nil)
	svc.Now = func() time.Time { return now }
	return testEnv{Svc: svc, Ctx: context.Background(), Now: &now}
}

func (env testEnv) addUser(t *testing.T, username string) domain.User {
	t.Helper()
	u := domain.User{
		ID:        "user-" + username,
		Username:  username,
		Email:     username + "@example.com",
		Name:      username,
		CreatedAt: env.Now.Format(time.RFC3339),
	}
	if err := env.Svc.Repo.InsertUser(env.Ctx, u); err != nil {
		t.Fatalf("insert user %s: %v", username, err)
	}
	return u
}

func TestCreateListSingleOwnerMembership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	l, err := env.Svc.CreateList(env.Ctx, "Groceries", alice.ID)
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	members, err := env.Svc.Members(env.Ctx, l.ID, alice.ID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected exactly one membership, got %d", len(members))
	}
	if members[0].UserID != alice.ID || members[0].Role != domain.RoleOwner {
		t.Fatalf("expected alice as owner, got %s/%s", members[0].UserID, members[0].Role)
	}
}

func TestCreateListRequiresName(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	if _, err := env.Svc.CreateList(env.Ctx, "   ", alice.ID); err == nil {
		t.Fatalf("expected validation error for blank name")
	}
}

func TestAddMemberConflicts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	l, err := env.Svc.CreateList(env.Ctx, "Groceries", alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "bob"); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	// duplicate add
	_, err = env.Svc.AddMember(env.Ctx, l.ID, alice.ID, bob.Email)
	var ce access.ConflictError
	if !errors.As(err, &ce) || ce.Reason != access.ConflictAlreadyMember {
		t.Fatalf("expected already_member conflict, got %v", err)
	}
	// self add
	_, err = env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "alice")
	if !errors.As(err, &ce) || ce.Reason != access.ConflictSelfReference {
		t.Fatalf("expected self_reference conflict, got %v", err)
	}
	// unknown user
	_, err = env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "nobody")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

func TestNonOwnerMemberCanInvite(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	env.addUser(t, "carol")
	l, _ := env.Svc.CreateList(env.Ctx, "Groceries", alice.ID)
	if _, err := env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Svc.AddMember(env.Ctx, l.ID, bob.ID, "carol"); err != nil {
		t.Fatalf("member invite should be allowed: %v", err)
	}
}

func TestOwnerNeverRemovesSelf(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	l, _ := env.Svc.CreateList(env.Ctx, "Solo", alice.ID)
	err := env.Svc.RemoveMember(env.Ctx, l.ID, alice.ID, alice.ID)
	var ce access.ConflictError
	if !errors.As(err, &ce) || ce.Reason != access.ConflictSelfRemoval {
		t.Fatalf("expected self_removal conflict even as sole member, got %v", err)
	}
}

func TestRemoveMemberOwnerGate(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	l, _ := env.Svc.CreateList(env.Ctx, "Groceries", alice.ID)
	_, _ = env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "bob")
	// bob is a plain member and may not remove anyone
	err := env.Svc.RemoveMember(env.Ctx, l.ID, bob.ID, alice.ID)
	var fe access.ForbiddenError
	if !errors.As(err, &fe) || !fe.OwnerRequired {
		t.Fatalf("expected owner-required forbidden, got %v", err)
	}
	if err := env.Svc.RemoveMember(env.Ctx, l.ID, alice.ID, bob.ID); err != nil {
		t.Fatalf("owner remove: %v", err)
	}
	if _, err := env.Svc.Members(env.Ctx, l.ID, bob.ID); err == nil {
		t.Fatalf("removed member should lose access")
	}
}

func TestRenameListOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	l, _ := env.Svc.CreateList(env.Ctx, "Groceries", alice.ID)
	_, _ = env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "bob")
	if _, err := env.Svc.RenameList(env.Ctx, l.ID, bob.ID, "Snacks"); err == nil {
		t.Fatalf("member rename should be forbidden")
	}
	renamed, err := env.Svc.RenameList(env.Ctx, l.ID, alice.ID, "Snacks")
	if err != nil {
		t.Fatalf("owner rename: %v", err)
	}
	if renamed.Name != "Snacks" {
		t.Fatalf("expected renamed list, got %q", renamed.Name)
	}
}

func TestDeleteListCascades(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	l, _ := env.Svc.CreateList(env.Ctx, "Groceries", alice.ID)
	_, _ = env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "bob")
	task, err := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{
		OwnerUserID: bob.ID, Title: "Milk", CollabListID: l.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Svc.DeleteList(env.Ctx, l.ID, alice.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	if _, err := env.Svc.Repo.GetList(env.Ctx, l.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("list row should be gone, got %v", err)
	}
	if _, err := env.Svc.Repo.GetTask(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("list tasks should be gone, got %v", err)
	}
	if n, _ := env.Svc.Repo.CountMembers(env.Ctx, l.ID); n != 0 {
		t.Fatalf("memberships should be gone, got %d", n)
	}
}

func TestTaskAccessByRole(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	mallory := env.addUser(t, "mallory")
	l, _ := env.Svc.CreateList(env.Ctx, "Shared", alice.ID)
	_, _ = env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "bob")
	task, err := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{
		OwnerUserID: alice.ID, Title: "Plan trip", CollabListID: l.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	// any member may read and write regardless of role
	if _, err := env.Svc.GetTask(env.Ctx, task.ID, bob.ID); err != nil {
		t.Fatalf("member read: %v", err)
	}
	if _, err := env.Svc.SetTaskStatus(env.Ctx, task.ID, bob.ID, domain.StatusInProgress); err != nil {
		t.Fatalf("member write: %v", err)
	}
	// non-member is denied
	if _, err := env.Svc.GetTask(env.Ctx, task.ID, mallory.ID); err == nil {
		t.Fatalf("non-member should be denied")
	}
	// personal tasks are creator-only
	personal, _ := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "Private"})
	if _, err := env.Svc.GetTask(env.Ctx, personal.ID, bob.ID); err == nil {
		t.Fatalf("personal task should be creator-only")
	}
}

func TestCreateTaskValidationAndDefaults(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	if _, err := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "  "}); err == nil {
		t.Fatalf("blank title should fail")
	}
	if _, err := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "x", Priority: "Urgent"}); err == nil {
		t.Fatalf("unknown priority should fail")
	}
	if _, err := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "x", Status: "done"}); err == nil {
		t.Fatalf("unknown status should fail")
	}
	t1, err := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "Defaults"})
	if err != nil {
		t.Fatal(err)
	}
	if t1.Priority != domain.PriorityMedium || t1.Status != domain.StatusPending {
		t.Fatalf("expected Medium/pending defaults, got %s/%s", t1.Priority, t1.Status)
	}
}

func TestEmptyUpdateIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	task, err := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "Stable"})
	if err != nil {
		t.Fatal(err)
	}
	*env.Now = env.Now.Add(time.Hour)
	_, err = env.Svc.UpdateTask(env.Ctx, task.ID, alice.ID, service.TaskUpdate{})
	if !errors.Is(err, access.ErrNoFields) {
		t.Fatalf("expected no-fields error, got %v", err)
	}
	fetched, _ := env.Svc.Repo.GetTask(env.Ctx, task.ID)
	if fetched.UpdatedAt != task.UpdatedAt {
		t.Fatalf("empty patch must not touch updated_at: %s vs %s", fetched.UpdatedAt, task.UpdatedAt)
	}
	// a real patch does refresh it
	title := "Renamed"
	updated, err := env.Svc.UpdateTask(env.Ctx, task.ID, alice.ID, service.TaskUpdate{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if updated.UpdatedAt == task.UpdatedAt {
		t.Fatalf("non-empty patch should refresh updated_at")
	}
}

func TestArchiveLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	task, _ := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "Old chore"})
	if _, err := env.Svc.SetTaskArchived(env.Ctx, task.ID, alice.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	// archiving again succeeds and stays archived
	again, err := env.Svc.SetTaskArchived(env.Ctx, task.ID, alice.ID, true)
	if err != nil || !again.Archived {
		t.Fatalf("re-archive should succeed, got %v archived=%v", err, again.Archived)
	}
	visible, err := env.Svc.Tasks(env.Ctx, alice.ID, service.TaskQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(visible) != 0 {
		t.Fatalf("archived task should be hidden from default listing, got %d", len(visible))
	}
	archived, err := env.Svc.Tasks(env.Ctx, alice.ID, service.TaskQuery{ArchivedOnly: true})
	if err != nil || len(archived) != 1 {
		t.Fatalf("archived_only should return the task, got %d %v", len(archived), err)
	}
	restored, err := env.Svc.SetTaskArchived(env.Ctx, task.ID, alice.ID, false)
	if err != nil || restored.Archived {
		t.Fatalf("unarchive: %v archived=%v", err, restored.Archived)
	}
}

func TestSearchPersonalTasks(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	_, _ = env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "Buy groceries"})
	_, _ = env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "Call dentist", Description: "about groceries receipt"})
	_, _ = env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "Unrelated"})
	res, err := env.Svc.Tasks(env.Ctx, alice.ID, service.TaskQuery{Search: "GROCERIES"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("case-insensitive search over title and description should match 2, got %d", len(res))
	}
}

func TestListsForUserOrdering(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	zulu, _ := env.Svc.CreateList(env.Ctx, "zulu", alice.ID)
	apple, _ := env.Svc.CreateList(env.Ctx, "Apple", alice.ID)
	shared, _ := env.Svc.CreateList(env.Ctx, "borrowed", bob.ID)
	_, _ = env.Svc.AddMember(env.Ctx, shared.ID, bob.ID, "alice")

	sums, err := env.Svc.ListsForUser(env.Ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 3 {
		t.Fatalf("expected 3 lists, got %d", len(sums))
	}
	// owned first, alphabetical within each group
	if sums[0].List.ID != apple.ID || sums[1].List.ID != zulu.ID || sums[2].List.ID != shared.ID {
		t.Fatalf("unexpected order: %s, %s, %s", sums[0].List.Name, sums[1].List.Name, sums[2].List.Name)
	}
	if !sums[0].IsOwner || sums[2].IsOwner {
		t.Fatalf("ownership flags wrong")
	}
	if sums[2].OwnerName != "bob" {
		t.Fatalf("expected bob as owner of shared list, got %q", sums[2].OwnerName)
	}
}

func TestSharedListScenario(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	l, err := env.Svc.CreateList(env.Ctx, "Groceries", alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	milk, err := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{
		OwnerUserID: bob.ID, Title: "Milk", CollabListID: l.ID,
	})
	if err != nil {
		t.Fatalf("bob creates list task: %v", err)
	}
	// alice sees bob's task in the list listing
	tasks, err := env.Svc.Tasks(env.Ctx, alice.ID, service.TaskQuery{CollabListID: l.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != milk.ID {
		t.Fatalf("alice should see bob's task")
	}
	// alice completes and archives it
	if _, err := env.Svc.SetTaskStatus(env.Ctx, milk.ID, alice.ID, domain.StatusCompleted); err != nil {
		t.Fatalf("alice completes: %v", err)
	}
	if _, err := env.Svc.SetTaskArchived(env.Ctx, milk.ID, alice.ID, true); err != nil {
		t.Fatalf("alice archives: %v", err)
	}
	tasks, _ = env.Svc.Tasks(env.Ctx, bob.ID, service.TaskQuery{CollabListID: l.ID})
	if len(tasks) != 0 {
		t.Fatalf("archived task should be hidden for bob too")
	}
}

func TestConfiguredTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	svc := env.Svc
	svc.Defaults = service.TaskDefaults{Priority: domain.PriorityHigh, Status: domain.StatusInProgress}

	task, err := svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "Configured"})
	if err != nil {
		t.Fatal(err)
	}
	if task.Priority != domain.PriorityHigh || task.Status != domain.StatusInProgress {
		t.Fatalf("configured defaults should apply, got %s/%s", task.Priority, task.Status)
	}
	// explicit values still win over configured defaults
	explicit, err := svc.CreateTask(env.Ctx, service.TaskCreateOptions{
		OwnerUserID: alice.ID, Title: "Explicit",
		Priority: domain.PriorityLow, Status: domain.StatusCompleted,
	})
	if err != nil {
		t.Fatal(err)
	}
	if explicit.Priority != domain.PriorityLow || explicit.Status != domain.StatusCompleted {
		t.Fatalf("explicit values should win, got %s/%s", explicit.Priority, explicit.Status)
	}
	// a bad configured default is rejected, not silently replaced
	svc.Defaults = service.TaskDefaults{Priority: "Urgent"}
	if _, err := svc.CreateTask(env.Ctx, service.TaskCreateOptions{OwnerUserID: alice.ID, Title: "Broken"}); err == nil {
		t.Fatalf("invalid configured priority should fail validation")
	}
}

func TestMembershipRoleRanks(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	carol := env.addUser(t, "carol")
	mallory := env.addUser(t, "mallory")
	l, err := env.Svc.CreateList(env.Ctx, "Ranked", alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	r := env.Svc.Repo
	now := env.Now.Format(time.RFC3339)
	if ok, err := r.AddMember(env.Ctx, nil, l.ID, bob.ID, domain.RoleEditor, now); err != nil || !ok {
		t.Fatalf("add editor: ok=%v err=%v", ok, err)
	}
	if _, err := env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "carol"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		who      string
		userID   string
		required domain.Role
		want     bool
	}{
		{"owner vs owner", alice.ID, domain.RoleOwner, true},
		{"owner vs member", alice.ID, domain.RoleMember, true},
		{"editor vs editor", bob.ID, domain.RoleEditor, true},
		{"editor vs member", bob.ID, domain.RoleMember, true},
		{"editor vs owner", bob.ID, domain.RoleOwner, false},
		{"member vs member", carol.ID, domain.RoleMember, true},
		{"member vs editor", carol.ID, domain.RoleEditor, false},
		{"non-member vs member", mallory.ID, domain.RoleMember, false},
	}
	for _, c := range cases {
		got, err := r.HasAtLeast(env.Ctx, l.ID, c.userID, c.required)
		if err != nil {
			t.Fatalf("%s: %v", c.who, err)
		}
		if got != c.want {
			t.Fatalf("%s: got %v, want %v", c.who, got, c.want)
		}
	}

	if role, err := r.RoleOf(env.Ctx, l.ID, bob.ID); err != nil || role != domain.RoleEditor {
		t.Fatalf("expected editor role for bob, got %v %v", role, err)
	}
	if ok, _ := r.IsOwner(env.Ctx, l.ID, alice.ID); !ok {
		t.Fatalf("alice should be owner")
	}
	if ok, _ := r.IsOwner(env.Ctx, l.ID, bob.ID); ok {
		t.Fatalf("editor is not owner")
	}
	if ok, _ := r.IsMember(env.Ctx, l.ID, bob.ID); !ok {
		t.Fatalf("editor counts as member")
	}
	if ok, _ := r.IsMember(env.Ctx, l.ID, mallory.ID); ok {
		t.Fatalf("mallory has no membership")
	}

	// an editor works with list tasks like any other member
	task, err := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{
		OwnerUserID: bob.ID, Title: "Editor task", CollabListID: l.ID,
	})
	if err != nil {
		t.Fatalf("editor creates list task: %v", err)
	}
	if _, err := env.Svc.GetTask(env.Ctx, task.ID, carol.ID); err != nil {
		t.Fatalf("member reads editor's task: %v", err)
	}
	// but the editor rank does not clear the owner gate
	if _, err := env.Svc.RenameList(env.Ctx, l.ID, bob.ID, "Grabbed"); err == nil {
		t.Fatalf("editor rename should be forbidden")
	}
}

func TestDeleteTaskByMember(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	l, _ := env.Svc.CreateList(env.Ctx, "Shared", alice.ID)
	_, _ = env.Svc.AddMember(env.Ctx, l.ID, alice.ID, "bob")
	task, _ := env.Svc.CreateTask(env.Ctx, service.TaskCreateOptions{
		OwnerUserID: alice.ID, Title: "Disposable", CollabListID: l.ID,
	})
	if err := env.Svc.DeleteTask(env.Ctx, task.ID, bob.ID); err != nil {
		t.Fatalf("member delete: %v", err)
	}
	if err := env.Svc.DeleteTask(env.Ctx, task.ID, bob.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}
