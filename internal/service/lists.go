package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"taskline/internal/access"
	"taskline/internal/domain"
	"taskline/internal/events"
	"taskline/internal/repo"
)

// CreateList inserts the list row and the owner membership in a single
// transaction, so no list can ever persist without an owner.
func (s Service) CreateList(ctx context.Context, name, ownerUserID string) (domain.CollabList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.CollabList{}, access.ValidationError{Field: "name"}
	}
	now := s.nowString()
	l := domain.CollabList{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.CollabList{}, err
	}
	defer tx.Rollback()
	if err := s.Repo.InsertList(ctx, tx, l); err != nil {
		return domain.CollabList{}, err
	}
	added, err := s.Repo.AddMember(ctx, tx, l.ID, ownerUserID, domain.RoleOwner, now)
	if err != nil {
		return domain.CollabList{}, err
	}
	if !added {
		return domain.CollabList{}, errors.New("owner membership insert affected no rows")
	}
	if err := s.Events.Append(ctx, tx, "list.created", l.ID, "list", l.ID, ownerUserID, events.EventPayload{"name": l.Name}); err != nil {
		return domain.CollabList{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.CollabList{}, err
	}
	return l, nil
}

// RenameList is owner-gated.
func (s Service) RenameList(ctx context.Context, listID, requesterID, newName string) (domain.CollabList, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return domain.CollabList{}, access.ValidationError{Field: "name"}
	}
	if _, err := s.EnsureListAccess(ctx, listID, requesterID, true); err != nil {
		return domain.CollabList{}, err
	}
	now := s.nowString()
	ok, err := s.Repo.RenameList(ctx, listID, newName, now)
	if err != nil {
		return domain.CollabList{}, err
	}
	if !ok {
		return domain.CollabList{}, repo.ErrNotFound
	}
	if err := s.Events.Append(ctx, nil, "list.renamed", listID, "list", listID, requesterID, events.EventPayload{"name": newName}); err != nil {
		return domain.CollabList{}, err
	}
	return s.Repo.GetList(ctx, listID)
}

// DeleteList is owner-gated. The task cascade runs against a logically
// separate store and is best-effort: a failure there is logged and the
// deletion continues, leaving at worst stray task rows. Membership and list
// row removal share one transaction. Safe to retry.
func (s Service) DeleteList(ctx context.Context, listID, requesterID string) error {
	if _, err := s.EnsureListAccess(ctx, listID, requesterID, true); err != nil {
		return err
	}
	if err := s.Repo.DeleteAllTasksForList(ctx, listID); err != nil {
		s.Log.Warn("task cascade failed during list deletion; continuing", "list_id", listID, "err", err)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.Repo.RemoveAllMembers(ctx, tx, listID); err != nil {
		return err
	}
	if _, err := s.Repo.DeleteListRow(ctx, tx, listID); err != nil {
		return err
	}
	if err := s.Events.Append(ctx, tx, "list.deleted", listID, "list", listID, requesterID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// AddMember lets any current member invite a directory user by username or
// email. The permissive non-owner gate mirrors the historical behavior and
// is a policy choice, not an oversight.
func (s Service) AddMember(ctx context.Context, listID, requesterID, usernameOrEmail string) (domain.Member, error) {
	usernameOrEmail = strings.TrimSpace(usernameOrEmail)
	if usernameOrEmail == "" {
		return domain.Member{}, access.ValidationError{Field: "username_or_email"}
	}
	if _, err := s.EnsureListAccess(ctx, listID, requesterID, false); err != nil {
		return domain.Member{}, err
	}
	target, err := s.Repo.FindUserByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		return domain.Member{}, err
	}
	if target.ID == requesterID {
		return domain.Member{}, access.ConflictError{Reason: access.ConflictSelfReference}
	}
	now := s.nowString()
	added, err := s.Repo.AddMember(ctx, nil, listID, target.ID, domain.RoleMember, now)
	if err != nil {
		return domain.Member{}, err
	}
	if !added {
		return domain.Member{}, access.ConflictError{Reason: access.ConflictAlreadyMember}
	}
	if err := s.Events.Append(ctx, nil, "member.added", listID, "membership", target.ID, requesterID, events.EventPayload{"username": target.Username}); err != nil {
		return domain.Member{}, err
	}
	return domain.Member{
		Membership: domain.Membership{ListID: listID, UserID: target.ID, Role: domain.RoleMember, CreatedAt: now},
		Username:   target.Username,
		Name:       target.Name,
		Email:      target.Email,
	}, nil
}

// RemoveMember is owner-gated; the owner can never remove themselves, even
// as the sole member.
func (s Service) RemoveMember(ctx context.Context, listID, requesterID, targetUserID string) error {
	if _, err := s.EnsureListAccess(ctx, listID, requesterID, true); err != nil {
		return err
	}
	if targetUserID == requesterID {
		return access.ConflictError{Reason: access.ConflictSelfRemoval}
	}
	removed, err := s.Repo.RemoveMember(ctx, listID, targetUserID)
	if err != nil {
		return err
	}
	if !removed {
		return repo.ErrNotFound
	}
	return s.Events.Append(ctx, nil, "member.removed", listID, "membership", targetUserID, requesterID, nil)
}

// Members returns the roster for a list the user can access, owner first.
func (s Service) Members(ctx context.Context, listID, userID string) ([]domain.Member, error) {
	if _, err := s.EnsureListAccess(ctx, listID, userID, false); err != nil {
		return nil, err
	}
	return s.Repo.ListMembers(ctx, listID)
}

// ListSummary is a list row decorated for display: who owns it, whether the
// viewer owns it, and how many members it has.
type ListSummary struct {
	List        domain.CollabList
	OwnerID     string
	OwnerName   string
	IsOwner     bool
	MemberCount int
}

// ListsForUser returns every list the user owns or belongs to, owned lists
// first and alphabetical within each group.
func (s Service) ListsForUser(ctx context.Context, userID string) ([]ListSummary, error) {
	lists, err := s.Repo.ListsForMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	var ownerIDs []string
	type entry struct {
		list    domain.CollabList
		ownerID string
	}
	entries := make([]entry, 0, len(lists))
	for _, l := range lists {
		ownerID, err := s.Repo.OwnerOf(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{list: l, ownerID: ownerID})
		if ownerID != userID {
			ownerIDs = append(ownerIDs, ownerID)
		}
	}
	names, err := s.Repo.UserNamesByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}
	res := make([]ListSummary, 0, len(entries))
	for _, e := range entries {
		count, err := s.Repo.CountMembers(ctx, e.list.ID)
		if err != nil {
			return nil, err
		}
		sum := ListSummary{
			List:        e.list,
			OwnerID:     e.ownerID,
			IsOwner:     e.ownerID == userID,
			MemberCount: count,
		}
		if sum.IsOwner {
			if self, err := s.Repo.GetUser(ctx, userID); err == nil {
				sum.OwnerName = self.Name
			}
		} else {
			sum.OwnerName = names[e.ownerID]
		}
		res = append(res, sum)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].IsOwner != res[j].IsOwner {
			return res[i].IsOwner
		}
		return strings.ToLower(res[i].List.Name) < strings.ToLower(res[j].List.Name)
	})
	return res, nil
}
