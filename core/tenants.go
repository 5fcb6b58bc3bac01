package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"devspace-operator/assert"
	"devspace-operator/dtos"
	"devspace-operator/errdefs"
	"devspace-operator/interfaces"
	"devspace-operator/kubernetes"
	"devspace-operator/store"
)

// TenantManager owns groups, users and the membership relation, and
// the 1:1 mapping of a group to its namespace and quota. Membership is
// the single source of truth for group roles; flat group id lists are
// derived on read only.
type TenantManager struct {
	logger      *slog.Logger
	recordStore *store.Store
}

func NewTenantManager(logManager interfaces.LogManager, recordStore *store.Store) *TenantManager {
	assert.Assert(logManager != nil, "logManager must not be nil")
	assert.Assert(recordStore != nil, "recordStore must not be nil")

	return &TenantManager{
		logger:      logManager.CreateLogger("tenants"),
		recordStore: recordStore,
	}
}

// CreateGroup creates the group record together with its namespace and
// quota object.
func (self *TenantManager) CreateGroup(ctx context.Context, request dtos.GroupCreateRequest) (*dtos.GroupDto, error) {
	err := validate.Struct(request)
	if err != nil {
		return nil, errdefs.Validation("invalid group request: %s", err)
	}

	id := NewGroupId()
	group := dtos.GroupDto{
		Id:           id,
		DisplayName:  request.DisplayName,
		Namespace:    kubernetes.GroupNamespaceName(id),
		Quota:        request.Quota,
		DefaultImage: request.DefaultImage,
		CreatedAt:    time.Now(),
	}

	err = kubernetes.EnsureNamespace(ctx, group.Namespace)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "creating namespace %s", group.Namespace)
	}
	err = kubernetes.EnsureResourceQuota(ctx, group.Namespace, group.Quota)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "applying quota to namespace %s", group.Namespace)
	}

	err = self.recordStore.Create(group, nil, keyGroup, id)
	if err != nil {
		// the namespace has no owning record yet, take it down again
		deleteErr := kubernetes.DeleteNamespace(ctx, group.Namespace)
		if deleteErr != nil {
			self.logger.Error("Removing namespace of unpersisted group failed", "groupId", id, "namespace", group.Namespace, "error", deleteErr)
		}
		if errors.Is(err, store.ErrKeyExists) {
			return nil, errdefs.Conflict("group %s already exists", id)
		}
		return nil, errdefs.Infrastructure(err, "persisting group %s", id)
	}

	self.logger.Info("Created group", "groupId", id, "namespace", group.Namespace)
	return &group, nil
}

func (self *TenantManager) GetGroup(ctx context.Context, groupId string) (*dtos.GroupDto, error) {
	group, err := store.Get[dtos.GroupDto](self.recordStore, keyGroup, groupId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errdefs.NotFound("group not found: %s", groupId)
		}
		return nil, errdefs.Infrastructure(err, "reading group %s", groupId)
	}

	members, err := self.ListMembers(ctx, groupId)
	if err != nil {
		return nil, err
	}
	group.MemberCount = len(members)
	return group, nil
}

func (self *TenantManager) ListGroups(ctx context.Context) ([]dtos.GroupDto, error) {
	groups, err := store.ListByPrefix[dtos.GroupDto](self.recordStore, 0, 0, keyGroup)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "listing groups")
	}
	for i := range groups {
		members, err := self.ListMembers(ctx, groups[i].Id)
		if err != nil {
			return nil, err
		}
		groups[i].MemberCount = len(members)
	}
	return groups, nil
}

// UpdateGroup patches display name, quota and default image. A quota
// change is re-applied to the namespace immediately.
func (self *TenantManager) UpdateGroup(ctx context.Context, groupId string, request dtos.GroupUpdateRequest) (*dtos.GroupDto, error) {
	err := validate.Struct(request)
	if err != nil {
		return nil, errdefs.Validation("invalid group patch: %s", err)
	}

	group, err := self.GetGroup(ctx, groupId)
	if err != nil {
		return nil, err
	}

	if request.DisplayName != nil {
		group.DisplayName = *request.DisplayName
	}
	if request.DefaultImage != nil {
		group.DefaultImage = *request.DefaultImage
	}
	if request.Quota != nil {
		group.Quota = *request.Quota
		err = kubernetes.EnsureResourceQuota(ctx, group.Namespace, group.Quota)
		if err != nil {
			return nil, errdefs.Infrastructure(err, "applying quota to namespace %s", group.Namespace)
		}
	}

	err = self.recordStore.Set(group, keyGroup, groupId)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "persisting group %s", groupId)
	}
	return group, nil
}

// DeleteGroup refuses with Conflict while the group owns at least one
// workspace. Otherwise it removes all memberships, best-effort deletes
// the namespace with everything in it and drops the group record.
func (self *TenantManager) DeleteGroup(ctx context.Context, groupId string) error {
	group, err := self.GetGroup(ctx, groupId)
	if err != nil {
		return err
	}

	workspaces, err := store.ListByPrefix[dtos.WorkspaceDto](self.recordStore, 0, 0, keyWorkspace)
	if err != nil {
		return errdefs.Infrastructure(err, "listing workspaces of group %s", groupId)
	}
	owned := 0
	for _, workspace := range workspaces {
		if workspace.GroupId == groupId {
			owned++
		}
	}
	if owned > 0 {
		return errdefs.Conflict("group %s still owns %d workspaces", groupId, owned)
	}

	memberships, err := store.ListByPrefix[dtos.MembershipDto](self.recordStore, 0, 0, keyMembership, groupId)
	if err != nil {
		return errdefs.Infrastructure(err, "listing memberships of group %s", groupId)
	}
	for _, membership := range memberships {
		err = self.recordStore.Delete(nil, keyMembership, groupId, membership.UserId)
		if err != nil {
			return errdefs.Infrastructure(err, "removing membership of user %s", membership.UserId)
		}
	}

	err = kubernetes.DeleteNamespace(ctx, group.Namespace)
	if err != nil {
		self.logger.Error("Deleting namespace failed, group record is removed anyway", "groupId", groupId, "namespace", group.Namespace, "error", err)
	}

	err = self.recordStore.Delete(nil, keyGroup, groupId)
	if err != nil {
		return errdefs.Infrastructure(err, "removing group %s", groupId)
	}

	self.logger.Info("Deleted group", "groupId", groupId, "namespace", group.Namespace)
	return nil
}

// EnsureGroupResources lazily recreates namespace and quota when a
// workspace create finds them missing, e.g. removed out of band.
func (self *TenantManager) EnsureGroupResources(ctx context.Context, group *dtos.GroupDto) error {
	exists, err := kubernetes.NamespaceExists(ctx, group.Namespace)
	if err != nil {
		return errdefs.Infrastructure(err, "checking namespace %s", group.Namespace)
	}
	if !exists {
		self.logger.Warn("Namespace of group is missing, recreating", "groupId", group.Id, "namespace", group.Namespace)
	}

	err = kubernetes.EnsureNamespace(ctx, group.Namespace)
	if err != nil {
		return errdefs.Infrastructure(err, "creating namespace %s", group.Namespace)
	}
	err = kubernetes.EnsureResourceQuota(ctx, group.Namespace, group.Quota)
	if err != nil {
		return errdefs.Infrastructure(err, "applying quota to namespace %s", group.Namespace)
	}
	return nil
}

// AddMember adds a user to a group. Adding an existing member is a
// Conflict; SetRole changes a role.
func (self *TenantManager) AddMember(ctx context.Context, groupId string, request dtos.MembershipRequest) (*dtos.MembershipDto, error) {
	err := validate.Struct(request)
	if err != nil {
		return nil, errdefs.Validation("invalid membership request: %s", err)
	}
	if !request.Role.IsValid() {
		return nil, errdefs.Validation("invalid group role: %s", request.Role)
	}

	_, err = self.GetGroup(ctx, groupId)
	if err != nil {
		return nil, err
	}
	_, err = self.GetUser(ctx, request.UserId)
	if err != nil {
		return nil, err
	}

	membership := dtos.MembershipDto{
		UserId:    request.UserId,
		GroupId:   groupId,
		Role:      request.Role,
		CreatedAt: time.Now(),
	}
	err = self.recordStore.Create(membership, nil, keyMembership, groupId, request.UserId)
	if err != nil {
		if errors.Is(err, store.ErrKeyExists) {
			return nil, errdefs.Conflict("user %s is already a member of group %s", request.UserId, groupId)
		}
		return nil, errdefs.Infrastructure(err, "persisting membership")
	}
	return &membership, nil
}

func (self *TenantManager) RemoveMember(ctx context.Context, groupId string, userId string) error {
	_, err := self.GetMembership(ctx, groupId, userId)
	if err != nil {
		return err
	}
	err = self.recordStore.Delete(nil, keyMembership, groupId, userId)
	if err != nil {
		return errdefs.Infrastructure(err, "removing membership of user %s", userId)
	}
	return nil
}

func (self *TenantManager) SetRole(ctx context.Context, groupId string, userId string, role dtos.GroupRole) (*dtos.MembershipDto, error) {
	if !role.IsValid() {
		return nil, errdefs.Validation("invalid group role: %s", role)
	}
	membership, err := self.GetMembership(ctx, groupId, userId)
	if err != nil {
		return nil, err
	}
	membership.Role = role
	err = self.recordStore.Set(membership, keyMembership, groupId, userId)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "persisting membership")
	}
	return membership, nil
}

func (self *TenantManager) GetMembership(ctx context.Context, groupId string, userId string) (*dtos.MembershipDto, error) {
	membership, err := store.Get[dtos.MembershipDto](self.recordStore, keyMembership, groupId, userId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errdefs.NotFound("user %s is not a member of group %s", userId, groupId)
		}
		return nil, errdefs.Infrastructure(err, "reading membership")
	}
	return membership, nil
}

func (self *TenantManager) ListMembers(ctx context.Context, groupId string) ([]dtos.MembershipDto, error) {
	memberships, err := store.ListByPrefix[dtos.MembershipDto](self.recordStore, 0, 0, keyMembership, groupId)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "listing members of group %s", groupId)
	}
	return memberships, nil
}

// ListGroupsForUser derives the flat group id list of a user from the
// membership relation, resolved through the store's reverse index
// instead of a scan over all memberships.
func (self *TenantManager) ListGroupsForUser(ctx context.Context, userId string) ([]string, error) {
	memberships, err := store.ListByPart[dtos.MembershipDto](self.recordStore, userId, keyMembership)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "listing memberships of user %s", userId)
	}
	groupIds := []string{}
	for _, membership := range memberships {
		groupIds = append(groupIds, membership.GroupId)
	}
	return groupIds, nil
}

// CreateUser registers a user. The email address is a unique secondary
// key; a duplicate registration is a Conflict.
func (self *TenantManager) CreateUser(ctx context.Context, email string, displayName string, platformAdmin bool) (*dtos.UserDto, error) {
	err := validate.Var(email, "required,email")
	if err != nil {
		return nil, errdefs.Validation("invalid email address: %s", email)
	}

	user := dtos.UserDto{
		Id:            NewUserId(),
		Email:         email,
		DisplayName:   displayName,
		PlatformAdmin: platformAdmin,
		CreatedAt:     time.Now(),
	}
	indexes := []store.IndexEntry{{Name: indexUserEmail, Value: email}}
	err = self.recordStore.Create(user, indexes, keyUser, user.Id)
	if err != nil {
		if errors.Is(err, store.ErrKeyExists) {
			return nil, errdefs.Conflict("email %s is already registered", email)
		}
		return nil, errdefs.Infrastructure(err, "persisting user")
	}
	return &user, nil
}

func (self *TenantManager) GetUser(ctx context.Context, userId string) (*dtos.UserDto, error) {
	user, err := store.Get[dtos.UserDto](self.recordStore, keyUser, userId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errdefs.NotFound("user not found: %s", userId)
		}
		return nil, errdefs.Infrastructure(err, "reading user %s", userId)
	}
	return user, nil
}

func (self *TenantManager) GetUserByEmail(ctx context.Context, email string) (*dtos.UserDto, error) {
	user, err := store.GetByIndex[dtos.UserDto](self.recordStore, indexUserEmail, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errdefs.NotFound("no user registered for %s", email)
		}
		return nil, errdefs.Infrastructure(err, "reading user by email")
	}
	return user, nil
}

func (self *TenantManager) ListUsers(ctx context.Context) ([]dtos.UserDto, error) {
	users, err := store.ListByPrefix[dtos.UserDto](self.recordStore, 0, 0, keyUser)
	if err != nil {
		return nil, errdefs.Infrastructure(err, "listing users")
	}
	return users, nil
}
