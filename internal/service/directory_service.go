package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/models"
	"github.com/mmynk/savingsgroup/internal/storage"
)

var hundred = decimal.NewFromInt(100)

// DirectoryService implements the Connect DirectoryService. It maintains
// the groups, members and saving types the meeting workflow reads.
type DirectoryService struct {
	store storage.DirectoryStore
}

// NewDirectoryService creates a new DirectoryService with the given storage backend.
func NewDirectoryService(store storage.DirectoryStore) *DirectoryService {
	return &DirectoryService{store: store}
}

func validateQuorum(pct decimal.NullDecimal) error {
	if pct.Valid && (!pct.Decimal.IsPositive() || pct.Decimal.GreaterThan(hundred)) {
		return fmt.Errorf("%w: quorum percentage must be in (0, 100]", models.ErrInvalidInput)
	}
	return nil
}

func requireGroupAdmin(actor models.Actor, groupID string) error {
	if !actor.IsAdmin() || !actor.CanAccess(groupID) {
		return fmt.Errorf("%w: group administration requires an admin of the group", models.ErrForbidden)
	}
	return nil
}

// CreateGroup creates a new group.
func (s *DirectoryService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	slog.InfoContext(ctx, "CreateGroup request received", "name", req.Msg.Name)
	return serve(ctx, "CreateGroup", req, func(actor models.Actor, msg *CreateGroupRequest) (*GroupResponse, error) {
		if !actor.IsPlatformAdmin() {
			return nil, fmt.Errorf("%w: only platform admins create groups", models.ErrForbidden)
		}
		name := strings.TrimSpace(msg.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: group name is required", models.ErrInvalidInput)
		}
		if err := validateQuorum(msg.QuorumPercentage); err != nil {
			return nil, err
		}

		group := &models.Group{Name: name, QuorumPercentage: msg.QuorumPercentage}
		if err := s.store.CreateGroup(ctx, group); err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Group created", "group_id", group.ID)
		return &GroupResponse{Group: group}, nil
	})
}

// GetGroup retrieves a group by ID.
func (s *DirectoryService) GetGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[GroupResponse], error) {
	return serve(ctx, "GetGroup", req, func(actor models.Actor, msg *GroupRequest) (*GroupResponse, error) {
		if !actor.CanAccess(msg.GroupID) {
			return nil, fmt.Errorf("%w: group %s", models.ErrForbidden, msg.GroupID)
		}
		group, err := s.store.GetGroup(ctx, msg.GroupID)
		if err != nil {
			return nil, err
		}
		return &GroupResponse{Group: group}, nil
	})
}

// UpdateGroup renames a group or changes its quorum rule.
func (s *DirectoryService) UpdateGroup(ctx context.Context, req *connect.Request[UpdateGroupRequest]) (*connect.Response[GroupResponse], error) {
	slog.InfoContext(ctx, "UpdateGroup request received",
		"group_id", req.Msg.GroupID,
		"name", req.Msg.Name,
	)
	return serve(ctx, "UpdateGroup", req, func(actor models.Actor, msg *UpdateGroupRequest) (*GroupResponse, error) {
		if err := requireGroupAdmin(actor, msg.GroupID); err != nil {
			return nil, err
		}
		if err := validateQuorum(msg.QuorumPercentage); err != nil {
			return nil, err
		}
		group, err := s.store.GetGroup(ctx, msg.GroupID)
		if err != nil {
			return nil, err
		}
		if name := strings.TrimSpace(msg.Name); name != "" {
			group.Name = name
		}
		group.QuorumPercentage = msg.QuorumPercentage
		if err := s.store.UpdateGroup(ctx, group); err != nil {
			return nil, err
		}
		return &GroupResponse{Group: group}, nil
	})
}

// CreateMember adds an active member to a group.
func (s *DirectoryService) CreateMember(ctx context.Context, req *connect.Request[CreateMemberRequest]) (*connect.Response[MemberResponse], error) {
	slog.InfoContext(ctx, "CreateMember request received",
		"group_id", req.Msg.GroupID,
		"role", req.Msg.Role,
	)
	return serve(ctx, "CreateMember", req, func(actor models.Actor, msg *CreateMemberRequest) (*MemberResponse, error) {
		if err := requireGroupAdmin(actor, msg.GroupID); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(msg.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: member name is required", models.ErrInvalidInput)
		}
		role := msg.Role
		if role == "" {
			role = models.RoleMember
		}
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", models.ErrInvalidInput, role)
		}

		member := &models.Member{
			GroupID: msg.GroupID,
			UserID:  msg.UserID,
			Name:    name,
			Phone:   strings.TrimSpace(msg.Phone),
			Role:    role,
			Active:  true,
		}
		if err := s.store.CreateMember(ctx, member); err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Member created", "member_id", member.ID, "group_id", member.GroupID)
		return &MemberResponse{Member: member}, nil
	})
}

func (s *DirectoryService) ListMembers(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[MembersResponse], error) {
	return serve(ctx, "ListMembers", req, func(actor models.Actor, msg *GroupRequest) (*MembersResponse, error) {
		if !actor.CanAccess(msg.GroupID) {
			return nil, fmt.Errorf("%w: group %s", models.ErrForbidden, msg.GroupID)
		}
		members, err := s.store.ListMembers(ctx, msg.GroupID)
		if err != nil {
			return nil, err
		}
		return &MembersResponse{Members: members}, nil
	})
}

// CreateSavingType adds a saving category with its limits to a group.
func (s *DirectoryService) CreateSavingType(ctx context.Context, req *connect.Request[CreateSavingTypeRequest]) (*connect.Response[SavingTypeResponse], error) {
	slog.InfoContext(ctx, "CreateSavingType request received",
		"group_id", req.Msg.GroupID,
		"code", req.Msg.Code,
	)
	return serve(ctx, "CreateSavingType", req, func(actor models.Actor, msg *CreateSavingTypeRequest) (*SavingTypeResponse, error) {
		if err := requireGroupAdmin(actor, msg.GroupID); err != nil {
			return nil, err
		}
		code := strings.ToUpper(strings.TrimSpace(msg.Code))
		if code == "" || strings.TrimSpace(msg.Name) == "" {
			return nil, fmt.Errorf("%w: saving type name and code are required", models.ErrInvalidInput)
		}
		if msg.MinimumAmount.IsNegative() {
			return nil, fmt.Errorf("%w: minimum amount cannot be negative", models.ErrInvalidInput)
		}
		if msg.MaximumAmount.Valid && msg.MaximumAmount.Decimal.LessThan(msg.MinimumAmount) {
			return nil, fmt.Errorf("%w: maximum amount is below the minimum", models.ErrInvalidInput)
		}

		st := &models.SavingType{
			GroupID:          msg.GroupID,
			Name:             strings.TrimSpace(msg.Name),
			Code:             code,
			MinimumAmount:    msg.MinimumAmount,
			MaximumAmount:    msg.MaximumAmount,
			AllowsWithdrawal: msg.AllowsWithdrawal,
			Active:           true,
		}
		if err := s.store.CreateSavingType(ctx, st); err != nil {
			return nil, err
		}
		return &SavingTypeResponse{SavingType: st}, nil
	})
}

func (s *DirectoryService) ListSavingTypes(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[SavingTypesResponse], error) {
	return serve(ctx, "ListSavingTypes", req, func(actor models.Actor, msg *GroupRequest) (*SavingTypesResponse, error) {
		if !actor.CanAccess(msg.GroupID) {
			return nil, fmt.Errorf("%w: group %s", models.ErrForbidden, msg.GroupID)
		}
		types, err := s.store.ListSavingTypes(ctx, msg.GroupID)
		if err != nil {
			return nil, err
		}
		return &SavingTypesResponse{SavingTypes: types}, nil
	})
}
