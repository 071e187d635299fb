package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/savingsgroup/internal/models"
)

// CreateGroup persists a new group.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, quorum_percentage, created_at) VALUES (?, ?, ?, ?)",
		group.ID, group.Name, group.QuorumPercentage, toNanos(group.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return getGroup(ctx, s.db, groupID)
}

func getGroup(ctx context.Context, q queryer, groupID string) (*models.Group, error) {
	var (
		group     models.Group
		createdAt int64
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, name, quorum_percentage, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.QuorumPercentage, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.CreatedAt = fromNanos(createdAt)
	return &group, nil
}

// UpdateGroup updates a group's name and quorum setting.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE groups SET name = ?, quorum_percentage = ? WHERE id = ?",
		group.Name, group.QuorumPercentage, group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound("group", group.ID)
	}
	return nil
}

// CreateMember persists a new member of an existing group.
func (s *SQLiteStore) CreateMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.CreatedAt.IsZero() {
		member.CreatedAt = s.now()
	}
	if member.Role == "" {
		member.Role = models.RoleMember
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getGroup(ctx, tx, member.GroupID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO members (id, group_id, user_id, name, phone, role, active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			member.ID, member.GroupID, member.UserID, member.Name, member.Phone,
			member.Role, member.Active, toNanos(member.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create member: %w", err)
		}
		return nil
	})
}

const memberColumns = "id, group_id, user_id, name, phone, role, active, created_at"

func scanMember(row interface{ Scan(...any) error }) (*models.Member, error) {
	var (
		m         models.Member
		createdAt int64
	)
	if err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Name, &m.Phone, &m.Role, &m.Active, &createdAt); err != nil {
		return nil, err
	}
	m.CreatedAt = fromNanos(createdAt)
	return &m, nil
}

// GetMember retrieves a member by ID.
func (s *SQLiteStore) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	return getMember(ctx, s.db, memberID)
}

func getMember(ctx context.Context, q queryer, memberID string) (*models.Member, error) {
	m, err := scanMember(q.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id = ?", memberID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("member", memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// ListMembers returns all members of a group ordered by name.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE group_id = ? ORDER BY name, id", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// CountActiveMembers returns the number of active members in a group.
func (s *SQLiteStore) CountActiveMembers(ctx context.Context, groupID string) (int, error) {
	return countActiveMembers(ctx, s.db, groupID)
}

func countActiveMembers(ctx context.Context, q queryer, groupID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM members WHERE group_id = ? AND active = 1", groupID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// CreateSavingType persists a new saving type for an existing group.
func (s *SQLiteStore) CreateSavingType(ctx context.Context, st *models.SavingType) error {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = s.now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getGroup(ctx, tx, st.GroupID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO saving_types (id, group_id, name, code, minimum_amount, maximum_amount,
			 allows_withdrawal, active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			st.ID, st.GroupID, st.Name, st.Code, st.MinimumAmount, st.MaximumAmount,
			st.AllowsWithdrawal, st.Active, toNanos(st.CreatedAt),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: saving type code %q already exists", models.ErrInvalidInput, st.Code)
		}
		if err != nil {
			return fmt.Errorf("failed to create saving type: %w", err)
		}
		return nil
	})
}

const savingTypeColumns = "id, group_id, name, code, minimum_amount, maximum_amount, allows_withdrawal, active, created_at"

func scanSavingType(row interface{ Scan(...any) error }) (*models.SavingType, error) {
	var (
		st        models.SavingType
		createdAt int64
	)
	err := row.Scan(&st.ID, &st.GroupID, &st.Name, &st.Code, &st.MinimumAmount, &st.MaximumAmount,
		&st.AllowsWithdrawal, &st.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	st.CreatedAt = fromNanos(createdAt)
	return &st, nil
}

// GetSavingType retrieves a saving type by ID.
func (s *SQLiteStore) GetSavingType(ctx context.Context, savingTypeID string) (*models.SavingType, error) {
	st, err := scanSavingType(s.db.QueryRowContext(ctx,
		"SELECT "+savingTypeColumns+" FROM saving_types WHERE id = ?", savingTypeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("saving type", savingTypeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saving type: %w", err)
	}
	return st, nil
}

// ListSavingTypes returns a group's saving types ordered by code.
func (s *SQLiteStore) ListSavingTypes(ctx context.Context, groupID string) ([]models.SavingType, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+savingTypeColumns+" FROM saving_types WHERE group_id = ? ORDER BY code", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saving types: %w", err)
	}
	defer rows.Close()

	var types []models.SavingType
	for rows.Next() {
		st, err := scanSavingType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saving type: %w", err)
		}
		types = append(types, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saving types: %w", err)
	}
	return types, nil
}
