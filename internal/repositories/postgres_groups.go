package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tvtracker/backend/internal/db"
	"github.com/tvtracker/backend/internal/models"
)

// PostgresGroupRepository stores groups. Membership lives in group_members
// keyed by (group_id, user_id), so joining is an atomic insert.
type PostgresGroupRepository struct {
	pool db.Pool
}

// NewPostgresGroupRepository constructs a group repository backed by PostgreSQL.
func NewPostgresGroupRepository(pool db.Pool) *PostgresGroupRepository {
	return &PostgresGroupRepository{pool: pool}
}

const groupSelect = `
        SELECT g.id, g.name, g.description, g.genres, g.admin_id, g.avatar, g.created_at, g.updated_at,
               ARRAY(
                   SELECT gm.user_id FROM group_members gm
                   WHERE gm.group_id = g.id
                   ORDER BY gm.joined_at, gm.user_id
               )
        FROM chat_groups g`

// Create inserts the group and its admin membership in one transaction.
func (r *PostgresGroupRepository) Create(ctx context.Context, group models.Group) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	genres := group.Genres
	if genres == nil {
		genres = []string{}
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin group transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
        INSERT INTO chat_groups (id, name, description, genres, admin_id, avatar, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, group.ID, group.Name, group.Description, genres, group.AdminID, group.Avatar, group.CreatedAt, group.UpdatedAt); err != nil {
		return translateWriteError(err, "insert group")
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO group_members (group_id, user_id, joined_at)
        VALUES ($1, $2, $3)
    `, group.ID, group.AdminID, group.CreatedAt); err != nil {
		return translateWriteError(err, "insert group admin")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit group: %w", err)
	}

	return nil
}

// FindByID loads a group with its member list.
func (r *PostgresGroupRepository) FindByID(ctx context.Context, groupID string) (models.Group, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Group{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	group, err := scanGroup(conn.QueryRow(ctx, groupSelect+` WHERE g.id = $1`, groupID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, fmt.Errorf("select group: %w", err)
	}

	return group, nil
}

// ListForUser returns the groups the user belongs to, most recently updated first.
func (r *PostgresGroupRepository) ListForUser(ctx context.Context, userID string) ([]models.Group, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, groupSelect+`
        JOIN group_members m ON m.group_id = g.id
        WHERE m.user_id = $1
        ORDER BY g.updated_at DESC, g.id
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	return groups, nil
}

func scanGroup(row pgx.Row) (models.Group, error) {
	var g models.Group
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.Genres, &g.AdminID, &g.Avatar, &g.CreatedAt, &g.UpdatedAt, &g.Members)
	return g, err
}

// AddMember inserts the membership row and bumps the group's updated_at.
// An existing membership yields ErrConflict; a missing group yields ErrNotFound.
func (r *PostgresGroupRepository) AddMember(ctx context.Context, groupID, userID string, joinedAt time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin join transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
        INSERT INTO group_members (group_id, user_id, joined_at)
        VALUES ($1, $2, $3)
    `, groupID, userID, joinedAt); err != nil {
		return translateWriteError(err, "insert group member")
	}

	tag, err := tx.Exec(ctx, `UPDATE chat_groups SET updated_at = $2 WHERE id = $1`, groupID, joinedAt)
	if err != nil {
		return fmt.Errorf("touch group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit join: %w", err)
	}

	return nil
}

// IsMember reports whether the user belongs to the group. Missing groups report false.
func (r *PostgresGroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var member bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)
    `, groupID, userID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}

	return member, nil
}

var _ GroupRepository = (*PostgresGroupRepository)(nil)
