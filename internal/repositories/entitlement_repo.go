package repositories

import (
	"context"
	"fmt"
	"time"

	"wealthdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type EntitlementRepository interface {
	EnabledModules(ctx context.Context, tenantID uuid.UUID) ([]string, error)
	IsEnabled(ctx context.Context, tenantID uuid.UUID, moduleCode string) (bool, error)

	// SetEnabled flips the entitlement and appends the matching audit
	// record in one transaction. No observer may see one without the
	// other.
	SetEnabled(ctx context.Context, tenantID uuid.UUID, moduleCode string, enabled bool, change *models.EntitlementChange) error

	ListChanges(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.EntitlementChange, error)
	ChangesBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.EntitlementChange, error)
}

type entitlementRepo struct {
	db Database
}

func NewEntitlementRepo(db Database) EntitlementRepository {
	return &entitlementRepo{db: db}
}

func (r *entitlementRepo) EnabledModules(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	query := `
		SELECT module_code
		FROM tenant_modules
		WHERE tenant_id = $1 AND enabled = true
		ORDER BY module_code
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *entitlementRepo) IsEnabled(ctx context.Context, tenantID uuid.UUID, moduleCode string) (bool, error) {
	query := `
		SELECT enabled
		FROM tenant_modules
		WHERE tenant_id = $1 AND module_code = $2
	`
	var enabled bool
	err := r.db.QueryRow(ctx, query, tenantID, moduleCode).Scan(&enabled)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return enabled, nil
}

func (r *entitlementRepo) SetEnabled(ctx context.Context, tenantID uuid.UUID, moduleCode string, enabled bool, change *models.EntitlementChange) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin entitlement tx: %w", err)
	}
	defer tx.Rollback(ctx)

	upsert := `
		INSERT INTO tenant_modules (tenant_id, module_code, enabled, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, module_code) DO UPDATE SET enabled = $3, updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, upsert, tenantID, moduleCode, enabled); err != nil {
		return err
	}

	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	change.CreatedAt = time.Now().UTC()

	audit := `
		INSERT INTO entitlement_changes (id, tenant_id, module_code, old_enabled, new_enabled, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.Exec(ctx, audit, change.ID, change.TenantID, change.ModuleCode, change.OldEnabled, change.NewEnabled, change.ActorID, change.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *entitlementRepo) ListChanges(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.EntitlementChange, error) {
	query := `
		SELECT id, tenant_id, module_code, old_enabled, new_enabled, actor_id, created_at
		FROM entitlement_changes
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChanges(rows)
}

func (r *entitlementRepo) ChangesBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.EntitlementChange, error) {
	query := `
		SELECT id, tenant_id, module_code, old_enabled, new_enabled, actor_id, created_at
		FROM entitlement_changes
		WHERE created_at < $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChanges(rows)
}

func scanChanges(rows pgx.Rows) ([]*models.EntitlementChange, error) {
	var changes []*models.EntitlementChange
	for rows.Next() {
		change := &models.EntitlementChange{}
		if err := rows.Scan(&change.ID, &change.TenantID, &change.ModuleCode, &change.OldEnabled, &change.NewEnabled, &change.ActorID, &change.CreatedAt); err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}
