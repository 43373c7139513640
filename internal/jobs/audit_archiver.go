package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wealthdesk/internal/models"
	"wealthdesk/internal/repositories"
	"wealthdesk/internal/services"
)

const archiveBatchSize = 1000

// AuditArchiver exports aged entitlement-change records to object
// storage. Rows are never deleted; the audit table stays append-only and
// the export is idempotent per batch object.
type AuditArchiver struct {
	repo    repositories.EntitlementRepository
	storage services.ArchiveStorage
	bucket  string
	maxAge  time.Duration
	logger  *zap.Logger
}

func NewAuditArchiver(repo repositories.EntitlementRepository, storage services.ArchiveStorage, bucket string, maxAge time.Duration, logger *zap.Logger) *AuditArchiver {
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	return &AuditArchiver{
		repo:    repo,
		storage: storage,
		bucket:  bucket,
		maxAge:  maxAge,
		logger:  logger,
	}
}

// Run exports every change older than the retention window, grouped per
// tenant and month.
func (a *AuditArchiver) Run(ctx context.Context) error {
	if err := a.storage.EnsureBucketExists(ctx, a.bucket); err != nil {
		return fmt.Errorf("ensure archive bucket: %w", err)
	}

	cutoff := time.Now().UTC().Add(-a.maxAge)
	changes, err := a.repo.ChangesBefore(ctx, cutoff, archiveBatchSize)
	if err != nil {
		return fmt.Errorf("load changes before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if len(changes) == 0 {
		return nil
	}

	groups := make(map[string][]*models.EntitlementChange)
	for _, change := range changes {
		key := archiveObjectName(change.TenantID, change.CreatedAt)
		groups[key] = append(groups[key], change)
	}

	for objectName, batch := range groups {
		if err := a.storage.PutJSON(ctx, a.bucket, objectName, batch); err != nil {
			return fmt.Errorf("archive %s: %w", objectName, err)
		}
		a.logger.Info("archived entitlement changes",
			zap.String("object", objectName),
			zap.Int("count", len(batch)))
	}
	return nil
}

func archiveObjectName(tenantID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s/%s.json", tenantID.String(), at.UTC().Format("2006-01"))
}
