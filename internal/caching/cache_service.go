package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"wealthdesk/internal/models"
)

type CacheService interface {
	// Entitlement caching. GetEnabledModules reports found=false on a
	// cache miss; an empty enabled set is a valid cached value.
	GetEnabledModules(ctx context.Context, tenantID uuid.UUID) ([]string, bool, error)
	SetEnabledModules(ctx context.Context, tenantID uuid.UUID, codes []string, ttl time.Duration) error
	InvalidateEnabledModules(ctx context.Context, tenantID uuid.UUID) error

	// Stats caching
	GetTenantStats(ctx context.Context, tenantID uuid.UUID) (*models.TenantStats, error)
	SetTenantStats(ctx context.Context, tenantID uuid.UUID, stats *models.TenantStats, ttl time.Duration) error

	// Cache invalidation
	InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func entitlementKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("wealthdesk:entitlements:%s", tenantID.String())
}

func statsKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("wealthdesk:stats:%s", tenantID.String())
}

func (r *redisCacheService) GetEnabledModules(ctx context.Context, tenantID uuid.UUID) ([]string, bool, error) {
	data, err := r.client.Get(ctx, entitlementKey(tenantID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil // cache miss
		}
		return nil, false, err
	}

	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, false, err
	}
	return codes, true, nil
}

func (r *redisCacheService) SetEnabledModules(ctx context.Context, tenantID uuid.UUID, codes []string, ttl time.Duration) error {
	if codes == nil {
		codes = []string{}
	}
	data, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, entitlementKey(tenantID), data, ttl).Err()
}

func (r *redisCacheService) InvalidateEnabledModules(ctx context.Context, tenantID uuid.UUID) error {
	return r.client.Del(ctx, entitlementKey(tenantID)).Err()
}

func (r *redisCacheService) GetTenantStats(ctx context.Context, tenantID uuid.UUID) (*models.TenantStats, error) {
	data, err := r.client.Get(ctx, statsKey(tenantID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var stats models.TenantStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *redisCacheService) SetTenantStats(ctx context.Context, tenantID uuid.UUID, stats *models.TenantStats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, statsKey(tenantID), data, ttl).Err()
}

func (r *redisCacheService) InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error {
	return r.client.Del(ctx, entitlementKey(tenantID), statsKey(tenantID)).Err()
}
