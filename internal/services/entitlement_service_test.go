package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"wealthdesk/internal/common"
	"wealthdesk/internal/events"
	"wealthdesk/internal/models"
	"wealthdesk/internal/registry"
)

type MockEntitlementRepository struct {
	mock.Mock
}

func (m *MockEntitlementRepository) EnabledModules(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockEntitlementRepository) IsEnabled(ctx context.Context, tenantID uuid.UUID, moduleCode string) (bool, error) {
	args := m.Called(ctx, tenantID, moduleCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntitlementRepository) SetEnabled(ctx context.Context, tenantID uuid.UUID, moduleCode string, enabled bool, change *models.EntitlementChange) error {
	args := m.Called(ctx, tenantID, moduleCode, enabled, change)
	return args.Error(0)
}

func (m *MockEntitlementRepository) ListChanges(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.EntitlementChange, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EntitlementChange), args.Error(1)
}

func (m *MockEntitlementRepository) ChangesBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.EntitlementChange, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.EntitlementChange), args.Error(1)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetEnabledModules(ctx context.Context, tenantID uuid.UUID) ([]string, bool, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]string), args.Bool(1), args.Error(2)
}

func (m *MockCacheService) SetEnabledModules(ctx context.Context, tenantID uuid.UUID, codes []string, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, codes, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateEnabledModules(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockCacheService) GetTenantStats(ctx context.Context, tenantID uuid.UUID) (*models.TenantStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TenantStats), args.Error(1)
}

func (m *MockCacheService) SetTenantStats(ctx context.Context, tenantID uuid.UUID, stats *models.TenantStats, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, stats, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

type EntitlementServiceTestSuite struct {
	suite.Suite
	mockRepo  *MockEntitlementRepository
	mockCache *MockCacheService
	notifier  *events.MemoryNotifier
	service   EntitlementService

	tenantID uuid.UUID
	admin    common.Identity
}

func (suite *EntitlementServiceTestSuite) SetupTest() {
	reg, err := registry.New([]models.Module{
		{Code: "clients"},
		{Code: "tasks"},
		{Code: "accounts", Requires: []string{"clients"}},
		{Code: "reports", Requires: []string{"accounts"}},
	}, nil)
	suite.Require().NoError(err)

	suite.mockRepo = &MockEntitlementRepository{}
	suite.mockCache = &MockCacheService{}
	suite.notifier = events.NewMemoryNotifier()
	suite.service = NewEntitlementService(suite.mockRepo, reg, suite.mockCache, suite.notifier, zap.NewNop())

	suite.tenantID = uuid.New()
	suite.admin = common.Identity{UserID: uuid.New(), TenantID: suite.tenantID, Role: models.RoleTenantAdmin}

	suite.mockRepo.Test(suite.T())
	suite.mockCache.Test(suite.T())
}

func (suite *EntitlementServiceTestSuite) TearDownTest() {
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockCache.AssertExpectations(suite.T())
}

func TestEntitlementServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EntitlementServiceTestSuite))
}

func (suite *EntitlementServiceTestSuite) TestEnable_Success() {
	ctx := context.Background()

	suite.mockRepo.On("EnabledModules", ctx, suite.tenantID).Return([]string{"clients"}, nil)
	suite.mockRepo.On("SetEnabled", ctx, suite.tenantID, "accounts", true, mock.AnythingOfType("*models.EntitlementChange")).
		Run(func(args mock.Arguments) {
			change := args.Get(4).(*models.EntitlementChange)
			suite.False(change.OldEnabled)
			suite.True(change.NewEnabled)
			suite.Equal(suite.admin.UserID, change.ActorID)
		}).Return(nil)
	suite.mockCache.On("InvalidateEnabledModules", ctx, suite.tenantID).Return(nil)

	err := suite.service.Enable(ctx, suite.admin, suite.tenantID, "accounts")
	suite.NoError(err)

	published := suite.notifier.ByType(events.TypeEntitlementChanged)
	suite.Require().Len(published, 1)
	payload := published[0].Payload.(events.EntitlementChanged)
	suite.Equal("accounts", payload.ModuleCode)
	suite.True(payload.Enabled)
}

func (suite *EntitlementServiceTestSuite) TestEnable_DependencyNotMet() {
	ctx := context.Background()

	// clients is not enabled, so accounts must be rejected with no write
	// and no event.
	suite.mockRepo.On("EnabledModules", ctx, suite.tenantID).Return([]string{}, nil)

	err := suite.service.Enable(ctx, suite.admin, suite.tenantID, "accounts")
	suite.ErrorIs(err, ErrDependencyNotMet)
	suite.mockRepo.AssertNotCalled(suite.T(), "SetEnabled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.Empty(suite.notifier.Events())
}

func (suite *EntitlementServiceTestSuite) TestEnable_AlreadyEnabledIsNoop() {
	ctx := context.Background()

	suite.mockRepo.On("EnabledModules", ctx, suite.tenantID).Return([]string{"clients", "accounts"}, nil)

	err := suite.service.Enable(ctx, suite.admin, suite.tenantID, "accounts")
	suite.NoError(err)
	suite.mockRepo.AssertNotCalled(suite.T(), "SetEnabled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.Empty(suite.notifier.Events())
}

func (suite *EntitlementServiceTestSuite) TestEnable_UnknownModule() {
	err := suite.service.Enable(context.Background(), suite.admin, suite.tenantID, "billing")
	suite.ErrorIs(err, ErrUnknownModule)
}

func (suite *EntitlementServiceTestSuite) TestEnable_RequiresTenantAdmin() {
	staff := common.Identity{UserID: uuid.New(), TenantID: suite.tenantID, Role: models.RoleStaff}
	err := suite.service.Enable(context.Background(), staff, suite.tenantID, "clients")
	suite.ErrorIs(err, ErrInsufficientRole)
}

func (suite *EntitlementServiceTestSuite) TestEnable_CrossTenantDenied() {
	other := common.Identity{UserID: uuid.New(), TenantID: uuid.New(), Role: models.RoleTenantAdmin}
	err := suite.service.Enable(context.Background(), other, suite.tenantID, "clients")
	suite.ErrorIs(err, ErrCrossTenant)
}

func (suite *EntitlementServiceTestSuite) TestDisable_Success() {
	ctx := context.Background()

	suite.mockRepo.On("EnabledModules", ctx, suite.tenantID).Return([]string{"clients", "accounts"}, nil)
	suite.mockRepo.On("SetEnabled", ctx, suite.tenantID, "accounts", false, mock.AnythingOfType("*models.EntitlementChange")).Return(nil)
	suite.mockCache.On("InvalidateEnabledModules", ctx, suite.tenantID).Return(nil)

	err := suite.service.Disable(ctx, suite.admin, suite.tenantID, "accounts")
	suite.NoError(err)

	published := suite.notifier.ByType(events.TypeEntitlementChanged)
	suite.Require().Len(published, 1)
	suite.False(published[0].Payload.(events.EntitlementChanged).Enabled)
}

func (suite *EntitlementServiceTestSuite) TestDisable_DependentsStillEnabled() {
	ctx := context.Background()

	suite.mockRepo.On("EnabledModules", ctx, suite.tenantID).Return([]string{"clients", "accounts", "reports"}, nil)

	err := suite.service.Disable(ctx, suite.admin, suite.tenantID, "accounts")
	suite.ErrorIs(err, ErrDependentsStillEnabled)
	suite.mockRepo.AssertNotCalled(suite.T(), "SetEnabled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.Empty(suite.notifier.Events())
}

func (suite *EntitlementServiceTestSuite) TestDisable_AlreadyDisabledIsNoop() {
	ctx := context.Background()

	suite.mockRepo.On("EnabledModules", ctx, suite.tenantID).Return([]string{"clients"}, nil)

	err := suite.service.Disable(ctx, suite.admin, suite.tenantID, "accounts")
	suite.NoError(err)
	suite.mockRepo.AssertNotCalled(suite.T(), "SetEnabled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.Empty(suite.notifier.Events())
}

func (suite *EntitlementServiceTestSuite) TestIsEnabled_CacheHit() {
	ctx := context.Background()

	suite.mockCache.On("GetEnabledModules", ctx, suite.tenantID).Return([]string{"clients", "tasks"}, true, nil)

	enabled, err := suite.service.IsEnabled(ctx, suite.tenantID, "tasks")
	suite.NoError(err)
	suite.True(enabled)
	suite.mockRepo.AssertNotCalled(suite.T(), "EnabledModules", mock.Anything, mock.Anything)
}

func (suite *EntitlementServiceTestSuite) TestIsEnabled_CacheMissFallsThrough() {
	ctx := context.Background()

	suite.mockCache.On("GetEnabledModules", ctx, suite.tenantID).Return(nil, false, nil)
	suite.mockRepo.On("EnabledModules", ctx, suite.tenantID).Return([]string{"clients"}, nil)
	suite.mockCache.On("SetEnabledModules", ctx, suite.tenantID, []string{"clients"}, enabledModulesTTL).Return(nil)

	enabled, err := suite.service.IsEnabled(ctx, suite.tenantID, "accounts")
	suite.NoError(err)
	suite.False(enabled)
}

func (suite *EntitlementServiceTestSuite) TestHistory_Success() {
	ctx := context.Background()
	changes := []*models.EntitlementChange{{ID: uuid.New(), TenantID: suite.tenantID, ModuleCode: "clients"}}

	suite.mockRepo.On("ListChanges", ctx, suite.tenantID, 50, 0).Return(changes, nil)

	got, err := suite.service.History(ctx, suite.admin, suite.tenantID, 0, -1)
	suite.NoError(err)
	suite.Equal(changes, got)
}

func (suite *EntitlementServiceTestSuite) TestHistory_StaffDenied() {
	staff := common.Identity{UserID: uuid.New(), TenantID: suite.tenantID, Role: models.RoleStaff}
	_, err := suite.service.History(context.Background(), staff, suite.tenantID, 10, 0)
	suite.ErrorIs(err, ErrInsufficientRole)
}
