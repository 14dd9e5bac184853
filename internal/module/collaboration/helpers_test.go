package collaboration

import (
	"context"
	"testing"

	"github.com/crewboard/server/internal/module/identity"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	repo       Repository
	gateway    *identity.MemoryGateway
	service    *Service
	reconciler *Reconciler
	logs       *observer.ObservedLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := NewMemoryRepository()
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	gateway := identity.NewMemoryGateway()
	gateway.Put(&identity.Identity{ID: "U1", FirstName: "Uma", Email: "uma@x.com"})

	service := NewService(repo, gateway, logger)
	return &testEnv{
		repo:       repo,
		gateway:    gateway,
		service:    service,
		reconciler: NewReconciler(service, gateway, "crewboard://join", nil, logger),
		logs:       logs,
	}
}

// createTeam creates a team owned by U1.
func (e *testEnv) createTeam(t *testing.T, name string) *Team {
	t.Helper()
	team, err := e.service.CreateTeam(context.Background(), "U1", &CreateTeamRequest{Name: name})
	require.NoError(t, err)
	return team
}

func ptr[T any](v T) *T {
	return &v
}
