package usecase

import (
	"testing"
	"time"

	"github.com/AzielCF/az-speed/core/settings/application"
	"github.com/AzielCF/az-speed/core/settings/infrastructure"
	"github.com/AzielCF/az-speed/pkg/crypto"
	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/stretchr/testify/require"
)

const testUser = "admin"

func newTestStore(t *testing.T) *application.Store {
	t.Helper()
	return application.NewStore(infrastructure.NewMemorySettingsRepository(), crypto.NewSealer("test-secret"))
}

func newTestSigner() *security.Signer {
	return security.NewSigner("test-secret", time.Hour)
}

func issue(t *testing.T, s *security.Signer, action string) string {
	t.Helper()
	token, err := s.Issue(action, testUser)
	require.NoError(t, err)
	return token
}
