package session_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/pkg/session"
)

func createSessions(t *testing.T, m *session.Manager, principalID uuid.UUID, metas []session.DeviceMeta) {
	t.Helper()
	for _, meta := range metas {
		_, err := m.Create(context.Background(), principalID, meta)
		require.NoError(t, err)
	}
}

func TestSecurityReport_CleanAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t)
	principalID := uuid.New()
	createSessions(t, m, principalID, []session.DeviceMeta{
		{Device: "laptop", IP: "203.0.113.1"},
		{Device: "phone", IP: "203.0.113.2"},
	})

	report, err := m.SecurityReport(ctx, principalID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ActiveSessions)
	assert.Equal(t, 2, report.UniqueIPs)
	assert.Equal(t, 2, report.UniqueDevices)
	assert.Empty(t, report.SuspiciousIPs)
	assert.Equal(t, 100, report.Score)
}

func TestSecurityReport_NoSessions(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	report, err := m.SecurityReport(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, report.ActiveSessions)
	assert.Equal(t, 100, report.Score)
}

func TestSecurityReport_Penalties(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("many sessions", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)
		principalID := uuid.New()
		createSessions(t, m, principalID, []session.DeviceMeta{
			{IP: "203.0.113.1"}, {IP: "203.0.113.2"},
			{IP: "203.0.113.1"}, {IP: "203.0.113.2"},
		})

		report, err := m.SecurityReport(ctx, principalID)
		require.NoError(t, err)
		assert.Equal(t, 4, report.ActiveSessions)
		// >3 sessions (−20) and two IPs each shared by two sessions (−40).
		assert.Equal(t, []string{"203.0.113.1", "203.0.113.2"}, report.SuspiciousIPs)
		assert.Equal(t, 40, report.Score)
	})

	t.Run("ip spread", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)
		principalID := uuid.New()
		createSessions(t, m, principalID, []session.DeviceMeta{
			{IP: "203.0.113.1"}, {IP: "203.0.113.2"}, {IP: "203.0.113.3"},
		})

		report, err := m.SecurityReport(ctx, principalID)
		require.NoError(t, err)
		assert.Equal(t, 3, report.UniqueIPs)
		assert.Equal(t, 70, report.Score, "only the >2 IPs penalty applies")
	})

	t.Run("all penalties floor above zero", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)
		principalID := uuid.New()
		createSessions(t, m, principalID, []session.DeviceMeta{
			{IP: "203.0.113.1"}, {IP: "203.0.113.1"},
			{IP: "203.0.113.2"}, {IP: "203.0.113.3"},
		})

		report, err := m.SecurityReport(ctx, principalID)
		require.NoError(t, err)
		assert.Equal(t, []string{"203.0.113.1"}, report.SuspiciousIPs)
		assert.Equal(t, 10, report.Score)
	})

	t.Run("revoked sessions are excluded", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)
		principalID := uuid.New()
		createSessions(t, m, principalID, []session.DeviceMeta{
			{IP: "203.0.113.1"}, {IP: "203.0.113.1"},
		})

		_, err := m.RevokeAll(ctx, principalID)
		require.NoError(t, err)

		report, err := m.SecurityReport(ctx, principalID)
		require.NoError(t, err)
		assert.Zero(t, report.ActiveSessions)
		assert.Equal(t, 100, report.Score)
	})
}
