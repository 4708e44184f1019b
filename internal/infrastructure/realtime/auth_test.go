package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantRoundtrip(t *testing.T) {
	auth := NewChannelAuth("test-secret")

	grant, err := auth.IssueGrant("u-1", "private-student.u-1")
	require.NoError(t, err)
	require.NotEmpty(t, grant)

	assert.NoError(t, auth.VerifyGrant(grant, "u-1", "private-student.u-1"))
}

func TestGrantBoundToUserAndChannel(t *testing.T) {
	auth := NewChannelAuth("test-secret")

	grant, err := auth.IssueGrant("u-1", "private-student.u-1")
	require.NoError(t, err)

	assert.ErrorIs(t, auth.VerifyGrant(grant, "u-2", "private-student.u-1"), ErrGrantMismatch)
	assert.ErrorIs(t, auth.VerifyGrant(grant, "u-1", "private-student.u-2"), ErrGrantMismatch)
}

func TestGrantRejectsTamperingAndWrongSecret(t *testing.T) {
	auth := NewChannelAuth("test-secret")
	other := NewChannelAuth("other-secret")

	grant, err := auth.IssueGrant("u-1", "presence-offering.o-1")
	require.NoError(t, err)

	assert.ErrorIs(t, other.VerifyGrant(grant, "u-1", "presence-offering.o-1"), ErrGrantInvalid)
	assert.ErrorIs(t, auth.VerifyGrant(grant+"x", "u-1", "presence-offering.o-1"), ErrGrantInvalid)
	assert.ErrorIs(t, auth.VerifyGrant("", "u-1", "presence-offering.o-1"), ErrGrantInvalid)
}

func TestRequiresGrantOnlyForProtectedKinds(t *testing.T) {
	assert.True(t, RequiresGrant("private-student.u-1"))
	assert.True(t, RequiresGrant("presence-offering.o-1"))
	assert.False(t, RequiresGrant("offerings"))
}
