package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateInviteToken(t *testing.T) {
	t.Parallel()

	t.Run("returns 64 hex characters", func(t *testing.T) {
		token, err := GenerateInviteToken()
		require.NoError(t, err)
		require.Len(t, token, InviteTokenBytes*2)

		_, err = hex.DecodeString(token)
		require.NoError(t, err)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		a, err := GenerateInviteToken()
		require.NoError(t, err)
		b, err := GenerateInviteToken()
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})
}

func TestInviteTokenHashing(t *testing.T) {
	t.Parallel()

	token, err := GenerateInviteToken()
	require.NoError(t, err)

	hash, err := HashInviteToken(token)
	require.NoError(t, err)
	require.NotEqual(t, token, hash)

	t.Run("hash verifies original token", func(t *testing.T) {
		require.True(t, VerifyInviteToken(token, hash))
	})

	t.Run("hash rejects other tokens", func(t *testing.T) {
		other, err := GenerateInviteToken()
		require.NoError(t, err)
		require.False(t, VerifyInviteToken(other, hash))
		require.False(t, VerifyInviteToken("", hash))
	})

	t.Run("hashes are salted", func(t *testing.T) {
		second, err := HashInviteToken(token)
		require.NoError(t, err)
		require.NotEqual(t, hash, second)
		require.True(t, VerifyInviteToken(token, second))
	})
}
