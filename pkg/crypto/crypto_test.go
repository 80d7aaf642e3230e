package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	require.True(t, VerifyPassword(hash, "secret"))
	require.False(t, VerifyPassword(hash, "incorrect"))
}

func TestRandomStringUsesAlphabet(t *testing.T) {
	value, err := RandomString(nil, 30, Alphanumeric)
	require.NoError(t, err)
	require.Len(t, value, 30)
	for _, ch := range value {
		require.True(t, strings.ContainsRune(Alphanumeric, ch), "unexpected character %q", ch)
	}
}

func TestRandomStringIsUnpredictable(t *testing.T) {
	seen := make(map[string]struct{}, 500)
	for i := 0; i < 500; i++ {
		value, err := RandomString(nil, 30, Alphanumeric)
		require.NoError(t, err)
		_, dup := seen[value]
		require.False(t, dup, "duplicate token generated")
		seen[value] = struct{}{}
	}
}

func TestRandomStringRejectsBadInput(t *testing.T) {
	_, err := RandomString(nil, 0, Alphanumeric)
	require.Error(t, err)

	_, err = RandomString(nil, 10, "a")
	require.Error(t, err)
}
