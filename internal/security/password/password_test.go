package password

import (
	"testing"

	"github.com/5w1tchy/book-reviews/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// small params keep the test fast
var testCfg = config.Argon2Config{Memory: 8 * 1024, Iterations: 1, Parallelism: 1}

func TestHashVerify(t *testing.T) {
	h := NewHasher(testCfg)
	phc, err := h.Hash("correct horse battery")
	require.NoError(t, err)

	ok, rehash, err := h.Verify("correct horse battery", phc)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, rehash)

	ok, _, err = h.Verify("wrong", phc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNeedsRehash_WhenPolicyStrengthens(t *testing.T) {
	phc, err := NewHasher(testCfg).Hash("secret-pass")
	require.NoError(t, err)

	stronger := testCfg
	stronger.Iterations = 2
	assert.True(t, NewHasher(stronger).NeedsRehash(phc))
	assert.True(t, NewHasher(testCfg).NeedsRehash("not-a-phc"))
}

func TestCheck(t *testing.T) {
	_, _, err := Check("  short  ")
	require.ErrorIs(t, err, ErrTooShort)

	trimmed, warn, err := Check("  abcdefgh  ")
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", trimmed)
	require.NotNil(t, warn)
	assert.Equal(t, 1, warn.Score)

	_, warn, err = Check("Tr0ub4dor&3-Horse")
	require.NoError(t, err)
	assert.Nil(t, warn)
}

func TestCheck_HintsLowerScore(t *testing.T) {
	_, warn, err := Check("Alice2024xyz", "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, warn, "contains the email local part")

	_, warn, err = Check("Zebra2024xyz", "alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, warn)
}
