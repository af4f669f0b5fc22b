package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProofKeyIsUnique(t *testing.T) {
	t.Parallel()

	a := ProofKey(7, 3, ".png")
	b := ProofKey(7, 3, ".png")
	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "payments/7/3/"))
	require.True(t, strings.HasSuffix(a, ".png"))
}

func TestExtensionFor(t *testing.T) {
	t.Parallel()

	ext, err := ExtensionFor("image/JPEG; charset=binary")
	require.NoError(t, err)
	require.Equal(t, ".jpg", ext)

	_, err = ExtensionFor("application/pdf")
	require.Error(t, err)
}
