package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftwish/giftwish/token"
)

func TestKeyPairPEMRoundTrip(t *testing.T) {
	keyPair, err := token.GenerateRSAKeyPair("kid-1", 2048)
	require.NoError(t, err)

	privatePEM := keyPair.ExportPrivateKeyPEM()
	publicPEM, err := keyPair.ExportPublicKeyPEM()
	require.NoError(t, err)

	loaded, err := token.LoadKeyPairFromPEM("kid-1", privatePEM, publicPEM)
	require.NoError(t, err)
	assert.True(t, keyPair.PrivateKey.Equal(loaded.PrivateKey))
	assert.True(t, keyPair.PublicKey.Equal(loaded.PublicKey))
}

func TestLoadKeyPairFromPEMRejectsGarbage(t *testing.T) {
	_, err := token.LoadKeyPairFromPEM("kid-1", "not a key", "not a key")
	assert.Error(t, err)
}
