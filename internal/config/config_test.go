package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xueqianLu/ethvault/internal/keystore"
)

func TestScryptCostPresets(t *testing.T) {
	cost, err := LocalConfig{}.ScryptCost()
	require.NoError(t, err)
	assert.Equal(t, keystore.StandardScrypt, cost)

	cost, err = LocalConfig{ScryptPreset: "standard"}.ScryptCost()
	require.NoError(t, err)
	assert.Equal(t, keystore.StandardScrypt, cost)

	cost, err = LocalConfig{ScryptPreset: "light"}.ScryptCost()
	require.NoError(t, err)
	assert.Equal(t, keystore.LightScrypt, cost)

	cost, err = LocalConfig{ScryptPreset: "custom", ScryptN: 8192, ScryptP: 2}.ScryptCost()
	require.NoError(t, err)
	assert.Equal(t, keystore.CustomScrypt(8192, 2), cost)

	_, err = LocalConfig{ScryptPreset: "medium"}.ScryptCost()
	require.Error(t, err)
}
