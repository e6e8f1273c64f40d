package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEventData(t *testing.T) {
	t.Run("nil payload encodes to nil", func(t *testing.T) {
		raw, err := EncodeEventData("theme_toggle", nil)
		require.NoError(t, err)
		assert.Nil(t, raw)
	})

	t.Run("known type with declared attributes", func(t *testing.T) {
		raw, err := EncodeEventData("theme_toggle", map[string]any{"theme": "dark"})
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, "dark", decoded["theme"])
	})

	t.Run("known type rejects undeclared attributes", func(t *testing.T) {
		_, err := EncodeEventData("theme_toggle", map[string]any{"theme": "dark", "injected": "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "injected")
	})

	t.Run("unknown type passes through untouched", func(t *testing.T) {
		raw, err := EncodeEventData("scroll_depth", map[string]any{"depth": 75})
		require.NoError(t, err)
		assert.JSONEq(t, `{"depth": 75}`, string(raw))
	})
}
