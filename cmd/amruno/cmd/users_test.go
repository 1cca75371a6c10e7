package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/nfrund/amruno/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteUsers(t *testing.T) {
	users := []*domain.User{
		{ID: "1", FullName: "Alice", MobileNumber: "111", Gender: "female", HashedPassword: "secret"},
		{ID: "2", FullName: "Bob", MobileNumber: "222", Gender: "male"},
	}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeUsers(&buf, "table", users))
		out := buf.String()
		assert.Contains(t, out, "MOBILE")
		assert.Contains(t, out, "Alice")
		assert.Contains(t, out, "222")
		assert.Contains(t, out, "2 user(s)")
		assert.NotContains(t, out, "secret")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeUsers(&buf, "json", users))
		var got []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "111", got[0]["mobile_number"])
		assert.NotContains(t, got[0], "hashed_password")
	})

	t.Run("json empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeUsers(&buf, "json", nil))
		assert.JSONEq(t, "[]", buf.String())
	})
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "Amruno v"+version+"\n", buf.String())
}
