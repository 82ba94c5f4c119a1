package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandType(t *testing.T) {
	for _, c := range CommandTypes {
		got, err := ParseCommandType(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseCommandType("reboot")
	assert.ErrorContains(t, err, "unknown command")
	_, err = ParseCommandType("")
	assert.Error(t, err)
	_, err = ParseCommandType("PAUSE")
	assert.Error(t, err)
}
