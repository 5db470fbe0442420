package admin

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptLine(t *testing.T) {
	var out bytes.Buffer
	got, err := promptLine(bufio.NewReader(strings.NewReader("  alice \n")), "Username", &out)
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
	assert.Equal(t, "Username: ", out.String())
}

func TestPromptLine_EOF(t *testing.T) {
	var out bytes.Buffer
	got, err := promptLine(bufio.NewReader(strings.NewReader("lastline")), "Email", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = promptLine(bufio.NewReader(strings.NewReader("")), "Email", &out)
	assert.Error(t, err)
}

func TestPromptPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	var out bytes.Buffer
	_, err := promptPassword("Password", &out)
	assert.Error(t, err)
}
