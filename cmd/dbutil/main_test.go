package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashFromInput(t *testing.T) {
	tests := []struct {
		name     string
		arg      string
		stdin    string
		password string
	}{
		{name: "argument", arg: "s3cret", password: "s3cret"},
		{name: "stdin line", stdin: "from-stdin\n", password: "from-stdin"},
		{name: "stdin without newline", stdin: "no-newline", password: "no-newline"},
		{name: "argument wins", arg: "arg", stdin: "stdin\n", password: "arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hashFromInput(tt.arg, strings.NewReader(tt.stdin))
			require.NoError(t, err)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(tt.password)))
		})
	}
}

func TestHashFromInputEmpty(t *testing.T) {
	_, err := hashFromInput("", strings.NewReader("\n"))
	assert.Error(t, err)
}

func TestConfirm(t *testing.T) {
	assert.NoError(t, confirm(strings.NewReader("yes\n"), ""))
	assert.Error(t, confirm(strings.NewReader("no\n"), ""))
	assert.Error(t, confirm(strings.NewReader(""), ""))
}
