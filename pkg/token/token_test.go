package token_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountkit/accountkit/pkg/token"
)

type payload struct {
	Subject string `json:"sub"`
	Expires int64  `json:"exp"`
}

func TestGenerateParse(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		in := payload{Subject: "user-1", Expires: 1700000000}
		tok, err := token.Generate(in, "secret")
		require.NoError(t, err)
		require.Contains(t, tok, ".")

		out, err := token.Parse[payload](tok, "secret")
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		t.Parallel()

		tok, err := token.Generate(payload{Subject: "user-1"}, "secret")
		require.NoError(t, err)

		_, err = token.Parse[payload](tok, "other-secret")
		assert.ErrorIs(t, err, token.ErrSignatureInvalid)
	})

	t.Run("tampered payload fails", func(t *testing.T) {
		t.Parallel()

		tok, err := token.Generate(payload{Subject: "user-1"}, "secret")
		require.NoError(t, err)

		parts := strings.SplitN(tok, ".", 2)
		tampered := parts[0][:len(parts[0])-2] + "xx" + "." + parts[1]

		_, err = token.Parse[payload](tampered, "secret")
		assert.Error(t, err)
	})

	t.Run("malformed tokens fail", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"", "nodot", "a.b.c", "!!!.???"} {
			_, err := token.Parse[payload](raw, "secret")
			assert.ErrorIs(t, err, token.ErrInvalidToken, "token %q", raw)
		}
	})
}
