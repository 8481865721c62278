package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/pkg/token"
)

type resetPayload struct {
	ID       string `json:"id"`
	Subject  string `json:"sub"`
	ExpireAt int64  `json:"exp"`
}

func TestGenerateParse_RoundTrip(t *testing.T) {
	t.Parallel()

	in := resetPayload{ID: "42", Subject: "password_reset", ExpireAt: 1700000000}

	tok, err := token.Generate(in, "secret")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	out, err := token.Parse[resetPayload](tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := token.Generate(resetPayload{ID: "42"}, "secret")
	require.NoError(t, err)

	_, err = token.Parse[resetPayload](tok, "other-secret")
	assert.ErrorIs(t, err, token.ErrBadSignature)
}

func TestParse_TamperedPayload(t *testing.T) {
	t.Parallel()

	tok, err := token.Generate(resetPayload{ID: "42"}, "secret")
	require.NoError(t, err)

	tampered := "x" + tok
	_, err = token.Parse[resetPayload](tampered, "secret")
	assert.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "nodot", "a.b.c"} {
		_, err := token.Parse[resetPayload](tok, "secret")
		assert.ErrorIs(t, err, token.ErrMalformedToken, "token %q", tok)
	}
}
