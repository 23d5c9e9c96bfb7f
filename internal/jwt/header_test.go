package jwt_test

import (
	"testing"

	"github.com/jamestelfer/jwks-authorizer/internal/jwt"
	"github.com/stretchr/testify/assert"
)

func TestTokenFromHeader(t *testing.T) {
	testCases := []struct {
		header   string
		expected string
		err      error
	}{
		{header: "Bearer abc.def.ghi", expected: "abc.def.ghi"},
		{header: "bearer abc.def.ghi", expected: "abc.def.ghi"},
		{header: "BEARER abc.def.ghi", expected: "abc.def.ghi"},
		{header: "Bearer abc.def.ghi ", expected: "abc.def.ghi"},
		{header: "", err: jwt.ErrAuthHeaderMissing},
		{header: "Bearer", err: jwt.ErrAuthHeaderMalformed},
		{header: "Bearer ", err: jwt.ErrAuthHeaderMalformed},
		{header: "Bearer    ", err: jwt.ErrAuthHeaderMalformed},
		{header: "Basic dXNlcjpwYXNz", err: jwt.ErrAuthHeaderMalformed},
		{header: "abc.def.ghi", err: jwt.ErrAuthHeaderMalformed},
		{header: "Bearerabc.def.ghi", err: jwt.ErrAuthHeaderMalformed},
		{header: "Bearer abc def", err: jwt.ErrAuthHeaderMalformed},
	}

	for _, tc := range testCases {
		t.Run(tc.header, func(t *testing.T) {
			token, err := jwt.TokenFromHeader(tc.header)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.Empty(t, token)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, token)
		})
	}
}
