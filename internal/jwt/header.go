package jwt

import (
	"strings"
)

const bearerPrefix = "bearer "

// TokenFromHeader extracts the token from an Authorization header value of the
// form "Bearer <token>". The scheme is matched case-insensitively.
func TokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", ErrAuthHeaderMissing
	}

	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrAuthHeaderMalformed
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrAuthHeaderMalformed
	}

	return token, nil
}
