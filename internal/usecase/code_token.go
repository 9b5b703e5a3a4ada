package usecase

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"
)

const codePrefix = "CODE-"

// generateCodeToken creates a secure random redemption code.
// Format: CODE-XXXXXXXX where X is an uppercase hex digit. The suffix comes
// from crypto/rand only, so a token is never derivable from order ids,
// timestamps or sequence numbers.
func generateCodeToken() (string, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return codePrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}
