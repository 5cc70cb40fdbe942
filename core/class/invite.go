package class

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
)

// invite codes are 8 hex characters
const inviteCodeLen = 8

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLen/2)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating invite code")
	}
	return hex.EncodeToString(buf), nil
}
