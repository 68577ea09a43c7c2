package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// InviteTokenBytes is the entropy of an invitation token before encoding.
// 32 bytes hex-encodes to a 64 character token.
const InviteTokenBytes = 32

// inviteHashCost is the fixed bcrypt work factor for stored token hashes.
const inviteHashCost = 10

// GenerateInviteToken creates a cryptographically secure invitation token.
// The token is returned hex-encoded (64 chars) and is the only copy of the
// secret; callers transmit it out-of-band and persist only the hash.
//
// An error here means the platform's secure RNG is unavailable, which is
// unrecoverable at process level.
func GenerateInviteToken() (string, error) {
	buf := make([]byte, InviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashInviteToken returns a salted bcrypt hash of a plaintext invite token.
// The plaintext is never stored; VerifyInviteToken is the only supported
// comparison.
func HashInviteToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), inviteHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash invite token: %w", err)
	}
	return string(hash), nil
}

// VerifyInviteToken reports whether candidate matches the stored bcrypt hash.
func VerifyInviteToken(candidate, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}
