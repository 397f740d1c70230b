package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/giantswarm/youtube-oauth/domain"
)

// secretBytes is the entropy of verifiers and state values (256 bits).
const secretBytes = 32

// PKCEGenerator produces S256 verifier/challenge pairs (RFC 7636).
type PKCEGenerator struct {
	random io.Reader
}

// NewPKCEGenerator returns a generator reading from crypto/rand.
func NewPKCEGenerator() *PKCEGenerator {
	return &PKCEGenerator{random: rand.Reader}
}

// NewPKCEGeneratorWithReader returns a generator reading from r.
// Only tests should pass anything other than crypto/rand.Reader.
func NewPKCEGeneratorWithReader(r io.Reader) *PKCEGenerator {
	return &PKCEGenerator{random: r}
}

// Generate returns a fresh verifier and its challenge.
func (g *PKCEGenerator) Generate() (domain.PKCEChallenge, error) {
	verifier, err := randomURLSafe(g.random, secretBytes)
	if err != nil {
		return domain.PKCEChallenge{}, domain.NewExternalServiceError("pkce", "failed to generate code verifier", err)
	}
	return domain.PKCEChallenge{
		Verifier:  verifier,
		Challenge: ChallengeS256(verifier),
	}, nil
}

// ChallengeS256 returns base64url(SHA256(verifier)) without padding.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyChallenge reports whether challenge was derived from verifier.
func VerifyChallenge(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	computed := ChallengeS256(verifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// GenerateState returns a 256-bit CSRF state value.
func GenerateState() (string, error) {
	state, err := randomURLSafe(rand.Reader, secretBytes)
	if err != nil {
		return "", domain.NewExternalServiceError("state", "failed to generate state value", err)
	}
	return state, nil
}

func randomURLSafe(r io.Reader, n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
