package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/custodia-labs/scorelink/internal/core/domain"
)

// maxUnbiasedByte is the largest multiple of len(PKCEAlphabet) that fits in a byte.
// Bytes at or above it are discarded so every character is equally likely.
const maxUnbiasedByte = 256 - 256%len(domain.PKCEAlphabet)

// PKCEGenerator produces code verifiers and S256 challenges
type PKCEGenerator struct {
	length int
	random io.Reader
}

// NewPKCEGenerator creates a generator for verifiers of the given length.
// A nil random source uses crypto/rand.
func NewPKCEGenerator(length int, random io.Reader) (*PKCEGenerator, error) {
	if length < domain.MinVerifierLength || length > domain.MaxVerifierLength {
		return nil, fmt.Errorf("%w: verifier length %d outside %d..%d",
			domain.ErrInvalidInput, length, domain.MinVerifierLength, domain.MaxVerifierLength)
	}
	if random == nil {
		random = rand.Reader
	}
	return &PKCEGenerator{length: length, random: random}, nil
}

// Generate returns a fresh verifier and its challenge.
// It panics if the random source fails, since no attempt can proceed without one.
func (g *PKCEGenerator) Generate() domain.PKCEPair {
	verifier := make([]byte, 0, g.length)
	buf := make([]byte, g.length)
	for len(verifier) < g.length {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			panic(fmt.Sprintf("pkce: read random source: %v", err))
		}
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			verifier = append(verifier, domain.PKCEAlphabet[int(b)%len(domain.PKCEAlphabet)])
			if len(verifier) == g.length {
				break
			}
		}
	}

	v := string(verifier)
	return domain.PKCEPair{Verifier: v, Challenge: CodeChallenge(v)}
}

// CodeChallenge derives the S256 challenge: base64url without padding of SHA-256(verifier)
func CodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
