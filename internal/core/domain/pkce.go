package domain

// PKCE verifier length bounds (RFC 7636 section 4.1)
const (
	MinVerifierLength     = 43
	MaxVerifierLength     = 128
	DefaultVerifierLength = 64
)

// PKCEAlphabet is the unreserved character set a code verifier is drawn from.
const PKCEAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// CodeChallengeMethod is the only transform the authorization server is asked to apply.
const CodeChallengeMethod = "S256"

// PKCEPair is a single-use verifier and its derived challenge.
// It lives in memory for one authorization attempt and is never persisted.
type PKCEPair struct {
	Verifier  string
	Challenge string
}
