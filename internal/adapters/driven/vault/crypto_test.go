package vault

import (
	"bytes"
	"errors"
	"testing"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher([]byte("01234567890123456789012345678901"))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	c := testCipher(t)
	plaintext := []byte(`{"access_token":"BQD...","refresh_token":"AQC...","expires_at":"2025-09-10T13:00:00Z"}`)

	blob, err := c.Seal("spotify_tokens", plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if len(blob) < 1+nonceSize {
		t.Fatalf("blob too short: %d bytes", len(blob))
	}
	if blob[0] != blobVersion {
		t.Errorf("version byte: got %d, want %d", blob[0], blobVersion)
	}
	if bytes.Contains(blob, []byte("access_token")) {
		t.Error("blob contains plaintext")
	}

	got, err := c.Open("spotify_tokens", blob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("got %q, want %q", got, plaintext)
	}
}

func TestCipher_UniqueNonces(t *testing.T) {
	c := testCipher(t)

	a, _ := c.Seal("k", []byte("same"))
	b, _ := c.Seal("k", []byte("same"))
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same value must differ")
	}
}

func TestCipher_BoundToRecordKey(t *testing.T) {
	c := testCipher(t)

	blob, err := c.Seal("spotify_tokens", []byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := c.Open("other_key", blob); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestCipher_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"too short", 16},
		{"too long", 64},
		{"empty", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCipher(make([]byte, tt.keySize))
			if !errors.Is(err, ErrInvalidKeySize) {
				t.Errorf("expected ErrInvalidKeySize, got %v", err)
			}
		})
	}
}

func TestCipher_CorruptBlobs(t *testing.T) {
	c := testCipher(t)
	blob, _ := c.Seal("k", []byte("secret"))

	tampered := append([]byte(nil), blob...)
	tampered[len(tampered)-1] ^= 0xff

	wrongVersion := append([]byte(nil), blob...)
	wrongVersion[0] = 0x02

	tests := []struct {
		name string
		blob []byte
		want error
	}{
		{"empty", nil, ErrInvalidBlobSize},
		{"truncated", blob[:10], ErrInvalidBlobSize},
		{"tampered", tampered, ErrDecryptionFailed},
		{"wrong version", wrongVersion, ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Open("k", tt.blob); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey("correct horse battery staple")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if len(a) != keySize {
		t.Errorf("key length: got %d, want %d", len(a), keySize)
	}

	b, _ := DeriveKey("correct horse battery staple")
	if !bytes.Equal(a, b) {
		t.Error("derivation must be deterministic")
	}

	other, _ := DeriveKey("another passphrase")
	if bytes.Equal(a, other) {
		t.Error("different passphrases must give different keys")
	}

	if _, err := DeriveKey(""); !errors.Is(err, ErrEmptyPassphrase) {
		t.Errorf("expected ErrEmptyPassphrase, got %v", err)
	}
}
