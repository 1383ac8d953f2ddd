package crypto

import (
	"strings"
	"testing"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sealed, err := Encrypt("refresh-token-value", testKey)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if strings.Contains(sealed, "refresh-token-value") {
		t.Fatal("ciphertext leaks plaintext")
	}

	plain, err := Decrypt(sealed, testKey)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "refresh-token-value" {
		t.Fatalf("expected round trip, got %q", plain)
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	a, err := Encrypt("same", testKey)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := Encrypt("same", testKey)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if a == b {
		t.Fatal("expected fresh nonce per encryption")
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	sealed, err := Encrypt("secret", testKey)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	if _, err := Decrypt(sealed, otherKey); err == nil {
		t.Fatal("expected decryption with wrong key to fail")
	}
}

func TestDecryptGarbageFails(t *testing.T) {
	if _, err := Decrypt("not-hex", testKey); err == nil {
		t.Fatal("expected error for malformed ciphertext")
	}
}
