package cipher

import (
	"bytes"
	"testing"
)

// FuzzEncryptDecrypt checks that AES-256-CTR round-trips arbitrary
// plaintext through a fresh engine's active slot.
func FuzzEncryptDecrypt(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte("hello"))
	f.Add(make([]byte, 1000))

	f.Fuzz(func(t *testing.T, plaintext []byte) {
		e, err := NewEngine()
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}

		ciphertext, err := e.Encrypt(e.ActiveIndex(), plaintext)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if len(ciphertext) != len(plaintext) {
			t.Fatalf("ciphertext length = %d, want %d", len(ciphertext), len(plaintext))
		}

		decrypted, err := e.Decrypt(e.ActiveIndex(), ciphertext)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Fatalf("round trip failed: got %v, want %v", decrypted, plaintext)
		}
	})
}
