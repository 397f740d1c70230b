package security

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	if len(key) != KeySize {
		t.Errorf("len(key) = %d, want %d", len(key), KeySize)
	}

	key2, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	if bytes.Equal(key, key2) {
		t.Error("GenerateKey() returned identical keys")
	}
}

func TestNewEncryptor(t *testing.T) {
	tests := []struct {
		name        string
		key         []byte
		wantErr     bool
		wantEnabled bool
	}{
		{name: "valid key", key: make([]byte, 32), wantEnabled: true},
		{name: "nil key disables", key: nil},
		{name: "empty key disables", key: []byte{}},
		{name: "short key", key: make([]byte, 16), wantErr: true},
		{name: "long key", key: make([]byte, 64), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncryptor(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEncryptor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if enc.IsEnabled() != tt.wantEnabled {
				t.Errorf("IsEnabled() = %v, want %v", enc.IsEnabled(), tt.wantEnabled)
			}
		})
	}
}

func TestEncryptor_RoundTrip(t *testing.T) {
	key, _ := GenerateKey()
	enc, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}

	tests := []string{
		"ya29.a0AfH6SMBx-access-token",
		"1//0g-refresh-token",
		strings.Repeat("x", 4096),
		"unicode ✓",
	}
	for _, plaintext := range tests {
		ciphertext, err := enc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if ciphertext == plaintext {
			t.Error("Encrypt() returned plaintext")
		}
		got, err := enc.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if got != plaintext {
			t.Errorf("Decrypt() = %q, want %q", got, plaintext)
		}
	}
}

func TestEncryptor_NonceIsRandom(t *testing.T) {
	key, _ := GenerateKey()
	enc, _ := NewEncryptor(key)

	a, _ := enc.Encrypt("same")
	b, _ := enc.Encrypt("same")
	if a == b {
		t.Error("two encryptions of the same plaintext are identical")
	}
}

func TestEncryptor_EmptyStaysEmpty(t *testing.T) {
	key, _ := GenerateKey()
	enc, _ := NewEncryptor(key)

	got, err := enc.Encrypt("")
	if err != nil || got != "" {
		t.Errorf("Encrypt(\"\") = %q, %v; want \"\", nil", got, err)
	}
	got, err = enc.Decrypt("")
	if err != nil || got != "" {
		t.Errorf("Decrypt(\"\") = %q, %v; want \"\", nil", got, err)
	}
}

func TestEncryptor_Disabled(t *testing.T) {
	enc, _ := NewEncryptor(nil)

	got, err := enc.Encrypt("plain")
	if err != nil || got != "plain" {
		t.Errorf("Encrypt() = %q, %v; want pass-through", got, err)
	}
	got, err = enc.Decrypt("plain")
	if err != nil || got != "plain" {
		t.Errorf("Decrypt() = %q, %v; want pass-through", got, err)
	}

	var nilEnc *Encryptor
	if nilEnc.IsEnabled() {
		t.Error("nil encryptor reports enabled")
	}
}

func TestEncryptor_DecryptErrors(t *testing.T) {
	key, _ := GenerateKey()
	enc, _ := NewEncryptor(key)

	if _, err := enc.Decrypt("%%% not base64"); err == nil {
		t.Error("Decrypt() accepted invalid base64")
	}
	short := base64.StdEncoding.EncodeToString([]byte("abc"))
	if _, err := enc.Decrypt(short); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("Decrypt(short) error = %v, want ErrCiphertextTooShort", err)
	}

	otherKey, _ := GenerateKey()
	other, _ := NewEncryptor(otherKey)
	ciphertext, _ := other.Encrypt("secret")
	if _, err := enc.Decrypt(ciphertext); err == nil {
		t.Error("Decrypt() succeeded with the wrong key")
	}
}

func TestKeyFromBase64(t *testing.T) {
	key, _ := GenerateKey()
	got, err := KeyFromBase64(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("KeyFromBase64() error = %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Error("KeyFromBase64() did not round-trip")
	}

	if _, err := KeyFromBase64("not base64!"); err == nil {
		t.Error("KeyFromBase64() accepted invalid base64")
	}
	if _, err := KeyFromBase64(base64.StdEncoding.EncodeToString(make([]byte, 16))); err == nil {
		t.Error("KeyFromBase64() accepted a 16-byte key")
	}
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey("correct horse battery staple")
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if len(a) != KeySize {
		t.Errorf("len(key) = %d, want %d", len(a), KeySize)
	}

	b, _ := DeriveKey("correct horse battery staple")
	if !bytes.Equal(a, b) {
		t.Error("DeriveKey() is not deterministic")
	}
	c, _ := DeriveKey("another secret")
	if bytes.Equal(a, c) {
		t.Error("different secrets derived the same key")
	}

	if _, err := DeriveKey(""); err == nil {
		t.Error("DeriveKey(\"\") succeeded")
	}

	if _, err := NewEncryptor(a); err != nil {
		t.Errorf("derived key rejected by NewEncryptor: %v", err)
	}
}
