package wallet

import (
	"bytes"
	"errors"
	"testing"
)

// fastParams returns low-cost Argon2 params for fast tests.
func fastParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64, // KiB
		Iterations:  1,
		Parallelism: 1,
	}
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	plaintext := []byte("secret wallet data")
	password := []byte("strong-password-123")

	encrypted, err := Encrypt(plaintext, password, fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if bytes.Contains(encrypted, plaintext) {
		t.Error("ciphertext contains plaintext")
	}

	decrypted, err := Decrypt(encrypted, password)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("decrypted = %q, want %q", decrypted, plaintext)
	}
}

func TestEncrypt_Nondeterministic(t *testing.T) {
	a, _ := Encrypt([]byte("x"), []byte("pw"), fastParams())
	b, _ := Encrypt([]byte("x"), []byte("pw"), fastParams())
	if bytes.Equal(a, b) {
		t.Error("two encryptions should differ")
	}
}

func TestDecrypt_WrongPassword(t *testing.T) {
	encrypted, err := Encrypt([]byte("seed"), []byte("right"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	_, err = Decrypt(encrypted, []byte("wrong"))
	if !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Decrypt() error = %v, want ErrWrongPassword", err)
	}
}

func TestDecrypt_TamperedHeader(t *testing.T) {
	encrypted, err := Encrypt([]byte("seed"), []byte("pw"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	encrypted[0] ^= 0xff
	if _, err := Decrypt(encrypted, []byte("pw")); err == nil {
		t.Error("expected error for tampered salt")
	}
}

func TestDecrypt_TooShort(t *testing.T) {
	if _, err := Decrypt(make([]byte, 10), []byte("pw")); err == nil {
		t.Error("expected error for short input")
	}
}

func TestDecrypt_ZeroParams(t *testing.T) {
	encrypted, _ := Encrypt([]byte("seed"), []byte("pw"), fastParams())
	encrypted[SaltSize+8] = 0
	if _, err := Decrypt(encrypted, []byte("pw")); err == nil {
		t.Error("expected error for zero parallelism")
	}
}
