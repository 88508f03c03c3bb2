package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Secret1")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "Secret1" {
		t.Fatal("hash must not equal the plain password")
	}

	if err := h.Compare(hash, "Secret1"); err != nil {
		t.Errorf("Compare with correct password returned %v", err)
	}
	if err := h.Compare(hash, "secret1"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Compare with wrong password = %v, want ErrPasswordMismatch", err)
	}
}

func TestNewBcryptHasher_DefaultCost(t *testing.T) {
	if got := NewBcryptHasher(0).Cost; got != bcrypt.DefaultCost {
		t.Errorf("Cost = %d, want %d", got, bcrypt.DefaultCost)
	}
}
