package config

import (
	"testing"
	"time"
)

func TestSignAndVerifyToken(t *testing.T) {
	cfg := &Config{JWTSecret: "0123456789abcdef0123456789abcdef"}

	token, err := cfg.SignToken("engine-caller", time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	subject, err := cfg.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if subject != "engine-caller" {
		t.Errorf("expected subject %q, got %q", "engine-caller", subject)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	signer := &Config{JWTSecret: "0123456789abcdef0123456789abcdef"}
	verifier := &Config{JWTSecret: "fedcba9876543210fedcba9876543210"}

	token, err := signer.SignToken("engine-caller", time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	if _, err := verifier.VerifyToken(token); err == nil {
		t.Fatal("expected verification to fail with mismatched secret")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	cfg := &Config{JWTSecret: "0123456789abcdef0123456789abcdef"}

	token, err := cfg.SignToken("engine-caller", -time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	if _, err := cfg.VerifyToken(token); err == nil {
		t.Fatal("expected verification to fail for expired token")
	}
}
