package token

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewJWTCodecRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTCodec([]byte("short")); !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected ErrSecretTooShort, got %v", err)
	}
}

func TestIssueAndValidate(t *testing.T) {
	codec, err := NewJWTCodec(testSecret)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	ctx := context.Background()
	signed, err := codec.Issue(ctx, "account-123", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	subject, err := codec.Validate(ctx, signed)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if subject != "account-123" {
		t.Fatalf("subject = %q, want %q", subject, "account-123")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	codec, err := NewJWTCodec(testSecret)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	ctx := context.Background()
	signed, err := codec.Issue(ctx, "account-123", time.Millisecond)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := codec.Validate(ctx, signed); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateRejectsTampered(t *testing.T) {
	codec, err := NewJWTCodec(testSecret)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	ctx := context.Background()
	signed, err := codec.Issue(ctx, "account-123", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tampered := signed[:len(signed)-2] + "xx"
	if _, err := codec.Validate(ctx, tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTCodec(testSecret)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	other, err := NewJWTCodec([]byte(strings.Repeat("x", 32)))
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	ctx := context.Background()
	signed, err := issuer.Issue(ctx, "account-123", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := other.Validate(ctx, signed); err == nil {
		t.Fatal("expected token signed with a different secret to be rejected")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	codec, err := NewJWTCodec(testSecret)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := codec.Validate(context.Background(), tokenString); err == nil {
			t.Fatalf("expected %q to be rejected", tokenString)
		}
	}
}
