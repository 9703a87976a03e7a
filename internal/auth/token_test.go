package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte("test-secret")

func TestVerifyValidToken(t *testing.T) {
	tok, err := IssueToken("u1", secret, "idp", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := NewTokenVerifier(secret, "idp").Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != "u1" {
		t.Errorf("user id = %q, want %q", id, "u1")
	}
}

func TestVerifyRejects(t *testing.T) {
	good, _ := IssueToken("u1", secret, "idp", time.Hour)
	expired, _ := IssueToken("u1", secret, "idp", -time.Minute)
	otherKey, _ := IssueToken("u1", []byte("other"), "idp", time.Hour)
	otherIssuer, _ := IssueToken("u1", secret, "someone-else", time.Hour)
	noSubject, _ := IssueToken("", secret, "idp", time.Hour)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1", Issuer: "idp"}).SignedString(secret)
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject: "u1", Issuer: "idp", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"truncated", good[:len(good)-4]},
		{"expired", expired},
		{"wrong key", otherKey},
		{"wrong issuer", otherIssuer},
		{"missing subject", noSubject},
		{"missing expiry", noExpiry},
		{"wrong algorithm", hs512},
	}
	v := NewTokenVerifier(secret, "idp")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestVerifyWithoutIssuerCheck(t *testing.T) {
	tok, _ := IssueToken("u1", secret, "anyone", time.Hour)

	id, err := NewTokenVerifier(secret, "").Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != "u1" {
		t.Errorf("user id = %q, want %q", id, "u1")
	}
}
