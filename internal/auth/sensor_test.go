package auth

import (
	"strings"
	"testing"
)

func TestSensorKey(t *testing.T) {
	key, hash, err := GenerateSensorKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(key, "sk_") || len(key) != 3+48 {
		t.Errorf("key = %q, want sk_ followed by 48 hex chars", key)
	}
	if hash == key {
		t.Error("hash must not equal the key")
	}
	if !CheckSensorKey(hash, key) {
		t.Error("key should match its hash")
	}
	if CheckSensorKey(hash, key+"x") {
		t.Error("altered key should not match")
	}

	other, _, _ := GenerateSensorKey()
	if other == key {
		t.Error("keys should be unique")
	}
}
