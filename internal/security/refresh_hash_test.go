package security

import "testing"

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(a))
	}
	if a != HashToken("token-a") {
		t.Error("HashToken should be deterministic")
	}
	if a == HashToken("token-b") {
		t.Error("different tokens should hash differently")
	}
}

func TestTokenHashEqual(t *testing.T) {
	stored := HashToken("presented")
	if !TokenHashEqual("presented", stored) {
		t.Error("matching token should compare equal")
	}
	if TokenHashEqual("other", stored) {
		t.Error("different token should not compare equal")
	}
	if TokenHashEqual("presented", "") {
		t.Error("empty stored hash should not compare equal")
	}
}
