package identity_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/pantrylink/pantrylink-go/internal/identity"
)

func TestValidUsername(t *testing.T) {
	valid := []string{"bob", "alice_99", "ABC", "a_b_c_1234567890xyz0"}
	for _, u := range valid {
		if !identity.ValidUsername(u) {
			t.Errorf("expected %q to be valid", u)
		}
	}

	invalid := []string{
		"",
		"ab",                     // too short
		strings.Repeat("a", 21),  // too long
		"has space",
		"dash-ed",
		"dot.ted",
		"émile",
		"bob!",
	}
	for _, u := range invalid {
		if identity.ValidUsername(u) {
			t.Errorf("expected %q to be invalid", u)
		}
	}
}

func TestBasicToken(t *testing.T) {
	token := identity.BasicToken("alice_99", "s3cret")

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not base64: %v", err)
	}
	if string(raw) != "alice_99:s3cret" {
		t.Errorf("expected alice_99:s3cret, got %s", raw)
	}
}
