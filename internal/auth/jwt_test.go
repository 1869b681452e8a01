package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/sakif/eventhub/internal/model"
)

// newTestTokenService uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short", time.Hour); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	if ts.TTL() != 24*time.Hour {
		t.Errorf("TTL() = %v, want 24h", ts.TTL())
	}
}

// =========================================================================
// GENERATE / VALIDATE
// =========================================================================

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123", model.RoleUser)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("Generate() token doesn't look like a JWT: %q", token)
	}
}

func TestValidate_RoundTripCarriesRole(t *testing.T) {
	ts := newTestTokenService(t)

	for _, role := range []model.Role{model.RoleUser, model.RoleAdmin} {
		token, err := ts.Generate("user-abc", role)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		got, err := ts.Validate(token)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		want := Identity{UserID: "user-abc", Role: role}
		if got != want {
			t.Errorf("Validate() = %+v, want %+v", got, want)
		}
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	other, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", time.Hour)

	valid, _ := ts.Generate("user-123", model.RoleUser)
	expired, _ := ts.GenerateWithDuration("user-123", model.RoleUser, -time.Second)
	foreign, _ := other.Generate("user-123", model.RoleUser)
	noSubject, _ := ts.Generate("", model.RoleUser)
	badRole, _ := ts.Generate("user-123", model.Role("superuser"))

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"tampered signature", valid[:len(valid)-3] + "xxx"},
		{"signed with another secret", foreign},
		{"empty", ""},
		{"garbage", "not.a.jwt.token"},
		{"no subject", noSubject},
		{"unknown role", badRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Fatal("Validate() should return an error")
			}
		})
	}
}
