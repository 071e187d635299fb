package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/mmynk/savingsgroup/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTManager(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)
	actor := models.Actor{UserID: "u-1", MemberID: "m-1", GroupID: "g-1", Role: models.RoleTreasurer}

	t.Run("round trips the actor", func(t *testing.T) {
		token, err := m.Generate(actor)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		claims, err := m.Validate(token)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if got := claims.Actor(); got != actor {
			t.Errorf("Actor() = %+v, want %+v", got, actor)
		}
	})

	tests := []struct {
		name  string
		token func() string
	}{
		{
			name:  "garbage",
			token: func() string { return "not-a-token" },
		},
		{
			name: "other secret",
			token: func() string {
				tok, _ := NewJWTManager("another-secret-another-secret-xx", time.Hour).Generate(actor)
				return tok
			},
		},
		{
			name: "expired",
			token: func() string {
				tok, _ := NewJWTManager(testSecret, -time.Minute).Generate(actor)
				return tok
			},
		},
		{
			name: "unknown role",
			token: func() string {
				tok, _ := m.Generate(models.Actor{UserID: "u-2", Role: "TREASURER_GENERAL"})
				return tok
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Validate(tt.token())
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{header: "Bearer abc.def", want: "abc.def"},
		{header: "", wantErr: ErrMissingToken},
		{header: "Basic abc", wantErr: ErrInvalidToken},
		{header: "Bearer", wantErr: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("BearerToken(%q) error = %v, want %v", tt.header, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
