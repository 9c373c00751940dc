package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/party-queue-system/pkg/models"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	user := models.CurrentUser{Name: "Dana", SessionCode: "ABC234", IsHost: true}

	token, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got := claims.User(); got != user {
		t.Errorf("User() = %+v, want %+v", got, user)
	}
}

func TestValidateRejects(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	user := models.CurrentUser{Name: "Eli", SessionCode: "XYZ789"}

	good, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	otherKey, err := NewManager("other-secret", time.Hour).GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	expiring := NewManager("test-secret", time.Minute)
	expiring.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiring.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong key", otherKey},
		{"expired", expired},
		{"tampered", good[:len(good)-2] + "xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateToken error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
