package livefeed

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestStreamer_AuthorizedRejectsMissingHeader(t *testing.T) {
	s := NewStreamer(Config{SigningSecret: "shh"})
	req := httptest.NewRequest("GET", "/ws/tracking", nil)
	if s.authorized(req) {
		t.Error("expected request with no Authorization header to be rejected")
	}
}

func TestStreamer_AuthorizedAcceptsValidToken(t *testing.T) {
	secret := "shh"
	s := NewStreamer(Config{SigningSecret: secret})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	req := httptest.NewRequest("GET", "/ws/tracking", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	if !s.authorized(req) {
		t.Error("expected valid HS256 token to be accepted")
	}
}

func TestStreamer_AuthorizedRejectsWrongSecret(t *testing.T) {
	s := NewStreamer(Config{SigningSecret: "shh"})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	req := httptest.NewRequest("GET", "/ws/tracking", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	if s.authorized(req) {
		t.Error("expected a token signed with the wrong secret to be rejected")
	}
}

func TestStreamer_Stats_InitiallyEmpty(t *testing.T) {
	s := NewStreamer(Config{})
	clients, framesSent, clientsServed := s.Stats()
	if clients != 0 || framesSent != 0 || clientsServed != 0 {
		t.Errorf("expected all-zero initial stats, got clients=%d framesSent=%d clientsServed=%d",
			clients, framesSent, clientsServed)
	}
}
