package api

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestSignerRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	s, err := NewSigner([]byte("secret"), "issuer")
	if err != nil {
		t.Fatal(err)
	}
	token, err := s.Issue(addr, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != addr {
		t.Errorf("subject = %s, want %s", got.Hex(), addr.Hex())
	}
}

func TestSignerRejects(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	issue := func(t *testing.T, secret, issuer string, who common.Address, at time.Time, ttl time.Duration) string {
		t.Helper()
		s, err := NewSigner([]byte(secret), issuer)
		if err != nil {
			t.Fatal(err)
		}
		s.now = func() time.Time { return at }
		token, err := s.Issue(who, ttl)
		if err != nil {
			t.Fatal(err)
		}
		return token
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not.a.jwt", ErrInvalidToken},
		{"expired", issue(t, "secret", "issuer", addr, base.Add(-2*time.Hour), time.Hour), ErrInvalidToken},
		{"wrong secret", issue(t, "other", "issuer", addr, base, time.Hour), ErrInvalidToken},
		{"wrong issuer", issue(t, "secret", "someone-else", addr, base, time.Hour), ErrInvalidToken},
		{"zero subject", issue(t, "secret", "issuer", common.Address{}, base, time.Hour), ErrInvalidToken},
	}

	v, err := NewSigner([]byte("secret"), "issuer")
	if err != nil {
		t.Fatal(err)
	}
	v.now = func() time.Time { return base }

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner(nil, "issuer"); err == nil {
		t.Error("expected error for empty secret")
	}
}
