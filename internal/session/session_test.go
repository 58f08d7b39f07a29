package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSaveLoadSignOut(t *testing.T) {
	f := File{Path: Path(t.TempDir())}
	if _, err := f.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	exp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := f.Save(Session{Token: "tok", UserID: "u1", Email: "ana@example.com", ExpiresAt: exp}); err != nil {
		t.Fatalf("save: %v", err)
	}
	s, err := f.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Token != "tok" || s.Email != "ana@example.com" || !s.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected session %+v", s)
	}

	signedOut := 0
	f.OnSignOut = func() { signedOut++ }
	f.SignOut()
	if _, err := os.Stat(f.Path); !os.IsNotExist(err) {
		t.Fatalf("session file should be removed")
	}
	f.SignOut()
	if signedOut != 2 {
		t.Fatalf("hook calls: %d", signedOut)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yml")
	if err := os.WriteFile(path, []byte("token: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := (File{Path: path}).Load(); err == nil || errors.Is(err, ErrNoSession) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	if (Session{ExpiresAt: now.Add(time.Minute)}).Expired(now) {
		t.Fatalf("future expiry is not expired")
	}
	if !(Session{ExpiresAt: now}).Expired(now) {
		t.Fatalf("expiry at now is expired")
	}
	if (Session{}).Expired(now) {
		t.Fatalf("no expiry never expires")
	}
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(exp)},
		Email:            "ana@example.com",
	})
	signed, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	claims, err := Inspect(signed)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "ana@example.com" || !claims.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := Inspect("not-a-token"); err == nil {
		t.Fatalf("expected decode error")
	}
}
