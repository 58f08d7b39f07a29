// Package session persists the signed-in user's token in the workspace.
// Removing the file is what signing out means.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrNoSession = errors.New("not signed in; run sd login --email <address>")

type Session struct {
	Token     string    `yaml:"token"`
	UserID    string    `yaml:"user_id"`
	Email     string    `yaml:"email"`
	FullName  string    `yaml:"full_name,omitempty"`
	ExpiresAt time.Time `yaml:"expires_at"`
}

// Expired reports whether the token lifetime has passed at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Path returns the session file location for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".sprintdesk", "session.yml")
}

// File stores a Session as YAML.
type File struct {
	Path string
	Log  logrus.FieldLogger
	// OnSignOut runs after the file is removed.
	OnSignOut func()
}

func (f File) log() logrus.FieldLogger {
	if f.Log == nil {
		return logrus.StandardLogger()
	}
	return f.Log
}

func (f File) Load() (*Session, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid session file %s: %w", f.Path, err)
	}
	if s.Token == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

func (f File) Save(s Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o600)
}

// SignOut removes the session file. A missing file is not an error.
func (f File) SignOut() {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		f.log().WithError(err).WithField("path", f.Path).Warn("remove session")
	} else {
		f.log().WithField("path", f.Path).Info("signed out")
	}
	if f.OnSignOut != nil {
		f.OnSignOut()
	}
}

// Claims are the token fields the client displays.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Inspect decodes a token without verifying its signature.
func Inspect(token string) (Claims, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Claims{}, fmt.Errorf("decode token: %w", err)
	}
	out := Claims{Subject: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
