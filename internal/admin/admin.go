// Package admin issues and checks the auctioneer's bearer token.
//
// The token is base64("ADMIN_" + unix millis). It proves only that the caller
// once presented the access code; it carries no signature and never expires.
// The access code itself may be configured as a bcrypt hash.
package admin

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	dErrors "crewauction/pkg/domain-errors"
)

const tokenPrefix = "ADMIN_"

type Service struct {
	accessCode string
	codeHash   []byte
	now        func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithCodeHash checks the access code against a bcrypt hash instead of the
// plaintext code. An empty hash is ignored.
func WithCodeHash(hash string) Option {
	return func(s *Service) {
		if hash != "" {
			s.codeHash = []byte(hash)
		}
	}
}

func New(accessCode string, opts ...Option) (*Service, error) {
	s := &Service{accessCode: accessCode, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.codeHash != nil {
		if _, err := bcrypt.Cost(s.codeHash); err != nil {
			return nil, fmt.Errorf("admin access code hash: %w", err)
		}
		return s, nil
	}
	if accessCode == "" {
		return nil, errors.New("admin access code is required")
	}
	return s, nil
}

// HashCode returns the bcrypt hash to configure as admin.access_code_hash.
func HashCode(code string) (string, error) {
	if code == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "access code cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeBadRequest, "access code is too long")
		}
		return "", fmt.Errorf("hash access code: %w", err)
	}
	return string(hashed), nil
}

// Issue returns a token when code matches the configured access code.
func (s *Service) Issue(code string) (string, error) {
	if !s.matches(code) {
		return "", dErrors.New(dErrors.CodeAuthFailure, "Invalid admin code")
	}
	raw := tokenPrefix + strconv.FormatInt(s.now().UnixMilli(), 10)
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

func (s *Service) matches(code string) bool {
	if s.codeHash != nil {
		return bcrypt.CompareHashAndPassword(s.codeHash, []byte(code)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(s.accessCode)) == 1
}

// Verify accepts any token that decodes to the admin prefix.
func (s *Service) Verify(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return dErrors.New(dErrors.CodeTokenInvalid, "No token provided")
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil || !strings.HasPrefix(string(raw), tokenPrefix) {
		return dErrors.New(dErrors.CodeTokenInvalid, "Invalid token")
	}
	return nil
}
