package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/furnish-backend/internal/modules/user"
)

const (
	issuer     = "furnish-backend"
	defaultTTL = 12 * time.Hour
)

type service struct {
	userRepo user.Repository
	key      []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates a new auth service signing HS256 tokens with secret.
func NewService(userRepo user.Repository, secret string, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &service{userRepo: userRepo, key: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.userRepo.GetUserByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		// Unknown addresses take as long as wrong passwords.
		bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	claims := &jwt.StandardClaims{
		Subject:   u.ID.String(),
		Issuer:    issuer,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.key)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *service) Authenticate(tokenString string) (string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" || claims.Issuer != issuer {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("furnish-dummy-password"), bcrypt.DefaultCost)
	return h
})
