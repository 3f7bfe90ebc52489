// internal/core/auth/service.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidPIN is returned for a wrong or malformed PIN.
	ErrInvalidPIN = errors.New("PIN inválido")
	// ErrInvalidToken is returned when a session token cannot be trusted.
	ErrInvalidToken = errors.New("token inválido ou expirado")
)

const subject = "conciliacao"

type Service interface {
	Login(ctx context.Context, pin string) (string, error)
	Validate(token string) error
}

type service struct {
	pinHash   []byte
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewService builds the PIN service. pinHash is a bcrypt hash; when only a
// plain pin is configured, it is hashed here.
func NewService(pin, pinHash string, jwtSecret []byte, ttl time.Duration) (Service, error) {
	if len(jwtSecret) == 0 {
		return nil, errors.New("segredo JWT não configurado")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	hash := []byte(pinHash)
	if len(hash) == 0 {
		if !validPIN(pin) {
			return nil, fmt.Errorf("PIN configurado deve ter 4 dígitos")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("erro ao gerar hash do PIN: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("hash do PIN inválido: %w", err)
	}

	return &service{pinHash: hash, jwtSecret: jwtSecret, ttl: ttl, now: time.Now}, nil
}

func (s *service) Login(ctx context.Context, pin string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// 1. Validar o formato do PIN.
	if !validPIN(pin) {
		return "", ErrInvalidPIN
	}

	// 2. Comparar o PIN com o hash configurado.
	if err := bcrypt.CompareHashAndPassword(s.pinHash, []byte(pin)); err != nil {
		return "", ErrInvalidPIN
	}

	// 3. Gerar o token JWT.
	now := s.now()
	claims := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	})

	tokenString, err := claims.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.New("erro ao gerar token de acesso")
	}
	return tokenString, nil
}

func (s *service) Validate(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(subject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
