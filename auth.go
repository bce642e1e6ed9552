package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	operatorSubject  = "operator"
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
	minSecretLen     = 16
)

var (
	ErrAuthDisabled  = errors.New("operator control is not configured")
	ErrBadPassphrase = errors.New("invalid passphrase")
	ErrRateLimited   = errors.New("too many login attempts, try again later")
	ErrInvalidToken  = errors.New("invalid token")
)

// Auth gates the control surface behind an operator passphrase. A
// successful login yields an HS256 JWT that spectators present over the
// websocket.
type Auth struct {
	passHash  []byte
	jwtSecret []byte
	ttl       time.Duration

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth prepares the passphrase hash and signing secret. With neither
// passphrase nor hash configured the returned Auth rejects every login.
func NewAuth(cfg AuthConfig) (*Auth, error) {
	a := &Auth{
		ttl:     cfg.TokenTTL,
		rateMap: make(map[string]*rateEntry),
	}
	if a.ttl <= 0 {
		a.ttl = 12 * time.Hour
	}

	switch {
	case cfg.PassphraseHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PassphraseHash)); err != nil {
			return nil, fmt.Errorf("auth.passphrase_hash: %w", err)
		}
		a.passHash = []byte(cfg.PassphraseHash)
	case cfg.Passphrase != "":
		cost := cfg.BcryptCost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Passphrase), cost)
		if err != nil {
			return nil, fmt.Errorf("hash passphrase: %w", err)
		}
		a.passHash = hash
	}

	secret, err := loadOrCreateSecret(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	a.jwtSecret = secret
	return a, nil
}

// loadOrCreateSecret decodes a hex secret, takes a long plain string as is,
// or generates a random per-process secret when none is configured
func loadOrCreateSecret(configured string) ([]byte, error) {
	if configured != "" {
		if b, err := hex.DecodeString(configured); err == nil && len(b) >= minSecretLen {
			return b, nil
		}
		if len(configured) < minSecretLen {
			return nil, fmt.Errorf("auth.jwt_secret must be at least %d characters", minSecretLen)
		}
		return []byte(configured), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	return secret, nil
}

// Enabled reports whether an operator passphrase is configured
func (a *Auth) Enabled() bool {
	return a != nil && len(a.passHash) > 0
}

// Login checks the passphrase and returns a signed token with its expiry
func (a *Auth) Login(passphrase, ip string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, ErrAuthDisabled
	}
	if !a.checkRate(ip) {
		return "", time.Time{}, ErrRateLimited
	}
	if err := bcrypt.CompareHashAndPassword(a.passHash, []byte(passphrase)); err != nil {
		return "", time.Time{}, ErrBadPassphrase
	}
	exp := time.Now().Add(a.ttl)
	token, err := a.generateToken(exp)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, exp, nil
}

// ValidateToken checks signature, expiry and subject
func (a *Auth) ValidateToken(tokenStr string) error {
	if !a.Enabled() {
		return ErrAuthDisabled
	}
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject != operatorSubject {
		return ErrInvalidToken
	}
	return nil
}

func (a *Auth) generateToken(exp time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   operatorSubject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}
