package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen  = 4
	defaultTokenTTL = 12 * time.Hour
	adminSubject    = "admin"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator checks the single back-office password and issues admin
// tokens signed with the same key JWTMiddleware verifies.
type Authenticator struct {
	passwordHash []byte
	cfg          JWTConfig
	ttl          time.Duration
	now          func() time.Time
}

func NewAuthenticator(passwordHash string, cfg JWTConfig, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Authenticator{passwordHash: []byte(passwordHash), cfg: cfg, ttl: ttl, now: time.Now}
}

// HashPassword returns the bcrypt hash to store in ADMIN_PASSWORD_HASH.
func HashPassword(raw string) (string, error) {
	if len(raw) < minPasswordLen {
		return "", fmt.Errorf("password must have at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login verifies password and returns a signed admin token.
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if len(a.passwordHash) == 0 || len(password) < minPasswordLen {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.IssueToken(adminSubject, []string{RoleAdmin})
}

func (a *Authenticator) IssueToken(subject string, roles []string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    a.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Roles: roles,
	}
	if a.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.cfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginHandler serves POST /auth/login.
func (a *Authenticator) LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token, exp, err := a.Login(req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not issue token")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: exp})
}
