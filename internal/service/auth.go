package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"mme/config"
	"mme/internal/core"
	"mme/internal/dto"
	cErr "mme/internal/pkg/error"
	"mme/internal/telemetry"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

type AuthService struct {
	logger *zap.Logger
	trace  *telemetry.Trace
	admin  config.Admin
	now    func() time.Time
}

func NewAuthService(conf *config.Configuration, logger *zap.Logger, trace *telemetry.Trace) *AuthService {
	return &AuthService{
		logger: logger,
		trace:  trace,
		admin:  conf.Admin,
		now:    time.Now,
	}
}

// Login checks the configured admin credentials and issues an HS256 session token.
func (s *AuthService) Login(ctx context.Context, input *dto.LoginDto) (_ *dto.LoginResponseDto, returnedError error) {
	_, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if !s.configured() {
		return nil, cErr.ServiceUnavailable("admin login is not configured")
	}
	userOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(s.admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(input.Password), []byte(s.admin.Password)) == 1
	if !userOK || !passOK {
		s.logger.Warn("admin login rejected", zap.String("username", input.Username))
		return nil, cErr.Unauthorized("invalid username or password")
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(time.Duration(s.admin.TokenTTLMinutes) * time.Minute)
	claims := core.AdminClaims{
		Username: s.admin.Username,
		Role:     core.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.admin.Username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.admin.JWTSecret))
	if err != nil {
		return nil, cErr.InternalServer("sign admin token: " + err.Error())
	}
	return &dto.LoginResponseDto{Token: token, ExpiresAt: expiresAt}, nil
}

// ParseToken validates signature, expiry and role of an admin session token.
func (s *AuthService) ParseToken(token string) (*core.AdminClaims, error) {
	if !s.configured() {
		return nil, cErr.ServiceUnavailable("admin login is not configured")
	}
	claims := &core.AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.admin.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, cErr.InvalidSession("invalid or expired session token")
	}
	if claims.Role != core.RoleAdmin {
		return nil, cErr.Forbidden("admin role required")
	}
	return claims, nil
}

func (s *AuthService) configured() bool {
	return s.admin.Username != "" && s.admin.Password != "" && s.admin.JWTSecret != ""
}
