package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/geoseo-backend/internal/data/repos"
	"github.com/yungbote/geoseo-backend/internal/domain/auth"
	"github.com/yungbote/geoseo-backend/internal/platform/apierr"
	"github.com/yungbote/geoseo-backend/internal/platform/dbctx"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

var ErrMissingToken = errors.New("missing bearer token")

// IdentityClaims are the claims issued by the platform's auth service.
type IdentityClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type IdentityService interface {
	// Resolve turns a bearer token into a user id. An empty token yields
	// ErrMissingToken wrapped in a 401.
	Resolve(ctx context.Context, tokenString string) (uuid.UUID, error)
	// RequireElevated resolves the token and checks user_roles for admin or
	// super_admin.
	RequireElevated(ctx context.Context, tokenString string) (uuid.UUID, error)
}

type identityService struct {
	log    *logger.Logger
	roles  repos.UserRoleRepo
	secret []byte
}

func NewIdentityService(baseLog *logger.Logger, roles repos.UserRoleRepo, secret string) IdentityService {
	return &identityService{
		log:    baseLog.With("service", "IdentityService"),
		roles:  roles,
		secret: []byte(secret),
	}
}

func (s *identityService) Resolve(ctx context.Context, tokenString string) (uuid.UUID, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return uuid.Nil, apierr.New(http.StatusUnauthorized, "unauthorized", ErrMissingToken)
	}
	if len(s.secret) == 0 {
		return uuid.Nil, fmt.Errorf("identity service has no signing secret")
	}
	claims := &IdentityClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		s.log.Debug("token rejected", "error", err)
		return uuid.Nil, apierr.Unauthorized("Invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, apierr.Unauthorized("Invalid token subject")
	}
	return userID, nil
}

func (s *identityService) RequireElevated(ctx context.Context, tokenString string) (uuid.UUID, error) {
	userID, err := s.Resolve(ctx, tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	ok, err := s.roles.HasAnyRole(dbctx.Context{Ctx: ctx}, userID, auth.ElevatedRoles)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		s.log.Info("elevated role required", "user_id", userID)
		return uuid.Nil, apierr.Forbidden("Insufficient permissions")
	}
	return userID, nil
}

// BearerToken strips the "Bearer " prefix from an Authorization header.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
