package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/repos"
	"github.com/intellicoi/coi-backend/internal/types"
)

// VendorTokenService issues and validates the signed tokens embedded in
// vendor portal links. Tokens are HS256 JWTs, but the stored row is
// authoritative: a signature that verifies against a token we never stored
// (or one that was rotated away) is still rejected.
type VendorTokenService interface {
	EnsureToken(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*types.VendorAccessToken, error)
	Validate(ctx context.Context, tokenString string) (*types.VendorAccessToken, error)
}

type vendorTokenClaims struct {
	jwt.RegisteredClaims
}

type vendorTokenService struct {
	log       *logger.Logger
	tokenRepo repos.VendorAccessTokenRepo
	secretKey string
	tokenTTL  time.Duration
}

func NewVendorTokenService(log *logger.Logger, tokenRepo repos.VendorAccessTokenRepo) (VendorTokenService, error) {
	secret := strings.TrimSpace(os.Getenv("PORTAL_TOKEN_SECRET"))
	if secret == "" {
		return nil, fmt.Errorf("missing PORTAL_TOKEN_SECRET")
	}

	ttlDays := 90
	if v := os.Getenv("PORTAL_TOKEN_TTL_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			ttlDays = parsed
		}
	}

	return &vendorTokenService{
		log:       log.With("service", "VendorTokenService"),
		tokenRepo: tokenRepo,
		secretKey: secret,
		tokenTTL:  time.Duration(ttlDays) * 24 * time.Hour,
	}, nil
}

// EnsureToken returns the vendor's current unexpired token, or mints and
// stores a fresh one.
func (vs *vendorTokenService) EnsureToken(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*types.VendorAccessToken, error) {
	existing, err := vs.tokenRepo.GetByVendorID(ctx, tx, vendorID)
	if err == nil && existing != nil && existing.ExpiresAt.After(time.Now()) {
		return existing, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up vendor token: %w", err)
	}

	expiresAt := time.Now().Add(vs.tokenTTL)
	signed, err := vs.sign(vendorID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign vendor token: %w", err)
	}

	token := &types.VendorAccessToken{
		VendorID:  vendorID,
		Token:     signed,
		ExpiresAt: expiresAt,
	}
	created, err := vs.tokenRepo.Upsert(ctx, tx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to store vendor token: %w", err)
	}
	vs.log.Info("Issued vendor portal token", "vendor_id", vendorID.String())
	return created, nil
}

func (vs *vendorTokenService) sign(vendorID uuid.UUID, expiresAt time.Time) (string, error) {
	claims := vendorTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   vendorID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(vs.secretKey))
}

// Validate checks signature and expiry, confirms the token row exists, and
// records the access time.
func (vs *vendorTokenService) Validate(ctx context.Context, tokenString string) (*types.VendorAccessToken, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token required")
	}

	parsedToken, err := jwt.ParseWithClaims(tokenString, &vendorTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(vs.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*vendorTokenClaims)
	if !ok || !parsedToken.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("invalid vendor id in token: %w", err)
	}

	stored, err := vs.tokenRepo.GetByToken(ctx, nil, tokenString)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("token not recognized")
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if stored.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("token expired")
	}

	if err := vs.tokenRepo.TouchLastUsed(ctx, nil, tokenString, time.Now()); err != nil {
		vs.log.Warn("Failed to record token use", "error", err)
	}
	return stored, nil
}
