package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/repos"
	"github.com/kizunalabs/kizuna-backend/internal/requestdata"
	"github.com/kizunalabs/kizuna-backend/internal/types"

	apperrors "github.com/kizunalabs/kizuna-backend/internal/pkg/errors"
)

// LoginInput carries credentials plus the optional anonymous-session token.
// When AnonToken is set, posts written before sign-in are folded into the
// account as part of login.
type LoginInput struct {
	Email     string
	Password  string
	AnonToken string
}

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) error
	LoginUser(ctx context.Context, in LoginInput) (string, string, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db               *gorm.DB
	log              *logger.Logger
	userRepo         repos.UserRepo
	userTokenRepo    repos.UserTokenRepo
	reconcileService ReconcileService
	jwtSecretKey     string
	accessTTL        time.Duration
	refreshTTL       time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	reconcileService ReconcileService,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:               db,
		log:              serviceLog,
		userRepo:         userRepo,
		userTokenRepo:    userTokenRepo,
		reconcileService: reconcileService,
		jwtSecretKey:     jwtSecretKey,
		accessTTL:        accessTTL,
		refreshTTL:       refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.DisplayName = strings.TrimSpace(user.DisplayName)
	if user.Email == "" || user.Password == "" {
		return fmt.Errorf("%w: email and password required", apperrors.ErrInvalidArgument)
	}
	if len(user.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", apperrors.ErrInvalidArgument)
	}

	exists, exErr := as.userRepo.EmailExists(ctx, nil, user.Email)
	if exErr != nil {
		return fmt.Errorf("Failed to check email: %w", exErr)
	}
	if exists {
		return fmt.Errorf("%w: email already registered", apperrors.ErrInvalidArgument)
	}

	hashed, hErr := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if hErr != nil {
		return fmt.Errorf("Failed to hash password: %w", hErr)
	}
	user.Password = string(hashed)
	user.ID = uuid.New()

	if _, err := as.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
		return fmt.Errorf("Failed to create user: %w", err)
	}
	return nil
}

func (as *authService) LoginUser(ctx context.Context, in LoginInput) (string, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return "", "", fmt.Errorf("%w: email and password required", apperrors.ErrInvalidArgument)
	}

	users, usErr := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if usErr != nil {
		return "", "", fmt.Errorf("Error retrieving user by email: %w", usErr)
	}
	if len(users) == 0 {
		return "", "", apperrors.ErrUnauthorized
	}
	user := users[0]
	if hErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); hErr != nil {
		return "", "", apperrors.ErrUnauthorized
	}

	var accessToken string
	var refreshToken string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
		if ftErr != nil {
			return fmt.Errorf("Failed to check user tokens: %w", ftErr)
		}
		expired := make([]uuid.UUID, 0, len(foundTokens))
		for _, t := range foundTokens {
			if t != nil && t.ExpiresAt.Before(time.Now()) {
				expired = append(expired, t.ID)
			}
		}
		if dtErr := as.userTokenRepo.DeleteByIDs(ctx, tx, expired); dtErr != nil {
			return fmt.Errorf("Failed to delete expired user tokens: %w", dtErr)
		}

		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return fmt.Errorf("Generate access token error: %w", genErr)
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		userToken := types.UserToken{
			ID:           uuid.New(),
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, ctErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&userToken}); ctErr != nil {
			return fmt.Errorf("Failed to create user token: %w", ctErr)
		}
		return nil
	}); err != nil {
		return "", "", err
	}

	// Best effort: a failed reconciliation must not block login, and the
	// next login with the same token retries it.
	if in.AnonToken != "" {
		if _, rErr := as.reconcileService.Reconcile(ctx, in.AnonToken, user.ID); rErr != nil {
			as.log.Warn("Anonymous post reconciliation failed on login",
				"user_id", user.ID,
				"error", rErr,
			)
		}
	}

	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return "", "", apperrors.ErrUnauthorized
	}

	tokens, tErr := as.userTokenRepo.GetByRefreshTokens(ctx, nil, []string{rd.RefreshToken})
	if tErr != nil {
		return "", "", fmt.Errorf("Failed to look up refresh token: %w", tErr)
	}
	if len(tokens) == 0 || tokens[0] == nil {
		return "", "", apperrors.ErrUnauthorized
	}
	existing := tokens[0]
	if existing.ExpiresAt.Before(time.Now()) {
		_ = as.userTokenRepo.DeleteByIDs(ctx, nil, []uuid.UUID{existing.ID})
		return "", "", apperrors.ErrUnauthorized
	}

	users, uErr := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{existing.UserID})
	if uErr != nil {
		return "", "", fmt.Errorf("Failed to load user for refresh: %w", uErr)
	}
	if len(users) == 0 {
		return "", "", apperrors.ErrUnauthorized
	}
	user := users[0]

	var accessToken string
	var refreshToken string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dErr := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{existing.ID}); dErr != nil {
			return fmt.Errorf("Failed to rotate refresh token: %w", dErr)
		}
		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return fmt.Errorf("Generate access token error: %w", genErr)
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		userToken := types.UserToken{
			ID:           uuid.New(),
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, ctErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&userToken}); ctErr != nil {
			return fmt.Errorf("Failed to create user token: %w", ctErr)
		}
		return nil
	}); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return apperrors.ErrUnauthorized
	}
	return as.userTokenRepo.DeleteByUserIDs(ctx, nil, []uuid.UUID{rd.UserID})
}

// SetContextFromToken validates a bearer token and stashes the caller's
// request data on the context for downstream services.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return ctx, apperrors.ErrUnauthorized
	}

	sub, _ := claims["sub"].(string)
	userID, pErr := uuid.Parse(sub)
	if pErr != nil {
		return ctx, apperrors.ErrUnauthorized
	}

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"iat": now.Unix(),
		"exp": now.Add(as.accessTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}
