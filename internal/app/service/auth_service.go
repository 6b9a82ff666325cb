package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"blog_api/internal/common"
	"blog_api/internal/domain/model"
	"blog_api/internal/domain/repository"
)

const msgInvalidCredentials = "Could not validate credentials"

type AuthService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{userRepo: userRepo, hasher: hasher, tokens: tokens, now: time.Now}
}

type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
}

type LoginRequest struct {
	Username string `json:"username"` // The account email
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Signup stores a new user and returns its id. A taken email yields
// common.ErrDuplicateIdentity and nothing is written.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (string, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return "", err
	}
	if req.Password == "" {
		return "", common.E(common.ErrBadRequest, "Password is required")
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		Email:          email,
		HashedPassword: hashedPassword,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Address:        strings.TrimSpace(req.Address),
		Blogs:          []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// Login checks the password of the user registered under req.Username and
// issues a token for that email.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	email := strings.TrimSpace(req.Username)
	if email == "" || req.Password == "" {
		return nil, common.E(common.ErrBadRequest, "Username and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Check(req.Password, user.HashedPassword) {
		return nil, common.E(common.ErrInvalidCredential, "Incorrect credentials")
	}

	token, err := s.tokens.Issue(user.Email, s.tokens.TTL())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Resolve loads the user a verified token speaks for. A user deleted after
// the token was issued yields common.ErrUserNotFound.
func (s *AuthService) Resolve(ctx context.Context, subject string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return user, nil
}

// Authenticate verifies token and resolves its subject. Token and lookup
// misses all surface as common.ErrUnauthorized with the precise cause
// wrapped; store failures pass through untouched.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		return nil, common.Wrap(common.ErrUnauthorized, msgInvalidCredentials, err)
	}
	user, err := s.Resolve(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil, common.Wrap(common.ErrUnauthorized, msgInvalidCredentials, err)
		}
		return nil, err
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", common.E(common.ErrBadRequest, "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", common.E(common.ErrBadRequest, "Invalid email address")
	}
	return email, nil
}
