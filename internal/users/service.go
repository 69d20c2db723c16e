package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/throttle"
)

type Service struct {
	store   Store
	tokens  *auth.TokenManager
	limiter throttle.LoginLimiter
	cost    int
	now     func() time.Time
}

func NewService(store Store, tokens *auth.TokenManager, limiter throttle.LoginLimiter) *Service {
	if limiter == nil {
		limiter = throttle.Noop{}
	}
	return &Service{
		store:   store,
		tokens:  tokens,
		limiter: limiter,
		cost:    bcrypt.DefaultCost,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, apierr.FromValidation(err)
	}

	existing, err := s.store.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, apierr.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		CreatedAt:    s.now(),
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber.Int64 = *req.PhoneNumber
		u.PhoneNumber.Valid = true
	}

	id, err := s.store.Create(ctx, u)
	if err != nil {
		// Lost the race against a concurrent registration of the same email.
		if apierr.IsDuplicateKey(err) {
			return nil, apierr.Conflict("email already registered")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	u.ID = id

	log.Info().Int64("user_id", id).Str("role", u.Role).Msg("user registered")
	return toUserResponse(u), nil
}

// CreateLibrarian is used by the create-librarian command.
func (s *Service) CreateLibrarian(ctx context.Context, name, email, password string) (*UserResponse, error) {
	return s.Register(ctx, RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     auth.RoleLibrarian,
	})
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return nil, apierr.FromValidation(err)
	}

	if err := s.limiter.Allow(ctx, req.Email); err != nil {
		return nil, err
	}

	u, err := s.store.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if u == nil {
		s.recordFailure(ctx, req.Email)
		return nil, apierr.Unauthenticated("invalid email or password")
	}

	err = bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		s.recordFailure(ctx, req.Email)
		return nil, apierr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}

	if err := s.limiter.Reset(ctx, req.Email); err != nil {
		log.Warn().Err(err).Msg("reset login throttle")
	}

	token, exp, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	log.Info().Int64("user_id", u.ID).Msg("login succeeded")
	return &LoginResponse{Token: token, TokenType: "Bearer", ExpiresAt: exp}, nil
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		log.Warn().Err(err).Msg("record failed login")
	}
}

func (s *Service) Profile(ctx context.Context, id int64) (*UserResponse, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apierr.UserNotFound("user not found")
	}
	return toUserResponse(u), nil
}

// ResolveIdentity implements auth.IdentityResolver.
func (s *Service) ResolveIdentity(ctx context.Context, id int64) (*auth.Identity, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	return &auth.Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}, nil
}

