package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"dhruva/internal/audit"
	"dhruva/internal/platform/metrics"
	"dhruva/internal/user"
	"dhruva/internal/user/store"
	"dhruva/internal/user/token"
	dErrors "dhruva/pkg/domain-errors"
	"dhruva/pkg/platform/sentinel"
	"dhruva/pkg/requestcontext"
)

// Login failures never reveal whether the username exists.
const loginFailedMessage = "invalid username or password"

// Service owns account lifecycle: signup, login, wallet-first auth and
// profile management.
type Service struct {
	store   store.Store
	tokens  *token.Issuer
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store store.Store, tokens *token.Issuer, auditPub *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		tokens:  tokens,
		audit:   auditPub,
		metrics: m,
		logger:  logger,
	}
}

// SignupParams carries everything a password signup accepts.
type SignupParams struct {
	Username      string    `json:"username"`
	Password      string    `json:"password"`
	Role          user.Role `json:"role"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Organisation  string    `json:"organisation"`
	WalletAddress string    `json:"walletAddress"`
}

// Session is an authenticated account plus its bearer token.
type Session struct {
	Account *user.Account `json:"user"`
	Token   string        `json:"token"`
}

// Signup creates a password-based account.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*Session, error) {
	if params.Username == "" || params.Password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "username and password are required")
	}
	if params.Role == "" {
		params.Role = user.RoleUser
	}
	if !user.ValidRole(params.Role) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "role must be one of: user, org, verifier")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	account := &user.Account{
		ID:            uuid.NewString(),
		Username:      params.Username,
		PasswordHash:  string(hash),
		WalletAddress: strings.ToLower(params.WalletAddress),
		Role:          params.Role,
		Name:          params.Name,
		Email:         params.Email,
		Organisation:  params.Organisation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username or wallet address already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.UsersCreated.Inc()
	s.audit.Emit(ctx, audit.Event{
		Actor:  account.Username,
		Action: audit.ActionUserCreated,
		Detail: string(account.Role),
	})
	s.logger.InfoContext(ctx, "user created", "username", account.Username, "role", account.Role)

	return s.session(ctx, account)
}

// Login verifies a password and returns a fresh session. The failure
// message is identical for unknown users and wrong passwords.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "username and password are required")
	}

	account, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, loginFailedMessage)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	// Wallet-first accounts have no password and cannot log in this way.
	if account.PasswordHash == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, loginFailedMessage)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, loginFailedMessage)
	}

	return s.session(ctx, account)
}

// Auth returns the account bound to a wallet, creating one on first sight.
func (s *Service) Auth(ctx context.Context, wallet string) (*Session, error) {
	if wallet == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "walletAddress is required")
	}
	wallet = strings.ToLower(wallet)

	account, err := s.store.FindByWallet(ctx, wallet)
	if err == nil {
		return s.session(ctx, account)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	suffix := strings.TrimPrefix(wallet, "0x")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	now := requestcontext.Now(ctx)
	account = &user.Account{
		ID:            uuid.NewString(),
		Username:      "user_" + suffix,
		WalletAddress: wallet,
		Role:          user.RoleUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, account); err != nil {
		// Lost a race to another first-sight auth for the same wallet.
		if errors.Is(err, sentinel.ErrConflict) {
			if existing, findErr := s.store.FindByWallet(ctx, wallet); findErr == nil {
				return s.session(ctx, existing)
			}
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.UsersCreated.Inc()
	s.audit.Emit(ctx, audit.Event{
		Actor:  wallet,
		Action: audit.ActionUserCreated,
		Detail: "wallet-first",
	})
	return s.session(ctx, account)
}

// LinkWallet binds a wallet address to an existing password account.
func (s *Service) LinkWallet(ctx context.Context, username, wallet string) (*user.Account, error) {
	if username == "" || wallet == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "username and walletAddress are required")
	}
	wallet = strings.ToLower(wallet)

	account, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if account.WalletAddress == wallet {
		return account, nil
	}

	account.WalletAddress = wallet
	account.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "wallet address already linked to another account")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to link wallet")
	}

	s.audit.Emit(ctx, audit.Event{
		Actor:  account.Username,
		Action: audit.ActionWalletLinked,
		Detail: wallet,
	})
	return account, nil
}

// GetByWallet returns the account for an address.
func (s *Service) GetByWallet(ctx context.Context, wallet string) (*user.Account, error) {
	account, err := s.store.FindByWallet(ctx, strings.ToLower(wallet))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return account, nil
}

// UpdateProfile applies a partial profile update. Only the wallet's owner,
// as established by the auth middleware, may update it.
func (s *Service) UpdateProfile(ctx context.Context, wallet string, update user.ProfileUpdate) (*user.Account, error) {
	wallet = strings.ToLower(wallet)
	if caller := requestcontext.Wallet(ctx); !strings.EqualFold(caller, wallet) {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot modify another user's profile")
	}
	if update.Role != nil && !user.ValidRole(*update.Role) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "role must be one of: user, org, verifier")
	}

	account, err := s.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		account.Name = *update.Name
	}
	if update.Email != nil {
		account.Email = *update.Email
	}
	if update.Organisation != nil {
		account.Organisation = *update.Organisation
	}
	if update.DID != nil {
		account.DID = *update.DID
	}
	if update.Role != nil {
		account.Role = *update.Role
	}
	account.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Update(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	return account, nil
}

func (s *Service) session(ctx context.Context, account *user.Account) (*Session, error) {
	signed, err := s.tokens.Issue(account, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &Session{Account: account, Token: signed}, nil
}
