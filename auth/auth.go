// Package auth signs shoppers in and out through the backend and keeps the
// result in their session.
package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"mrsmoothy/cart"
	"mrsmoothy/models"
	"mrsmoothy/session"
)

var (
	ErrCredentialsRequired = errors.New("username and password are required")
	ErrEmailRequired       = errors.New("email is required")
)

type Poster interface {
	Post(ctx context.Context, path, token string, body, out any) error
}

type Service struct {
	api    Poster
	state  *session.State
	guest  *cart.GuestStore
	server cart.ItemAdder
	logger *zap.Logger
}

func New(api Poster, state *session.State, guest *cart.GuestStore, server cart.ItemAdder, logger *zap.Logger) *Service {
	return &Service{api: api, state: state, guest: guest, server: server, logger: logger}
}

// LoginResult reports the signed-in user and what happened to the guest
// cart. MigrationError is set when some guest items stayed behind.
// SessionID is the rotated session the shopper continues in; it is empty
// when no sign-in happened.
type LoginResult struct {
	User           models.User `json:"user"`
	MigratedItems  int         `json:"migratedItems"`
	MigrationError error       `json:"-"`
	SessionID      string      `json:"-"`
}

func (s *Service) Login(ctx context.Context, sid string, creds models.Credentials) (*LoginResult, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrCredentialsRequired
	}
	var resp models.AuthResponse
	if err := s.api.Post(ctx, "/api/auth/login", "", creds, &resp); err != nil {
		return nil, err
	}
	return s.start(ctx, sid, resp)
}

// Register creates the account. When the backend answers with a token the
// shopper is signed in right away.
func (s *Service) Register(ctx context.Context, sid string, reg models.Registration) (*LoginResult, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	if reg.Username == "" || reg.Password == "" {
		return nil, ErrCredentialsRequired
	}
	if strings.TrimSpace(reg.Email) == "" {
		return nil, ErrEmailRequired
	}
	var resp models.AuthResponse
	if err := s.api.Post(ctx, "/api/auth/register", "", reg, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return &LoginResult{User: resp.User}, nil
	}
	return s.start(ctx, sid, resp)
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	return s.state.Logout(ctx, sid)
}

func (s *Service) start(ctx context.Context, oldSID string, resp models.AuthResponse) (*LoginResult, error) {
	sid, err := s.state.Rotate(ctx, oldSID)
	if err != nil {
		return nil, err
	}
	if err := s.state.Login(ctx, sid, resp.Token, resp.User); err != nil {
		return nil, err
	}
	s.logger.Info("user signed in", zap.String("username", resp.User.Username))

	res := &LoginResult{User: resp.User, SessionID: sid}
	res.MigratedItems, res.MigrationError = s.guest.MigrateToServer(ctx, sid, resp.Token, s.server)
	if res.MigrationError != nil {
		s.logger.Warn("guest cart partially migrated",
			zap.String("username", resp.User.Username),
			zap.Int("migrated", res.MigratedItems),
			zap.Error(res.MigrationError))
	}
	return res, nil
}
