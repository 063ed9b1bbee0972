package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mrsmoothy/events"
	"mrsmoothy/models"
)

// State is the typed view over one session's stored values. Reads never
// fail: a value that is missing or cannot be parsed is reported as absent.
type State struct {
	store  Storage
	bus    *events.Bus
	logger *zap.Logger
}

func NewState(store Storage, bus *events.Bus, logger *zap.Logger) *State {
	return &State{store: store, bus: bus, logger: logger}
}

// Storage exposes the raw store to packages that keep their own keys.
func (s *State) Storage() Storage { return s.store }

func (s *State) Bus() *events.Bus { return s.bus }

func (s *State) Token(ctx context.Context, sid string) string {
	b, ok := s.read(ctx, sid, KeyToken)
	if !ok {
		return ""
	}
	return string(b)
}

func (s *State) User(ctx context.Context, sid string) *models.User {
	var u models.User
	if !s.readJSON(ctx, sid, KeyUser, &u) {
		return nil
	}
	return &u
}

// Login stores the backend token and profile and announces the change.
func (s *State) Login(ctx context.Context, sid, token string, user models.User) error {
	b, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.store.Set(ctx, sid, KeyToken, []byte(token)); err != nil {
		return err
	}
	if err := s.store.Set(ctx, sid, KeyUser, b); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.Event{
		Topic:     events.TopicAuthChanged,
		SessionID: sid,
		Payload: events.AuthChanged{
			Authenticated: true,
			Username:      user.Username,
			Role:          string(user.Role),
		},
	})
	return nil
}

// Logout forgets the token and profile. Guest data stays.
func (s *State) Logout(ctx context.Context, sid string) error {
	if err := s.store.Delete(ctx, sid, KeyToken, KeyUser); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.Event{
		Topic:     events.TopicAuthChanged,
		SessionID: sid,
		Payload:   events.AuthChanged{Authenticated: false},
	})
	return nil
}

// NewID returns a fresh, unguessable session id.
func NewID() string { return uuid.New().String() }

// Rotate moves the guest values of session oldSID to a new session id and
// drops the old session. Sign-in calls it so an id handed out before
// authentication never becomes an authenticated one.
func (s *State) Rotate(ctx context.Context, oldSID string) (string, error) {
	newSID := NewID()
	for _, key := range []string{KeyGuestCart, KeyGuestOrderIDs, KeyGuestPhone} {
		b, err := s.store.Get(ctx, oldSID, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", key, err)
		}
		if err := s.store.Set(ctx, newSID, key, b); err != nil {
			return "", fmt.Errorf("copy %s: %w", key, err)
		}
	}
	if err := s.store.Delete(ctx, oldSID); err != nil {
		return "", fmt.Errorf("drop old session: %w", err)
	}
	return newSID, nil
}

func (s *State) GuestOrderIDs(ctx context.Context, sid string) []int64 {
	var ids []int64
	s.readJSON(ctx, sid, KeyGuestOrderIDs, &ids)
	return ids
}

func (s *State) OwnsGuestOrder(ctx context.Context, sid string, id int64) bool {
	return slices.Contains(s.GuestOrderIDs(ctx, sid), id)
}

func (s *State) GuestPhone(ctx context.Context, sid string) string {
	b, ok := s.read(ctx, sid, KeyGuestPhone)
	if !ok {
		return ""
	}
	return string(b)
}

// RecordGuestOrder remembers a placed guest order and the phone used for
// it, so the order can be looked up again from this browser.
func (s *State) RecordGuestOrder(ctx context.Context, sid string, id int64, phone string) error {
	ids := s.GuestOrderIDs(ctx, sid)
	if !slices.Contains(ids, id) {
		ids = append(ids, id)
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode guest order ids: %w", err)
	}
	if err := s.store.Set(ctx, sid, KeyGuestOrderIDs, b); err != nil {
		return err
	}
	if phone == "" {
		return nil
	}
	return s.store.Set(ctx, sid, KeyGuestPhone, []byte(phone))
}

func (s *State) read(ctx context.Context, sid, key string) ([]byte, bool) {
	b, err := s.store.Get(ctx, sid, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("session read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return b, true
}

func (s *State) readJSON(ctx context.Context, sid, key string, v any) bool {
	b, ok := s.read(ctx, sid, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		s.logger.Warn("discarding unparseable session value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
