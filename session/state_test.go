package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mrsmoothy/events"
	"mrsmoothy/models"
)

func newState(t *testing.T) (*State, *[]events.Event) {
	t.Helper()
	bus := events.NewBus(zap.NewNop())
	var got []events.Event
	bus.SubscribeAll(func(_ context.Context, ev events.Event) { got = append(got, ev) })
	return NewState(NewMemoryStorage(time.Hour), bus, zap.NewNop()), &got
}

func TestLoginLogout(t *testing.T) {
	st, got := newState(t)
	ctx := context.Background()

	assert.Empty(t, st.Token(ctx, "s"))
	assert.Nil(t, st.User(ctx, "s"))

	user := models.User{ID: 1, Username: "ana", Role: models.RoleAdmin}
	require.NoError(t, st.Login(ctx, "s", "tok", user))
	assert.Equal(t, "tok", st.Token(ctx, "s"))
	require.NotNil(t, st.User(ctx, "s"))
	assert.True(t, st.User(ctx, "s").IsAdmin())

	require.NoError(t, st.Logout(ctx, "s"))
	assert.Empty(t, st.Token(ctx, "s"))
	assert.Nil(t, st.User(ctx, "s"))

	require.Len(t, *got, 2)
	assert.Equal(t, events.TopicAuthChanged, (*got)[0].Topic)
	assert.True(t, (*got)[0].Payload.(events.AuthChanged).Authenticated)
	assert.False(t, (*got)[1].Payload.(events.AuthChanged).Authenticated)
}

func TestCorruptUserIsAbsent(t *testing.T) {
	st, _ := newState(t)
	ctx := context.Background()
	require.NoError(t, st.Storage().Set(ctx, "s", KeyUser, []byte("{not json")))
	assert.Nil(t, st.User(ctx, "s"))
}

func TestRecordGuestOrder(t *testing.T) {
	st, _ := newState(t)
	ctx := context.Background()

	require.NoError(t, st.RecordGuestOrder(ctx, "s", 10, "5551234567"))
	require.NoError(t, st.RecordGuestOrder(ctx, "s", 11, ""))
	require.NoError(t, st.RecordGuestOrder(ctx, "s", 10, "5559876543"))

	assert.Equal(t, []int64{10, 11}, st.GuestOrderIDs(ctx, "s"))
	assert.Equal(t, "5559876543", st.GuestPhone(ctx, "s"))
	assert.True(t, st.OwnsGuestOrder(ctx, "s", 11))
	assert.False(t, st.OwnsGuestOrder(ctx, "s", 12))
	assert.False(t, st.OwnsGuestOrder(ctx, "other", 10))
}

func TestRotateMovesGuestValuesAndDropsOldSession(t *testing.T) {
	st, _ := newState(t)
	ctx := context.Background()
	require.NoError(t, st.RecordGuestOrder(ctx, "old", 7, "5551234567"))
	require.NoError(t, st.Storage().Set(ctx, "old", KeyGuestCart, []byte(`{"items":[]}`)))
	require.NoError(t, st.Login(ctx, "old", "tok", models.User{ID: 1, Username: "ana"}))

	sid, err := st.Rotate(ctx, "old")
	require.NoError(t, err)
	require.NotEqual(t, "old", sid)

	assert.Equal(t, []int64{7}, st.GuestOrderIDs(ctx, sid))
	assert.Equal(t, "5551234567", st.GuestPhone(ctx, sid))
	cart, err := st.Storage().Get(ctx, sid, KeyGuestCart)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(cart))
	assert.Empty(t, st.Token(ctx, sid))

	assert.Empty(t, st.GuestOrderIDs(ctx, "old"))
	assert.Empty(t, st.Token(ctx, "old"))
}

func TestRotateEmptySession(t *testing.T) {
	st, _ := newState(t)
	sid, err := st.Rotate(context.Background(), "fresh")
	require.NoError(t, err)
	assert.NotEmpty(t, sid)
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return s
}

func TestParseBackendClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	c, err := ParseBackendClaims(signed(t, jwt.MapClaims{"sub": "ana", "role": "admin", "exp": exp.Unix()}))
	require.NoError(t, err)
	assert.Equal(t, "ana", c.Subject)
	assert.Equal(t, models.RoleAdmin, c.Role)
	assert.True(t, c.ExpiresAt.Equal(exp))
	assert.False(t, c.Expired(time.Now()))

	c, err = ParseBackendClaims(signed(t, jwt.MapClaims{"sub": "bo", "roles": []string{"ROLE_USER", "ROLE_ADMIN"}}))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, c.Role)

	c, err = ParseBackendClaims(signed(t, jwt.MapClaims{"sub": "cy", "roles": []string{"ROLE_USER"}}))
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, c.Role)

	_, err = ParseBackendClaims("garbage")
	assert.Error(t, err)
}
