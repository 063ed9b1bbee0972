package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 2*time.Second, zap.NewNop())
	require.NoError(t, err)
	return c, srv
}

func TestGetDecodesEnvelopeData(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cup-sizes", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true,"message":"ok","data":[{"id":1,"name":"M"}],"timestamp":"2026-01-01T00:00:00"}`))
	})

	var out []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, c.Get(context.Background(), "/api/cup-sizes", "tok", &out))
	require.Len(t, out, 1)
	assert.Equal(t, "M", out[0].Name)
}

func TestNoTokenMeansNoAuthorizationHeader(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true,"data":null}`))
	})
	require.NoError(t, c.Get(context.Background(), "api/fruits", "", nil))
}

func TestBusinessFailureCarriesServerMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"message":"Pickup time must be in the future"}`))
	})

	err := c.Post(context.Background(), "/api/orders", "", map[string]string{"a": "b"}, nil)
	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, KindBusiness, be.Kind)
	assert.Equal(t, http.StatusBadRequest, be.Status)
	assert.Equal(t, "Pickup time must be in the future", UserMessage(err))
}

func TestSuccessFalseWith200IsBusinessFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"Cart is empty"}`))
	})
	err := c.Post(context.Background(), "/api/orders", "t", struct{}{}, nil)
	assert.Equal(t, "Cart is empty", UserMessage(err))
}

func TestNotFoundMatchesSentinel(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	err := c.Get(context.Background(), "/api/orders/9", "", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)
	srv.Close()

	err = c.Get(context.Background(), "/api/fruits", "", nil)
	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, KindNetwork, be.Kind)
	assert.Equal(t, MsgUnreachable, UserMessage(err))
}

func TestUndecodableDataIsDecodeError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":"not a list"}`))
	})
	var out []int
	err := c.Get(context.Background(), "/x", "", &out)
	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, KindDecode, be.Kind)
	assert.Equal(t, MsgGeneric, UserMessage(err))
}

func TestNoContentDeleteSucceeds(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.Delete(context.Background(), "/api/cart/items/abc", "tok"))
}

func TestEmptyBodyStillFailsWhenDataIsExpected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	var out []int
	err := c.Get(context.Background(), "/api/fruits", "", &out)
	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, KindDecode, be.Kind)
}

func TestFilterMessage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Phone number is invalid", "Phone number is invalid"},
		{"", MsgGeneric},
		{"Blocked by CORS policy", MsgGeneric},
		{"TypeError: Failed to fetch", MsgGeneric},
		{"java.lang.NullPointerException at line 3", MsgGeneric},
		{"net::ERR_CONNECTION_REFUSED", MsgGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FilterMessage(tt.in), tt.in)
	}
}

func TestResolveURL(t *testing.T) {
	c, err := New("http://backend:8081/", time.Second, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "", c.ResolveURL(""))
	assert.Equal(t, "http://backend:8081/uploads/mango.png", c.ResolveURL("uploads/mango.png"))
	assert.Equal(t, "http://backend:8081/uploads/mango.png", c.ResolveURL("/uploads/mango.png"))
	assert.Equal(t, "https://cdn.example.com/a.png", c.ResolveURL("https://cdn.example.com/a.png"))
}

func TestUploadSendsMultipart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "kiwi.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(b))
		w.Write([]byte(`{"success":true,"data":{"url":"/uploads/kiwi.png"}}`))
	})

	var out struct {
		URL string `json:"url"`
	}
	err := c.Upload(context.Background(), "/api/admin/upload", "tok", "file", "kiwi.png", strings.NewReader("PNGDATA"), &out)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/kiwi.png", out.URL)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("backend:8081", time.Second, zap.NewNop())
	assert.Error(t, err)
}
