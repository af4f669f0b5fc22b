package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func sign(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		require.NoError(t, err)
		role, err := GetUserRoleFromContext(r.Context())
		require.NoError(t, err)
		w.Header().Set("X-User", role)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(strconv.FormatInt(id, 10)))
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	valid := sign(t, testSecret, jwt.MapClaims{
		"user_id": 1000,
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	expired := sign(t, testSecret, jwt.MapClaims{
		"user_id": 1000,
		"role":    "admin",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	forged := sign(t, []byte("other"), jwt.MapClaims{"user_id": 1000, "role": "admin"})

	tests := map[string]struct {
		header string
		want   int
	}{
		"valid":          {"Bearer " + valid, http.StatusOK},
		"lowercase":      {"bearer " + valid, http.StatusOK},
		"missing":        {"", http.StatusUnauthorized},
		"wrong scheme":   {"Basic " + valid, http.StatusUnauthorized},
		"expired":        {"Bearer " + expired, http.StatusUnauthorized},
		"wrong secret":   {"Bearer " + forged, http.StatusUnauthorized},
		"garbage":        {"Bearer not-a-token", http.StatusUnauthorized},
		"no token value": {"Bearer ", http.StatusUnauthorized},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(testSecret)(echoUser(t)).ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				require.Equal(t, "admin", rec.Header().Get("X-User"))
				require.Equal(t, "1000", rec.Body.String())
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	t.Parallel()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := Authorize("admin")(ok)

	serve := func(ctx context.Context) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, serve(WithClaims(context.Background(), jwt.MapClaims{"role": "admin"})))
	require.Equal(t, http.StatusForbidden, serve(WithClaims(context.Background(), jwt.MapClaims{"role": "player"})))
	require.Equal(t, http.StatusForbidden, serve(WithClaims(context.Background(), jwt.MapClaims{"role": 1})))
	require.Equal(t, http.StatusForbidden, serve(context.Background()))
}

func TestWebhookSecret(t *testing.T) {
	t.Parallel()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	serve := func(secret, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhook/events", nil)
		if header != "" {
			req.Header.Set("X-Webhook-Secret", header)
		}
		rec := httptest.NewRecorder()
		WebhookSecret(secret)(ok).ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, serve("hook", "hook"))
	require.Equal(t, http.StatusUnauthorized, serve("hook", "hook2"))
	require.Equal(t, http.StatusUnauthorized, serve("hook", ""))
	// пустой секрет в конфиге не открывает доступ
	require.Equal(t, http.StatusUnauthorized, serve("", ""))
}

func TestGetUserIDFromContext(t *testing.T) {
	t.Parallel()
	tests := []struct {
		claim   interface{}
		want    int64
		wantErr bool
	}{
		{float64(1000), 1000, false},
		{"2000", 2000, false},
		{float64(1.5), 0, true},
		{float64(-1), 0, true},
		{"abc", 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		ctx := WithClaims(context.Background(), jwt.MapClaims{"user_id": tt.claim})
		got, err := GetUserIDFromContext(ctx)
		if tt.wantErr {
			require.Error(t, err, "%v", tt.claim)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}

	_, err := GetUserIDFromContext(context.Background())
	require.Error(t, err)
	_, err = GetUserIDFromContext(WithClaims(context.Background(), jwt.MapClaims{}))
	require.Error(t, err)
}
