package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tichealth/tic-app/conf"
)

func setTestCredentials(t *testing.T) {
	origUser := conf.GetEnv("TIC_DEMO_USERNAME")
	origPass := conf.GetEnv("TIC_DEMO_PASSWORD")
	assert.NoError(t, conf.SetEnv(t, "TIC_DEMO_USERNAME", "demo"))
	assert.NoError(t, conf.SetEnv(t, "TIC_DEMO_PASSWORD", "s3cret"))
	t.Cleanup(func() {
		_ = conf.SetEnv(t, "TIC_DEMO_USERNAME", origUser)
		_ = conf.SetEnv(t, "TIC_DEMO_PASSWORD", origPass)
	})
}

func TestLogin(t *testing.T) {
	setTestCredentials(t)
	rg := NewRegistry()

	session, err := rg.Login("demo", "s3cret")
	assert.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.NotNil(t, session.Store)
	assert.Equal(t, "demo", session.Username)

	assert.Equal(t, session, rg.GetSession(session.Token))
}

func TestLoginInvalidCredential(t *testing.T) {
	setTestCredentials(t)
	rg := NewRegistry()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "demo", "nope"},
		{"wrong username", "nope", "s3cret"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(sub *testing.T) {
			_, err := rg.Login(tt.username, tt.password)
			assert.ErrorIs(sub, err, ErrInvalidCredential)
		})
	}
}

func TestLoginSessionsAreIndependent(t *testing.T) {
	setTestCredentials(t)
	rg := NewRegistry()

	s1, err := rg.Login("demo", "s3cret")
	assert.NoError(t, err)
	s2, err := rg.Login("demo", "s3cret")
	assert.NoError(t, err)

	assert.NotEqual(t, s1.Token, s2.Token)
	assert.NotSame(t, s1.Store, s2.Store)
}

func TestLogout(t *testing.T) {
	setTestCredentials(t)
	rg := NewRegistry()

	session, err := rg.Login("demo", "s3cret")
	assert.NoError(t, err)

	rg.Logout(session.Token)
	assert.Nil(t, rg.GetSession(session.Token))
}

func TestRequireTokenAuth(t *testing.T) {
	setTestCredentials(t)
	rg := NewRegistry()

	session, err := rg.Login("demo", "s3cret")
	assert.NoError(t, err)

	var sawSession *Session
	handler := rg.ParseToken(rg.RequireTokenAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSession = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	// No token.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Unknown token.
	w = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer bogus")
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token.
	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+session.Token)
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session, sawSession)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing", "", ""},
		{"bearer", "Bearer abc123", "abc123"},
		{"case insensitive scheme", "bearer abc123", "abc123"},
		{"wrong scheme", "Basic abc123", ""},
		{"no token", "Bearer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(sub *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(sub, tt.want, bearerToken(r))
		})
	}
}
