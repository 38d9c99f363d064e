package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobcash_portal/internal/backend"
)

func TestRegisterValidation(t *testing.T) {
	valid := gin.H{
		"first_name": "Awa", "last_name": "Kone", "email": "awa@example.com",
		"phone": "70112233", "password": "secret1", "re_password": "secret1",
	}
	with := func(k, v string) gin.H {
		out := gin.H{}
		for key, val := range valid {
			out[key] = val
		}
		out[k] = v
		return out
	}

	tests := []struct {
		name string
		body gin.H
		want string
	}{
		{"short first name", with("first_name", "A"), "Le prénom doit contenir au moins 2 caractères"},
		{"short last name", with("last_name", "K"), "Le nom doit contenir au moins 2 caractères"},
		{"bad email", with("email", "awa.example.com"), "Email invalide"},
		{"short phone", with("phone", "7011"), "Numéro de téléphone invalide"},
		{"short password", with("password", "abc"), "Le mot de passe doit contenir au moins 6 caractères"},
		{"mismatch", with("re_password", "secret2"), "Les mots de passe ne correspondent pas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t)
			w := env.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, errorOf(t, w))
			assert.Empty(t, env.be.registered)
		})
	}

	env := newEnv(t)
	w := env.do(t, http.MethodPost, "/api/auth/register", "", valid)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Compte créé avec succès! Veuillez vous connecter.", decode[map[string]any](t, w)["message"])
	require.Len(t, env.be.registered, 1)
	assert.Equal(t, "secret1", env.be.registered[0].RePassword)
}

func TestLogin(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email_or_phone": "awa@example.com", "password": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.be.loginErr = &backend.APIError{Status: http.StatusUnauthorized}
	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email_or_phone": "awa@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.be.loginErr = nil
	token := env.login(t)

	w = env.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "AK", body["initials"])
}

func TestBlockedUserCannotLogin(t *testing.T) {
	env := newEnv(t)
	env.be.user.IsBlock = true
	w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email_or_phone": "awa@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	env := newEnv(t)
	w := env.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResetPassword(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/reset-password", "", gin.H{"otp": "12a4", "new_password": "secret1", "confirm_new_password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Le code OTP doit contenir 4 chiffres", errorOf(t, w))

	w = env.do(t, http.MethodPost, "/api/auth/reset-password", "", gin.H{"otp": "12345", "new_password": "secret1", "confirm_new_password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/reset-password", "", gin.H{"otp": "1234", "new_password": "secret1", "confirm_new_password": "secret2"})
	assert.Equal(t, "Les mots de passe ne correspondent pas", errorOf(t, w))
	assert.Zero(t, env.be.resets)

	w = env.do(t, http.MethodPost, "/api/auth/reset-password", "", gin.H{"otp": "1234", "new_password": "secret1", "confirm_new_password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mot de passe réinitialisé avec succès!", decode[map[string]any](t, w)["message"])
	assert.Equal(t, 1, env.be.resets)
}

func TestExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	env := newEnv(t)
	token := env.login(t)
	env.be.access = "rotated" // the session still holds access-1

	w := env.do(t, http.MethodGet, "/api/phones", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, env.be.refreshes)

	// The refreshed token was saved with the session
	w = env.do(t, http.MethodGet, "/api/phones", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.be.refreshes)
}

func TestLogoutEndsSession(t *testing.T) {
	env := newEnv(t)
	token := env.login(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/wizard/deposit", token, nil).Code)

	w := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
