package session

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelmail/models"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func newTestApp(t *testing.T, token string) (*fiber.App, *Manager) {
	t.Helper()
	m, err := NewManager(fibersession.New(), "test-secret", time.Hour)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/issue", func(c *fiber.Ctx) error {
		_, err := m.Issue(c, &models.AuthResponse{
			JWTToken: token,
			User:     &models.User{ID: 7, Email: "ann@example.com"},
		}, "")
		return err
	})
	app.Get("/load", func(c *fiber.Ctx) error {
		s, err := m.Load(c)
		if errors.Is(err, ErrNoSession) {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		if err != nil {
			return err
		}
		return c.SendString(s.AccessToken + "|" + s.AccountID + "|" + s.User.Email)
	})
	app.Get("/account/:id", func(c *fiber.Ctx) error {
		return m.SetAccount(c, c.Params("id"))
	})
	app.Get("/logout", func(c *fiber.Ctx) error {
		return m.Clear(c)
	})
	return app, m
}

func do(t *testing.T, app *fiber.App, path string, cookies []*http.Cookie) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestIssueLoadClear(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	app, _ := newTestApp(t, token)

	resp, _ := do(t, app, "/issue", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	_, body := do(t, app, "/load", cookies)
	assert.Equal(t, token+"||ann@example.com", body)

	resp, _ = do(t, app, "/account/acc-1", cookies)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, body = do(t, app, "/load", cookies)
	assert.Equal(t, token+"|acc-1|ann@example.com", body)

	do(t, app, "/logout", cookies)
	resp, _ = do(t, app, "/load", cookies)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLoadWithoutCookie(t *testing.T) {
	app, _ := newTestApp(t, "opaque")
	resp, _ := do(t, app, "/load", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	app, _ := newTestApp(t, signedToken(t, time.Now().Add(-time.Minute)))

	resp, _ := do(t, app, "/issue", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, "/load", resp.Cookies())
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestExpiryOf(t *testing.T) {
	m, err := NewManager(fibersession.New(), "secret", 2*time.Hour)
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	exp := now.Add(30 * time.Minute)
	assert.Equal(t, exp.Unix(), m.expiryOf(signedToken(t, exp)).Unix())
	assert.Equal(t, now.Add(2*time.Hour), m.expiryOf("not-a-jwt"))
}

func TestEncryptDecrypt(t *testing.T) {
	key, err := deriveKey("secret")
	require.NoError(t, err)
	other, err := deriveKey("other")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	sealed, err := encrypt([]byte("token"), key)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "token")

	plain, err := decrypt(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "token", string(plain))

	_, err = decrypt(sealed, other)
	assert.Error(t, err)
	_, err = decrypt("abcd", key)
	assert.Error(t, err)

	_, err = deriveKey("")
	assert.Error(t, err)
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Session{}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now}).Expired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Second)}).Expired(now))
}
