package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelmail/models"
	"labelmail/session"
	"labelmail/utils"
)

func errorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := utils.AsAppError(err); ok {
		return c.Status(appErr.Code).JSON(fiber.Map{"error": appErr.Message})
	}
	return fiber.DefaultErrorHandler(c, err)
}

func TestCSRFProtection(t *testing.T) {
	app := fiber.New()
	app.Use(CSRFProtection())
	app.Get("/token", func(c *fiber.Ctx) error {
		return c.SendString(CSRFToken(c))
	})
	app.Post("/mutate", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/token", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	token := string(body)
	require.NotEmpty(t, token)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	tests := []struct {
		name   string
		cookie bool
		header string
		form   string
		want   int
	}{
		{"header", true, token, "", fiber.StatusOK},
		{"form field", true, "", token, fiber.StatusOK},
		{"missing", true, "", "", fiber.StatusForbidden},
		{"mismatch", true, "other", "", fiber.StatusForbidden},
		{"no cookie", false, token, "", fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.form != "" {
				req = httptest.NewRequest(http.MethodPost, "/mutate", strings.NewReader("_csrf="+tt.form))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			} else {
				req = httptest.NewRequest(http.MethodPost, "/mutate", nil)
			}
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			if tt.cookie {
				req.AddCookie(cookies[0])
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCSRFTokenReusesCookie(t *testing.T) {
	app := fiber.New()
	app.Get("/token", func(c *fiber.Ctx) error {
		return c.SendString(CSRFToken(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "existing", string(body))
	assert.Empty(t, resp.Cookies())
}

func TestLocaleMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(LocaleMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("lang").(string))
	})

	tests := []struct {
		name   string
		query  string
		cookie string
		accept string
		want   string
	}{
		{"default", "", "", "", "en"},
		{"header", "", "", "ja-JP,ja;q=0.9", "ja"},
		{"cookie beats header", "", "en", "ja", "en"},
		{"query beats cookie", "ja", "en", "", "ja"},
		{"unsupported", "fr", "", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/"
			if tt.query != "" {
				target += "?lang=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "lang", Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	app := fiber.New()
	app.Use(rl.Handler())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	now := time.Now()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))

	now = now.Add(time.Hour)
	rl.evict()
	assert.Empty(t, rl.clients)
	rl.Stop()
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	app := fiber.New()
	app.Use(rl.Handler())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestRequireAuth(t *testing.T) {
	sessions, err := session.NewManager(fibersession.New(), "secret", time.Hour)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Get("/login", func(c *fiber.Ctx) error {
		_, err := sessions.Issue(c, &models.AuthResponse{JWTToken: "opaque"}, "")
		return err
	})
	app.Get("/auth", RequireGuest(sessions), func(c *fiber.Ctx) error {
		return c.SendString("login page")
	})
	protected := app.Group("", RequireAuth(sessions))
	protected.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.SendString(CurrentSession(c).AccessToken)
	})
	protected.Get("/api/folders", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth", resp.Header.Get("Location"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/folders", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("HX-Request", "true")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/auth", resp.Header.Get("HX-Redirect"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "opaque", string(body))

	req = httptest.NewRequest(http.MethodGet, "/auth", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestIsAPIRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/*", func(c *fiber.Ctx) error {
		if IsAPIRequest(c) {
			return c.SendString("api")
		}
		return c.SendString("page")
	})

	for path, want := range map[string]string{
		"/api/emails": "api",
		"/api":        "api",
		"/apidocs":    "page",
		"/dashboard":  "page",
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, want, string(body), path)
	}
	assert.False(t, IsAPIRequest(nil))
}
