package web

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"labelmail/auth"
	"labelmail/handlers/api"
	"labelmail/models"
	"labelmail/session"
	"labelmail/utils"
)

// Login error codes passed to /auth?error=.
const (
	errDenied = "denied"
	errState  = "state"
	errFailed = "failed"
	errConfig = "config"
)

var loginErrors = map[string]string{
	errDenied: "login_error_denied",
	errState:  "login_error_state",
	errFailed: "login_error_failed",
	errConfig: "login_error_config",
}

// Authenticator trades a Google access token for a backend session.
type Authenticator interface {
	GoogleLogin(ctx context.Context, googleAccessToken string) (*models.AuthResponse, error)
}

type AuthHandler struct {
	*api.Base
	google  *auth.GoogleProvider
	backend Authenticator
}

func NewAuthHandler(base *api.Base, google *auth.GoogleProvider, backend Authenticator) *AuthHandler {
	return &AuthHandler{Base: base, google: google, backend: backend}
}

// Index sends the visitor to the dashboard or the sign-in page.
func (h *AuthHandler) Index(c *fiber.Ctx) error {
	if _, err := h.Sessions.Load(c); err == nil {
		return c.Redirect("/dashboard")
	}
	return c.Redirect("/auth")
}

// ShowLogin renders the sign-in page.
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	data := fiber.Map{"GoogleConfigured": h.google.Configured()}
	if key, ok := loginErrors[c.Query("error")]; ok {
		data["ErrorKey"] = key
	}
	return c.Render("login", page(c, "Sign in", data))
}

// Start redirects to Google's consent page.
func (h *AuthHandler) Start(c *fiber.Ctx) error {
	if !h.google.Configured() {
		return c.Redirect("/auth?error=" + errConfig)
	}
	state := auth.NewState()
	if err := h.Sessions.SetState(c, state); err != nil {
		return utils.InternalServerError("Failed to start sign-in", err)
	}
	return c.Redirect(h.google.AuthURL(state))
}

// Callback finishes the code flow.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if c.Query("error") != "" {
		utils.Log.Info("Google sign-in declined: %s", c.Query("error"))
		return c.Redirect("/auth?error=" + errDenied)
	}

	stored, err := h.Sessions.TakeState(c)
	if err != nil {
		utils.Log.Warn("Failed to read sign-in state: %v", err)
	}
	if err := auth.CheckState(stored, c.Query("state")); err != nil {
		return c.Redirect("/auth?error=" + errState)
	}

	tok, identity, err := h.google.Exchange(c.UserContext(), c.Query("code"))
	if err != nil {
		utils.Log.Error("Google code exchange failed: %v", err)
		return c.Redirect("/auth?error=" + errFailed)
	}
	if identity != nil {
		utils.Log.WithField("sub", identity.Subject).Info("Google sign-in for %s", identity.Email)
	}

	if _, err := h.complete(c, tok.AccessToken); err != nil {
		utils.Log.Error("Backend sign-in failed: %v", err)
		return c.Redirect("/auth?error=" + errFailed)
	}
	return c.Redirect("/dashboard")
}

type tokenLoginRequest struct {
	AccessToken string `json:"access_token"`
}

// TokenLogin signs in with a Google access token obtained in the browser.
func (h *AuthHandler) TokenLogin(c *fiber.Ctx) error {
	var req tokenLoginRequest
	if err := c.BodyParser(&req); err != nil || req.AccessToken == "" {
		return utils.BadRequestError("access_token is required", err)
	}
	s, err := h.complete(c, req.AccessToken)
	if err != nil {
		return h.Fail(c, err)
	}
	return c.JSON(fiber.Map{
		"user":     s.User,
		"redirect": "/dashboard",
	})
}

// complete creates the session and picks the working account.
func (h *AuthHandler) complete(c *fiber.Ctx, googleAccessToken string) (*session.Session, error) {
	resp, err := h.backend.GoogleLogin(c.UserContext(), googleAccessToken)
	if err != nil {
		return nil, err
	}

	var accountID string
	accounts, err := h.Accounts.GmailAccounts(c.UserContext(), resp.Token())
	if err != nil {
		utils.Log.Warn("Failed to list Gmail accounts: %v", err)
	} else {
		accountID = api.PickAccount(accounts)
	}

	return h.Sessions.Issue(c, resp, accountID)
}

// Logout ends the session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.Sessions.Clear(c); err != nil && !errors.Is(err, session.ErrNoSession) {
		utils.Log.Warn("Logout failed: %v", err)
	}
	return c.Redirect("/auth")
}
