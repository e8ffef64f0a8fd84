package backend

import (
	"context"
	"errors"

	"github.com/valyala/fasthttp"

	"labelmail/models"
)

// GoogleLogin trades a Google access token for a backend session token.
func (c *Client) GoogleLogin(ctx context.Context, googleAccessToken string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	err := c.do(ctx, request{
		op:     "google_login",
		method: fasthttp.MethodPost,
		path:   "/auth/google",
		body:   map[string]string{"access_token": googleAccessToken},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token() == "" {
		return nil, errors.New("backend google_login: response carried no token")
	}
	return &resp, nil
}

// CurrentUser returns the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, request{
		op:     "current_user",
		method: fasthttp.MethodGet,
		path:   "/auth/me",
		token:  token,
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
