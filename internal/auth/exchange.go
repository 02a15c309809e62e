package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

// TokenClient speaks to the identity provider's OAuth2 token endpoint.
// Both grants return the decoded Identity alongside the new Session so
// callers never hold tokens without knowing who they belong to.
type TokenClient struct {
	Endpoint    string // https://<auth-domain>/oauth2/token
	ClientID    string
	RedirectURI string

	HTTPClient *http.Client
	Logger     logrus.FieldLogger

	now func() time.Time
}

// NewTokenClient builds a client for the given hosted-UI domain.
func NewTokenClient(authDomain, clientID, redirectURI string) *TokenClient {
	return &TokenClient{
		Endpoint:    fmt.Sprintf("https://%s/oauth2/token", authDomain),
		ClientID:    clientID,
		RedirectURI: redirectURI,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		Logger:      logrus.StandardLogger(),
		now:         time.Now,
	}
}

// tokenResponse is the provider's wire shape for both grants.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeAuthorizationCode redeems an authorization code for a fresh
// session. A non-2xx response or malformed payload yields an
// *ExchangeError; there is no retry, the code is single-use anyway.
func (c *TokenClient) ExchangeAuthorizationCode(ctx context.Context, code string) (Identity, *Session, error) {
	form := url.Values{
		"grant_type":   {grantAuthorizationCode},
		"client_id":    {c.ClientID},
		"code":         {code},
		"redirect_uri": {c.RedirectURI},
	}
	return c.exchange(ctx, grantAuthorizationCode, form, "")
}

// Refresh mints a new session from a refresh token. Providers may omit
// a rotated refresh token from the response; the prior one is retained
// in that case so the session can be refreshed again.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (Identity, *Session, error) {
	form := url.Values{
		"grant_type":    {grantRefreshToken},
		"client_id":     {c.ClientID},
		"refresh_token": {refreshToken},
	}
	return c.exchange(ctx, grantRefreshToken, form, refreshToken)
}

func (c *TokenClient) exchange(ctx context.Context, grant string, form url.Values, priorRefreshToken string) (Identity, *Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Identity{}, nil, &ExchangeError{Grant: grant, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Identity{}, nil, &ExchangeError{Grant: grant, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, nil, &ExchangeError{Grant: grant, HTTPStatus: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var provider tokenErrorResponse
		_ = json.Unmarshal(body, &provider)
		msg := provider.ErrorDescription
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Identity{}, nil, &ExchangeError{
			Grant:      grant,
			HTTPStatus: resp.StatusCode,
			Code:       provider.Error,
			Message:    msg,
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Identity{}, nil, &ExchangeError{Grant: grant, HTTPStatus: resp.StatusCode, Message: "malformed token response: " + err.Error()}
	}
	if tr.IDToken == "" || tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return Identity{}, nil, &ExchangeError{Grant: grant, HTTPStatus: resp.StatusCode, Message: "token response missing required fields"}
	}

	identity, err := DecodeIdentity(tr.IDToken)
	if err != nil {
		return Identity{}, nil, &ExchangeError{Grant: grant, HTTPStatus: resp.StatusCode, Message: err.Error()}
	}

	sess := &Session{
		IDToken:      tr.IDToken,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	if sess.RefreshToken == "" && priorRefreshToken != "" {
		c.Logger.WithField("grant", grant).Debug("provider omitted refresh token, retaining prior one")
		sess.RefreshToken = priorRefreshToken
	}
	return identity, sess, nil
}
