package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	app "spotserv/src/app"
	cfg "spotserv/src/configuration"
	db "spotserv/src/repository"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	stateCookieTTL     = 10 * time.Minute
	callbackCookieName = "callback"
)

var errAuthUnavailable = errors.New("sign-in is not configured")

type (
	// IdentityProvider runs the authorization code flow against the IdP.
	IdentityProvider interface {
		AuthCodeURL(state string) string
		Exchange(ctx context.Context, code string) (app.User, error)
	}

	oidcIdentity struct {
		config   *oauth2.Config
		verifier *oidc.IDTokenVerifier
	}

	AuthHandler struct {
		identity IdentityProvider
		app      *AppHandler
		config   *cfg.Properties
	}
)

func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewAuthHandler discovers the OIDC provider. When discovery fails the
// handler still serves but every auth route answers 503.
func NewAuthHandler(ctx context.Context, config *cfg.Properties, logger *zap.Logger) *AuthHandler {
	if config.Auth.Host == "" {
		logger.Warn("AUTH_HOST is empty, sign-in is disabled")
		return &AuthHandler{}
	}
	provider, err := oidc.NewProvider(ctx, config.Auth.Host)
	if err != nil {
		logger.Error("error creating OIDC provider", zap.String("host", config.Auth.Host), zap.Error(err))
		return &AuthHandler{}
	}
	logger.Info("oidc provider ready", zap.String("auth_url", provider.Endpoint().AuthURL))
	return NewAuthHandlerWith(&oidcIdentity{
		config: &oauth2.Config{
			ClientID:     config.Auth.ID,
			ClientSecret: config.Auth.Secret,
			RedirectURL:  config.Auth.Redirect,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: config.Auth.ID}),
	})
}

func NewAuthHandlerWith(identity IdentityProvider) *AuthHandler {
	return &AuthHandler{identity: identity}
}

func (a *AuthHandler) attach(config *cfg.Properties, handler *AppHandler) {
	a.config = config
	a.app = handler
}

func (o *oidcIdentity) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// Exchange swaps the code for tokens and reads the user from the ID token.
func (o *oidcIdentity) Exchange(ctx context.Context, code string) (app.User, error) {
	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return app.User{}, fmt.Errorf("error getting access token: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return app.User{}, errors.New("no ID token found in token response")
	}
	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return app.User{}, fmt.Errorf("error verifying ID token: %w", err)
	}
	var claims struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Nickname string `json:"nickname"`
		Picture  string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return app.User{}, fmt.Errorf("can not parse ID token claims: %w", err)
	}
	name := claims.Name
	if name == "" {
		name = claims.Nickname
	}
	return app.User{ID: idToken.Subject, Email: claims.Email, Name: name, Picture: claims.Picture}, nil
}

func (a *AuthHandler) ready(c *gin.Context) bool {
	if a.identity == nil || a.app == nil || a.app.sessions == nil {
		abortWithError(c, http.StatusServiceUnavailable, errAuthUnavailable)
		return false
	}
	return true
}

func (a *AuthHandler) newState(c *gin.Context) (string, bool) {
	state, err := randString(16)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, fmt.Errorf("can not create state: %w", err))
		return "", false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.config.Auth.StateCookieName, state, int(stateCookieTTL.Seconds()), "/", a.config.Auth.CookieDomain, secure(c), true)
	return state, true
}

// Login returns the IdP address for clients that navigate themselves.
func (a *AuthHandler) Login(c *gin.Context) {
	if !a.ready(c) {
		return
	}
	state, ok := a.newState(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ref": a.identity.AuthCodeURL(state)})
}

func (a *AuthHandler) Signin(c *gin.Context) {
	if !a.ready(c) {
		return
	}
	state, ok := a.newState(c)
	if !ok {
		return
	}
	c.Redirect(http.StatusFound, a.identity.AuthCodeURL(state))
}

// Callback finishes the code flow, seeds the profile and opens a session.
func (a *AuthHandler) Callback(c *gin.Context) {
	if !a.ready(c) {
		return
	}
	expected, err := c.Cookie(a.config.Auth.StateCookieName)
	if err != nil || expected == "" || c.Query("state") != expected {
		abortWithError(c, http.StatusBadRequest, errors.New("no current state found"))
		return
	}
	c.SetCookie(a.config.Auth.StateCookieName, "", -1, "/", a.config.Auth.CookieDomain, secure(c), true)

	ctx := c.Request.Context()
	user, err := a.identity.Exchange(ctx, c.Query("code"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if user.ID == "" {
		abortWithError(c, http.StatusBadRequest, errors.New("ID token has no subject"))
		return
	}
	if _, err := a.app.profiles.Upsert(ctx, app.ProfileFromUser(user)); err != nil {
		a.app.respondError(c, err)
		return
	}

	token, expires, err := a.app.sessions.Issue(user.ID)
	if err != nil {
		a.app.respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.config.Auth.SessionCookieName, token, int(time.Until(expires).Seconds()), "/", a.config.Auth.CookieDomain, secure(c), true)
	c.Redirect(http.StatusFound, a.redirectTarget(c))
}

// redirectTarget honours the callback cookie when it points at this site or
// an allowed origin.
func (a *AuthHandler) redirectTarget(c *gin.Context) string {
	target, err := c.Cookie(callbackCookieName)
	if err != nil || target == "" {
		return "/"
	}
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return target
	}
	for _, origin := range a.config.Server.AllowOrigins {
		if target == origin || strings.HasPrefix(target, origin+"/") {
			return target
		}
	}
	return "/"
}

func (a *AuthHandler) Logout(c *gin.Context) {
	if a.app != nil && a.app.sessions != nil {
		if token := sessionToken(c, a.config.Auth.SessionCookieName); token != "" {
			a.app.sessions.Revoke(token)
		}
	}
	c.SetCookie(a.config.Auth.SessionCookieName, "", -1, "/", a.config.Auth.CookieDomain, secure(c), true)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Account returns the signed-in user, seeded from the profile.
func (a *AuthHandler) Account(c *gin.Context) {
	id := currentUser(c)
	profile, err := a.app.profiles.Get(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondOK(c, http.StatusOK, app.User{ID: id})
		return
	}
	if err != nil {
		a.app.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, app.User{
		ID:      profile.ID,
		Email:   profile.Email,
		Name:    profile.FullName,
		Picture: profile.AvatarURL,
	})
}

func secure(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}
