package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/huquq-center/insaf/internal/transport"
	"github.com/huquq-center/insaf/model"
)

// Portal auth endpoints.
const (
	pathLogin   = "/auth/login"
	pathRefresh = "/auth/refresh"
	pathLogout  = "/auth/logout"
)

// Session performs the portal's authentication operations and owns the
// stored credential pair.
type Session struct {
	transport *transport.Client
	store     Store
	logger    *zap.Logger
	lang      string
}

// NewSession creates a session bound to the given transport and store.
func NewSession(tc *transport.Client, store Store, lang string, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{transport: tc, store: store, logger: logger, lang: lang}
}

// Login exchanges credentials for a token pair and profile snapshot, and
// stores both.
func (s *Session) Login(ctx context.Context, email, password string) (model.Profile, error) {
	var result model.LoginResult
	err := s.transport.Do(ctx, http.MethodPost, pathLogin,
		map[string]string{"email": email, "password": password},
		&result,
		transport.Options{Lang: s.lang, Operation: "login"},
	)
	if err != nil {
		return model.Profile{}, err
	}

	s.store.SetTokens(Tokens{Access: result.AccessToken, Refresh: result.RefreshToken})
	s.store.SetProfile(result.Profile)
	s.logger.Info("logged in", zap.String("email", email))
	return result.Profile, nil
}

// Refresh exchanges the stored refresh token for a new access token and,
// when the server rotates it, a new refresh token. With no stored refresh
// token it fails immediately without a network call. A definitive auth
// failure (401/403 from the refresh endpoint) clears the stored tokens
// proactively; any other failure leaves teardown to the caller.
func (s *Session) Refresh(ctx context.Context) error {
	tokens := s.store.Tokens()
	if tokens.Refresh == "" {
		return model.NewNoRefreshTokenError()
	}

	var result model.RefreshResult
	err := s.transport.Do(ctx, http.MethodPost, pathRefresh,
		map[string]string{"refresh_token": tokens.Refresh},
		&result,
		transport.Options{Lang: s.lang, Operation: "refresh"},
	)
	if err != nil {
		if status := model.StatusOf(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
			s.store.SetTokens(Tokens{})
		}
		return err
	}

	next := Tokens{Access: result.AccessToken, Refresh: tokens.Refresh}
	if result.RefreshToken != "" {
		next.Refresh = result.RefreshToken
	}
	s.store.SetTokens(next)
	s.logger.Debug("access token refreshed")
	return nil
}

// Logout revokes the refresh token on the portal and destroys the local
// session. The local session is destroyed even when revocation fails.
func (s *Session) Logout(ctx context.Context) error {
	tokens := s.store.Tokens()
	defer s.store.Clear()

	if tokens.Refresh == "" {
		return nil
	}
	err := s.transport.Do(ctx, http.MethodPost, pathLogout,
		map[string]string{"refresh_token": tokens.Refresh},
		nil,
		transport.Options{
			Lang:      s.lang,
			Headers:   bearerHeader(tokens.Access),
			Operation: "logout",
		},
	)
	if err != nil {
		s.logger.Warn("logout revocation failed, local session cleared anyway", zap.Error(err))
	}
	return err
}

// Identity is the claim subset read from the stored access token for
// display. The token is parsed without verification: the portal is the
// authority, expiry is discovered reactively through 401 responses.
type Identity struct {
	Subject   string
	Name      string
	Email     string
	ExpiresAt time.Time
}

// Identity parses the stored access token's claims. Returns false when no
// token is stored or it does not parse as a JWT.
func (s *Session) Identity() (Identity, bool) {
	access := s.store.Tokens().Access
	if access == "" {
		return Identity{}, false
	}

	token, _, err := jwt.NewParser().ParseUnverified(access, jwt.MapClaims{})
	if err != nil {
		return Identity{}, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, false
	}

	var id Identity
	id.Subject, _ = claims["sub"].(string)
	id.Name, _ = claims["name"].(string)
	id.Email, _ = claims["email"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, true
}

func bearerHeader(access string) map[string]string {
	if access == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + access}
}
