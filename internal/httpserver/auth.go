// internal/httpserver/auth.go
//
// Accounts and participant identity.
//   - /auth/signup, /auth/login, /auth/logout, /auth/me
//   - /stats/me (games played, wins, streak, boards placed), /games/mine
//   - withOptionalAuth / requireAuth middleware
//   - guests are identified by an anonymous cookie; their history moves to
//     the account on signup/login.
//
// Tokens are HS256 JWTs carried in an HttpOnly cookie or a Bearer header.

package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/battleship/internal/store"
)

const (
	anonCookieName = "battleship_anon"
	anonCookieTTL  = 180 * 24 * time.Hour
	historyLimit   = 50
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionClaims is the JWT payload; the subject is the user id.
type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// authUser is what the auth middleware puts on the request context.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ctxUserKey struct{}

func userFrom(ctx context.Context) *authUser {
	u, _ := ctx.Value(ctxUserKey{}).(*authUser)
	return u
}

// participant identifies whoever is playing: an account or an anonymous guest.
type participant struct {
	ID     string // user id or anonymous id
	Name   string // shown in captions
	UserID string // empty for guests
}

// participantOf returns the signed-in user, or the guest behind the anon
// cookie (issuing one if needed).
func (s *Server) participantOf(w http.ResponseWriter, r *http.Request) participant {
	if me := userFrom(r.Context()); me != nil {
		return participant{ID: me.ID, Name: me.Username, UserID: me.ID}
	}
	anon := s.ensureAnonID(w, r)
	short := anon
	if len(short) > 6 {
		short = short[:6]
	}
	return participant{ID: anon, Name: "guest-" + short}
}

func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	s.r.Group(func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(userFrom(r.Context()))
		})
		r.Get("/stats/me", s.handleStats)
		r.Get("/games/mine", s.handleHistory)
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.ByID(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		log.Error().Err(err).Msg("load stats")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(u)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	games, err := s.games.ByUser(r.Context(), userFrom(r.Context()).ID, historyLimit)
	if err != nil {
		log.Error().Err(err).Msg("load history")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(games)
}

// handleSignup creates the account and signs the user in.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	if err := validateCredentials(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	u, err := s.users.Create(r.Context(), genID(), in.Username, string(hash), time.Now())
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		http.Error(w, `{"error":"Username taken"}`, http.StatusConflict)
		return
	case err != nil:
		log.Error().Err(err).Msg("create user")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	s.signIn(w, r, u)
}

// handleLogin checks the password and signs the user in.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.users.ByUsername(r.Context(), strings.TrimSpace(in.Username))
	if err != nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		http.Error(w, `{"error":"Invalid username or password"}`, http.StatusUnauthorized)
		return
	}
	s.signIn(w, r, u)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.cookie(s.cfg.Auth.CookieName, "", time.Time{}))
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// signIn issues the token cookie, moves the guest's history over and
// responds with the account.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, u *store.User) {
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, s.cookie(s.cfg.Auth.CookieName, tok, exp))
	if c, err := r.Cookie(anonCookieName); err == nil {
		if err := s.games.Claim(r.Context(), c.Value, u.ID); err != nil {
			log.Warn().Err(err).Str("user", u.ID).Msg("claim anon games")
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"createdAt": u.CreatedAt,
		"token":     tok,
	})
}

// --------------------------------- middleware ------------------------------

// authenticate resolves the request's token to a live account.
func (s *Server) authenticate(r *http.Request) (*authUser, error) {
	tok := s.bearerOrCookie(r)
	if tok == "" {
		return nil, errNoToken
	}
	id, _, err := s.parseJWT(tok)
	if err != nil {
		return nil, err
	}
	u, err := s.users.ByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return &authUser{ID: u.ID, Username: u.Username}, nil
}

var errNoToken = errors.New("no token")

// withOptionalAuth attaches the account when the token is valid and lets
// guests through otherwise.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, err := s.authenticate(r); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, u))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth rejects requests without a valid token for an existing account.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := s.authenticate(r)
			if errors.Is(err, errNoToken) {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if err != nil {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, u)))
		})
	}
}

// ensureAnonID returns the guest id from the anon cookie, setting a new one
// when absent.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := genID()
	http.SetCookie(w, s.cookie(anonCookieName, id, time.Now().Add(anonCookieTTL)))
	return id
}

// ---------------------------------- helpers --------------------------------

// validateCredentials: username 3-24 of [A-Za-z0-9_], password 8-100 bytes.
func validateCredentials(c credentials) error {
	if len(c.Username) < 3 || len(c.Username) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range c.Username {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(c.Password) < 8 || len(c.Password) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}

// genID returns 22 URL-safe characters of crypto randomness.
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

func (s *Server) signJWT(id, username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(time.Duration(s.cfg.Auth.JWTExpiresDays) * 24 * time.Hour)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString([]byte(s.cfg.Auth.JWTSecret))
	return signed, exp, err
}

// parseJWT verifies tok and returns its subject and username.
func (s *Server) parseJWT(tok string) (id, username string, err error) {
	var claims sessionClaims
	_, err = jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Auth.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", err
	}
	if claims.Subject == "" || claims.Username == "" {
		return "", "", errors.New("missing claims")
	}
	return claims.Subject, claims.Username, nil
}

// cookie builds an HttpOnly cookie for the current environment. A zero
// expiry deletes it. Production cookies are Secure and SameSite=None so the
// separately hosted client can send them.
func (s *Server) cookie(name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Auth.Production,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
	if s.cfg.Auth.Production {
		c.SameSite = http.SameSiteNoneMode
	}
	if expires.IsZero() {
		c.MaxAge = -1
	}
	return c
}

func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); len(a) > 7 && strings.EqualFold(a[:7], "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.Auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
