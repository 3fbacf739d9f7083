package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vegas_gateway/internal/logging"
	"vegas_gateway/internal/rpcerr"
	"vegas_gateway/internal/users"
)

// MaxSavedTokens is how many recently issued tokens stay valid at once. The
// provider requires at least two per player so a retry racing a refresh
// still authenticates.
const MaxSavedTokens = 10

type Options struct {
	APIUser  string
	APIPass  string
	TokenTTL time.Duration
}

type Manager struct {
	store  Store
	users  users.Directory
	opts   Options
	logger zerolog.Logger
}

func NewManager(store Store, dir users.Directory, opts Options, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		users:  dir,
		opts:   opts,
		logger: logging.WithComponent(logger, "session"),
	}
}

// Issue creates a token for userID and puts it at the front of the user's
// history. A failed cache write is logged and the token is still returned:
// the player will have to re-authenticate, the game flow is not blocked.
func (m *Manager) Issue(ctx context.Context, userID int64, ttl time.Duration) string {
	token := generateToken(userID)
	if err := m.store.Push(ctx, userID, token, MaxSavedTokens, ttl); err != nil {
		m.logger.Warn().Err(err).Int64("user_id", userID).Msg("token not saved")
	}
	return token
}

// Refresh issues a token with the configured lifetime.
func (m *Manager) Refresh(ctx context.Context, userID int64) string {
	return m.Issue(ctx, userID, m.opts.TokenTTL)
}

// Current returns the newest token, or "" when there is none.
func (m *Manager) Current(ctx context.Context, userID int64) string {
	tokens, err := m.store.List(ctx, userID)
	if err != nil {
		m.logger.Warn().Err(err).Int64("user_id", userID).Msg("token history unreadable")
		return ""
	}
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

// InvalidateAll drops every token of the user (logout).
func (m *Manager) InvalidateAll(ctx context.Context, userID int64) {
	if err := m.store.Drop(ctx, userID); err != nil {
		m.logger.Warn().Err(err).Int64("user_id", userID).Msg("token history not dropped")
	}
}

// UserByToken resolves the user a token was issued to. Tokens look like
// "<userID>_<hash>"; anything else resolves to no user.
func (m *Manager) UserByToken(ctx context.Context, token string) (*users.User, error) {
	userID, ok := parseUserID(token)
	if !ok {
		return nil, rpcerr.ErrTokenInvalid
	}
	u, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, rpcerr.ErrTokenInvalid
		}
		return nil, rpcerr.Wrap(rpcerr.CodeInternal, err)
	}
	return u, nil
}

// Validate accepts any token still present in the user's history.
func (m *Manager) Validate(ctx context.Context, token string) (*users.User, error) {
	u, err := m.UserByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	tokens, err := m.store.List(ctx, u.UserID)
	if err != nil {
		m.logger.Warn().Err(err).Int64("user_id", u.UserID).Msg("token history unreadable")
		return nil, rpcerr.Wrap(rpcerr.CodeTokenExpired, err)
	}
	if len(tokens) == 0 {
		return nil, rpcerr.ErrTokenExpired
	}
	if !slices.Contains(tokens, token) {
		return nil, rpcerr.ErrTokenInvalid
	}
	return u, nil
}

// CheckCredentials gates the whole provider endpoint. Without configured
// credentials every call is refused.
func (m *Manager) CheckCredentials(login, password string) error {
	if m.opts.APIUser == "" || m.opts.APIPass == "" {
		return rpcerr.ErrAuthIncorrect
	}
	userOK := subtle.ConstantTimeCompare([]byte(login), []byte(m.opts.APIUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.opts.APIPass)) == 1
	if !userOK || !passOK {
		return rpcerr.ErrAuthIncorrect
	}
	return nil
}

func generateToken(userID int64) string {
	hash := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d_%s", userID, hash)
}

func parseUserID(token string) (int64, bool) {
	prefix, _, found := strings.Cut(token, "_")
	if !found {
		return 0, false
	}
	userID, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}
