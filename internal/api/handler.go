package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vegas_gateway/internal/logging"
	"vegas_gateway/internal/metrics"
	"vegas_gateway/internal/rpcerr"
	"vegas_gateway/internal/users"
	"vegas_gateway/internal/vegas"
)

const (
	MethodLogin        = "login"
	MethodGetBalance   = "getbalance"
	MethodPlay         = "play"
	MethodEndGame      = "endgame"
	MethodRefreshToken = "refreshtoken"
)

type Sessions interface {
	CheckCredentials(login, password string) error
	Validate(ctx context.Context, token string) (*users.User, error)
	Issue(ctx context.Context, userID int64, ttl time.Duration) string
	Refresh(ctx context.Context, userID int64) string
	Current(ctx context.Context, userID int64) string
	InvalidateAll(ctx context.Context, userID int64)
}

type Actions interface {
	Balance(ctx context.Context, user *users.User) (int64, error)
	ProcessGameAction(ctx context.Context, user *users.User, req vegas.ActionRequest) (int64, error)
	ActivateFreegameOffer(ctx context.Context, user *users.User, roundID, gameReference string) error
	LaunchURL(ctx context.Context, gameReference, lang, token string) (string, error)
}

type Handler struct {
	sessions Sessions
	actions  Actions
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

func NewHandler(sessions Sessions, actions Actions, m *metrics.Metrics, logger zerolog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		actions:  actions,
		metrics:  m,
		logger:   logging.WithComponent(logger, "api"),
		now:      time.Now,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	g := r.Group("/vegas")
	g.POST("/rpc", h.rpc)
	g.POST("/sessions/:user_id", h.issueSession)
	g.GET("/sessions/:user_id", h.currentSession)
	g.DELETE("/sessions/:user_id", h.dropSession)
	g.GET("/games/:reference/launch", h.launchGame)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
}

// rpc answers every provider call with 200; failures travel in the body.
func (h *Handler) rpc(c *gin.Context) {
	var req RPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, req.Method, rpcerr.Wrap(rpcerr.CodeInternal, err))
		return
	}

	res, err := h.dispatch(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, req.Method, rpcerr.From(err))
		return
	}
	h.metrics.ObserveRequest(req.Method, "0")
	c.JSON(http.StatusOK, res)
}

func (h *Handler) dispatch(ctx context.Context, req RPCRequest) (*RPCResponse, error) {
	if err := h.sessions.CheckCredentials(req.Login, req.Password); err != nil {
		return nil, err
	}
	user, err := h.sessions.Validate(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	res := &RPCResponse{Token: req.Token}
	switch req.Method {
	case MethodLogin, MethodRefreshToken:
		res.Token = h.sessions.Refresh(ctx, user.UserID)
		res.Balance, err = h.actions.Balance(ctx, user)
	case MethodGetBalance:
		res.Balance, err = h.actions.Balance(ctx, user)
	case MethodPlay:
		var pt vegas.PlayType
		pt, err = vegas.ParsePlayType(req.PlayType)
		if err != nil {
			return nil, err
		}
		res.Balance, err = h.actions.ProcessGameAction(ctx, user, vegas.ActionRequest{
			GameReference: req.GameReference,
			ActionID:      req.ActionID,
			PlayType:      pt,
			Amount:        req.Amount,
			RoundID:       req.RoundID,
			FreegameName:  req.Freegame,
		})
		res.TransactionID = vegas.TransactionID(h.now())
	case MethodEndGame:
		if err = h.actions.ActivateFreegameOffer(ctx, user, req.RoundID, req.GameReference); err != nil {
			return nil, err
		}
		res.Balance, err = h.actions.Balance(ctx, user)
	default:
		return nil, errors.New("unknown method " + strconv.Quote(req.Method))
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (h *Handler) respondError(c *gin.Context, method string, err *rpcerr.Error) {
	h.metrics.ObserveRequest(method, strconv.Itoa(err.Code))
	ev := h.logger.Info()
	if err.Code == rpcerr.CodeInternal {
		ev = h.logger.Error()
	}
	ev.Err(err).Str("method", method).Int("code", err.Code).Msg("rpc failed")
	c.JSON(http.StatusOK, ErrorResponse{ErrorCode: err.Code, ErrorMessage: err.Message})
}

// issueSession starts a game session for a platform user. An optional ttl
// query ("30m", "0" for no expiry) overrides the configured lifetime.
func (h *Handler) issueSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var token string
	if raw, set := c.GetQuery("ttl"); set {
		ttl, err := parseTTL(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		token = h.sessions.Issue(c.Request.Context(), userID, ttl)
	} else {
		token = h.sessions.Refresh(c.Request.Context(), userID)
	}
	c.JSON(http.StatusCreated, SessionResponse{UserID: userID, Token: token})
}

func (h *Handler) currentSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	token := h.sessions.Current(c.Request.Context(), userID)
	if token == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	c.JSON(http.StatusOK, SessionResponse{UserID: userID, Token: token})
}

func (h *Handler) dropSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	h.sessions.InvalidateAll(c.Request.Context(), userID)
	c.Status(http.StatusNoContent)
}

// launchGame returns the provider launch URL. With user_id a fresh session is
// issued and the game opens in real mode, otherwise in demo mode.
func (h *Handler) launchGame(c *gin.Context) {
	var token string
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		token = h.sessions.Refresh(c.Request.Context(), userID)
	}

	u, err := h.actions.LaunchURL(c.Request.Context(), c.Param("reference"), c.DefaultQuery("lang", "en"), token)
	if err != nil {
		rerr := rpcerr.From(err)
		status := http.StatusInternalServerError
		if rerr.Code == rpcerr.CodeGameReferenceNotExist {
			status = http.StatusNotFound
		}
		h.logger.Warn().Err(err).Str("game_reference", c.Param("reference")).Msg("launch url failed")
		c.JSON(status, gin.H{"error": rerr.Message})
		return
	}
	c.JSON(http.StatusOK, LaunchResponse{URL: u, Token: token})
}

func (h *Handler) userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func parseTTL(raw string) (time.Duration, error) {
	if raw == "0" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}
