package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/analysis"
	"github.com/MarcoPoloResearchLab/cashgame/internal/auth"
	"github.com/MarcoPoloResearchLab/cashgame/internal/games"
	"github.com/MarcoPoloResearchLab/cashgame/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const actorContextKey = "cashgame_actor"

var (
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingProfileResolver  = errors.New("profile resolver dependency required")
	errMissingGamesService     = errors.New("games service dependency required")
	errMissingAnalyzer         = errors.New("till analyzer dependency required")
)

// SessionValidator authenticates an incoming request.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
}

// ProfileResolver maps session claims onto the canonical user.
type ProfileResolver interface {
	ResolveProfile(claims auth.SessionClaims) (users.Profile, error)
}

// TillAnalyzer explains the gap between a till count and the ledger.
type TillAnalyzer interface {
	AnalyzeTill(ctx context.Context, input analysis.Input) (analysis.Result, error)
}

// Dependencies wires the HTTP layer. BypassUserID, when set, authenticates every
// request as that user and skips session validation; it is meant for local use only.
type Dependencies struct {
	SessionValidator SessionValidator
	Profiles         ProfileResolver
	GamesService     *games.Service
	Analyzer         TillAnalyzer
	Realtime         *RealtimeDispatcher
	BypassUserID     string
	HeartbeatEvery   time.Duration
	Logger           *zap.Logger
}

// NewHTTPHandler builds the gin engine serving the cash-game API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	bypassUserID := strings.TrimSpace(deps.BypassUserID)
	if bypassUserID == "" {
		if deps.SessionValidator == nil {
			return nil, errMissingSessionValidator
		}
		if deps.Profiles == nil {
			return nil, errMissingProfileResolver
		}
	}
	if deps.GamesService == nil {
		return nil, errMissingGamesService
	}
	if deps.Analyzer == nil {
		return nil, errMissingAnalyzer
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	heartbeat := deps.HeartbeatEvery
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		sessions:     deps.SessionValidator,
		profiles:     deps.Profiles,
		games:        deps.GamesService,
		analyzer:     deps.Analyzer,
		realtime:     realtime,
		bypassUserID: bypassUserID,
		heartbeat:    heartbeat,
		logger:       logger,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.POST("/sessions", handler.handleStartSession)
	protected.GET("/sessions", handler.handleListSessions)
	protected.GET("/sessions/active", handler.handleActiveSession)
	protected.GET("/sessions/:id", handler.handleGetSession)
	protected.POST("/sessions/:id/end", handler.handleEndSession)
	protected.DELETE("/sessions/:id", handler.handleDeleteSession)
	protected.PUT("/sessions/:id/rake", handler.handleUpdateTotalRake)
	protected.POST("/sessions/:id/members", handler.handleAddMember)
	protected.GET("/sessions/:id/summary", handler.handleSummary)
	protected.GET("/sessions/:id/stream", handler.handleSessionStream)

	protected.POST("/sessions/:id/transactions", handler.handleCreateTransaction)
	protected.PUT("/transactions/:id", handler.handleUpdateTransaction)
	protected.DELETE("/transactions/:id", handler.handleDeleteTransaction)
	protected.POST("/transactions/:id/paid", handler.handleMarkCreditPaid)

	protected.POST("/sessions/:id/dealer-downs", handler.handleCreateDealerDown)
	protected.PUT("/dealer-downs/:id", handler.handleUpdateDealerDown)
	protected.DELETE("/dealer-downs/:id", handler.handleDeleteDealerDown)
	protected.POST("/dealer-downs/:id/claim-rake", handler.handleClaimRake)
	protected.POST("/dealer-downs/claim-tips", handler.handleClaimTips)

	protected.POST("/sessions/:id/expenses", handler.handleCreateExpense)
	protected.PUT("/expenses/:id", handler.handleUpdateExpense)
	protected.DELETE("/expenses/:id", handler.handleDeleteExpense)
	protected.POST("/expenses/:id/paid-out", handler.handleMarkExpensePaidOut)

	protected.POST("/till/analyze", handler.handleAnalyzeTill)
	protected.GET("/sessions/:id/till-counts", handler.handleListTillCounts)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(string) bool { return true },
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-TAuth-Tenant"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

type httpHandler struct {
	sessions     SessionValidator
	profiles     ProfileResolver
	games        *games.Service
	analyzer     TillAnalyzer
	realtime     *RealtimeDispatcher
	bypassUserID string
	heartbeat    time.Duration
	logger       *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	if h.bypassUserID != "" {
		c.Set(actorContextKey, games.Actor{
			UserID:   h.bypassUserID,
			Initials: users.Initials(h.bypassUserID, ""),
		})
		c.Next()
		return
	}

	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredSessionToken) || errors.Is(err, auth.ErrMissingSessionToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	profile, err := h.profiles.ResolveProfile(claims)
	if err != nil {
		h.logger.Warn("profile resolution failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.Set(actorContextKey, games.Actor{UserID: profile.UserID, Initials: profile.Initials})
	c.Next()
}

func actorFrom(c *gin.Context) games.Actor {
	value, ok := c.Get(actorContextKey)
	if !ok {
		return games.Actor{}
	}
	actor, _ := value.(games.Actor)
	return actor
}
