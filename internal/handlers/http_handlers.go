// Package handlers exposes the giveaway core to the external bot
// dispatcher as a small JSON API. No core logic lives here; handlers
// parse, delegate and map errors to status codes.
package handlers

import (
	"net/http"
	"strconv"

	"giveaway/internal/models"
	"giveaway/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/samber/lo"
)

// NameResolver looks up a display name for a user id in the messaging
// platform's directory. Only reporting endpoints use it; mutating logic
// never does.
type NameResolver interface {
	ResolveDisplayName(userID int64) (string, bool)
}

// StaticNameResolver resolves names from a fixed map. It stands in for
// the real directory in local runs and tests.
type StaticNameResolver map[int64]string

// ResolveDisplayName implements NameResolver.
func (r StaticNameResolver) ResolveDisplayName(userID int64) (string, bool) {
	name, ok := r[userID]
	return name, ok
}

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	draws       *services.DrawService
	registrar   *services.RegistrationService
	winners     *services.WinnerService
	referrals   *services.ReferralService
	leaderboard *services.LeaderboardService
	resolver    NameResolver
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(
	draws *services.DrawService,
	registrar *services.RegistrationService,
	winners *services.WinnerService,
	referrals *services.ReferralService,
	leaderboard *services.LeaderboardService,
	resolver NameResolver,
) *HTTPHandler {
	return &HTTPHandler{
		draws:       draws,
		registrar:   registrar,
		winners:     winners,
		referrals:   referrals,
		leaderboard: leaderboard,
		resolver:    resolver,
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	api.POST("/draws", h.CreateDraw)
	api.POST("/draws/close", h.CloseDraw)
	api.GET("/draws/target", h.GetDrawTarget)
	api.POST("/winners", h.DrawWinners)
	api.GET("/participants", h.ListParticipants)
	api.POST("/joins", h.Join)
	api.GET("/joins/:userID", h.JoinStatus)
	api.POST("/referrals", h.RecordReferral)
	api.GET("/referrals/:referrerID", h.ListReferredBy)
	api.GET("/leaderboard", h.Leaderboard)
	api.GET("/stats", h.Stats)
}

// Health reports liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createDrawRequest struct {
	Title string `json:"title"`
}

// CreateDraw opens a new draw.
func (h *HTTPHandler) CreateDraw(c *gin.Context) {
	var req createDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidInput)
		return
	}
	draw, err := h.draws.CreateDraw(c.Request.Context(), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, draw)
}

// CloseDraw closes the current active draw.
func (h *HTTPHandler) CloseDraw(c *gin.Context) {
	draw, err := h.draws.CloseDraw(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, draw)
}

// GetDrawTarget returns the closed draw next in line for winner selection.
func (h *HTTPHandler) GetDrawTarget(c *gin.Context) {
	draw, err := h.draws.SelectTargetForDrawing(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, draw)
}

type drawWinnersRequest struct {
	DrawID string `json:"drawId"`
	// Count may be omitted; the service coerces it to 1.
	Count int `json:"count"`
}

// DrawWinners selects and records winners for a closed draw.
func (h *HTTPHandler) DrawWinners(c *gin.Context) {
	var req drawWinnersRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DrawID == "" {
		writeError(c, models.ErrInvalidInput)
		return
	}
	winners, err := h.winners.DrawWinners(c.Request.Context(), req.DrawID, req.Count)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"drawId":  req.DrawID,
		"winners": lo.Map(winners, func(id int64, _ int) gin.H { return h.userRef(id) }),
	})
}

// ListParticipants returns the user ids entered in the draw named by the
// drawId query parameter.
func (h *HTTPHandler) ListParticipants(c *gin.Context) {
	drawID := c.Query("drawId")
	if drawID == "" {
		writeError(c, models.ErrInvalidInput)
		return
	}
	userIDs, err := h.registrar.ListParticipants(c.Request.Context(), drawID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drawId": drawID, "participants": userIDs})
}

type joinRequest struct {
	UserID int64 `json:"userId"`
}

// Join enters a user into the current active draw.
func (h *HTTPHandler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 {
		writeError(c, models.ErrInvalidInput)
		return
	}
	draw, err := h.registrar.Join(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"drawId": draw.ID, "title": draw.Title})
}

// JoinStatus reports whether a user has joined the current active draw.
func (h *HTTPHandler) JoinStatus(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		writeError(c, models.ErrInvalidInput)
		return
	}
	joined, err := h.registrar.HasJoined(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "joined": joined})
}

type referralRequest struct {
	ReferrerID int64 `json:"referrerId"`
	ReferredID int64 `json:"referredId"`
}

// RecordReferral attributes a new user's arrival to a referrer.
func (h *HTTPHandler) RecordReferral(c *gin.Context) {
	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ReferrerID == 0 || req.ReferredID == 0 {
		writeError(c, models.ErrInvalidInput)
		return
	}
	created, err := h.referrals.RecordReferral(c.Request.Context(), req.ReferrerID, req.ReferredID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

// ListReferredBy returns the users a referrer brought in, oldest first.
func (h *HTTPHandler) ListReferredBy(c *gin.Context) {
	referrerID, err := strconv.ParseInt(c.Param("referrerID"), 10, 64)
	if err != nil {
		writeError(c, models.ErrInvalidInput)
		return
	}
	referred, err := h.referrals.ListReferredBy(c.Request.Context(), referrerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referrerId": referrerID, "referred": referred})
}

// Leaderboard returns the top referrers with resolved display names.
func (h *HTTPHandler) Leaderboard(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, models.ErrInvalidInput)
			return
		}
		limit = parsed
	}
	entries, err := h.leaderboard.TopReferrers(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	rows := lo.Map(entries, func(e models.ReferrerCount, _ int) gin.H {
		row := h.userRef(e.ReferrerID)
		row["count"] = e.Count
		return row
	})
	c.JSON(http.StatusOK, gin.H{"leaderboard": rows})
}

// Stats reports totals for operator reporting.
func (h *HTTPHandler) Stats(c *gin.Context) {
	stats, err := h.draws.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// userRef renders a user id with its display name when the directory
// knows one. A missing name degrades to the bare id, never to an error.
func (h *HTTPHandler) userRef(userID int64) gin.H {
	ref := gin.H{"userId": userID}
	if h.resolver != nil {
		if name, ok := h.resolver.ResolveDisplayName(userID); ok {
			ref["name"] = name
		}
	}
	return ref
}

func writeError(c *gin.Context, err error) {
	status, code := mapError(err)
	if status == http.StatusServiceUnavailable {
		logger.Errorf("storage failure on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
