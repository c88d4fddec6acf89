// Package http exposes the lucky draw engine to the UI shell.
package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
	"github.com/frankieli/forum_product/internal/modules/luckydraw/usecase"
	"github.com/frankieli/forum_product/internal/modules/luckydraw/ws"
	"github.com/frankieli/forum_product/pkg/logger"
)

const userIDKey = "user_id"

// Handler handles HTTP and WebSocket requests for the lucky draw module
type Handler struct {
	useCase   *usecase.LuckyDrawUseCase
	manager   *ws.Manager
	jwtSecret []byte
}

// NewHandler creates a new HTTP handler
func NewHandler(useCase *usecase.LuckyDrawUseCase, manager *ws.Manager, jwtSecret string) *Handler {
	return &Handler{
		useCase:   useCase,
		manager:   manager,
		jwtSecret: []byte(jwtSecret),
	}
}

// RegisterRoutes registers the lucky draw routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/luckydraw", h.AuthRequired())
	api.GET("/gifts", h.GetGifts)
	api.GET("/state", h.GetState)
	api.POST("/draw", h.Draw)
	api.POST("/pay", h.Pay)
	api.POST("/abandon", h.Abandon)
	api.POST("/reset", h.Reset)
	api.GET("/orders/latest", h.LatestOrder)
	api.GET("/records", h.Records)

	router.GET("/ws", h.HandleWebSocket)
}

// AuthRequired validates the HS256 bearer token and injects the user id
// plus the raw token (forwarded to the forum backend) into the request
// context
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "missing token"})
			return
		}

		userID, err := h.validateToken(token)
		if err != nil {
			logger.Warn(c.Request.Context()).Err(err).Msg("Token 验证失败")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "invalid token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Request = c.Request.WithContext(domain.WithToken(c.Request.Context(), token))
		c.Next()
	}
}

func bearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (h *Handler) validateToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, errors.New("missing user_id claim")
	}
	return int64(userID), nil
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

// GetGifts returns the normalized catalog used to build the wheel
func (h *Handler) GetGifts(c *gin.Context) {
	catalog, err := h.useCase.Catalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": catalog})
}

// GetState returns the engine snapshot for polling clients
func (h *Handler) GetState(c *gin.Context) {
	snapshot := h.useCase.Snapshot(currentUserID(c))
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": snapshot})
}

// Draw spins the wheel and opens the decision window
func (h *Handler) Draw(c *gin.Context) {
	drawn, err := h.useCase.Draw(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
		"drawn":    drawn,
		"snapshot": h.useCase.Snapshot(currentUserID(c)),
	}})
}

// Pay settles the pending decision by paying
func (h *Handler) Pay(c *gin.Context) {
	order, err := h.useCase.Pay(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
		"order":    order,
		"snapshot": h.useCase.Snapshot(currentUserID(c)),
	}})
}

// Abandon settles the pending decision by giving the prize up
func (h *Handler) Abandon(c *gin.Context) {
	if err := h.useCase.Abandon(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": h.useCase.Snapshot(currentUserID(c))})
}

// Reset dismisses the result panel
func (h *Handler) Reset(c *gin.Context) {
	h.useCase.Reset(currentUserID(c))
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": h.useCase.Snapshot(currentUserID(c))})
}

// LatestOrder returns the latest paid order. "No order yet" is a normal
// empty result, not an error.
func (h *Handler) LatestOrder(c *gin.Context) {
	order, err := h.useCase.LatestOrder(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": nil})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": order})
}

// Records lists the user's archived draw orders
func (h *Handler) Records(c *gin.Context) {
	records, err := h.useCase.Records(c.Request.Context(), currentUserID(c), 50)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": records})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin enforcement happens at the ingress
	},
}

// HandleWebSocket upgrades the snapshot push channel. The token travels
// as a query param because browsers cannot set headers on ws upgrades.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	ctx := logger.WebSocketContext(c.Request)

	token := c.Query("token")
	if token == "" {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}

	userID, err := h.validateToken(token)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("Token 验证失败")
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("WebSocket 升级失败")
		return
	}

	logger.Info(ctx).Int64("user_id", userID).Msg("WebSocket 连接建立成功")

	client := h.manager.Register(conn, userID)
	go client.WritePump()
	go client.ReadPump()
}

// respondError maps domain errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrCatalogUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrDrawFailed), errors.Is(err, domain.ErrSettlementFailed):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrNotPending),
		errors.Is(err, domain.ErrSubmissionInProgress),
		errors.Is(err, domain.ErrDecisionActive):
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{"code": status, "msg": err.Error()})
}
