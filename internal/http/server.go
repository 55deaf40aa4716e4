// Package http exposes the broker operations to the rest of the app over a
// local gin server: scenes drive pairing, approval and request decisions
// through these endpoints.
package http

import (
	"encoding/json"
	"net/http"

	"edgewallet.io/wallet-broker/internal/relay"
	"edgewallet.io/wallet-broker/internal/walletconnect"
	"edgewallet.io/wallet-broker/pkg/errors"
	"edgewallet.io/wallet-broker/pkg/log"
	"edgewallet.io/wallet-broker/pkg/log/middleware"
	"github.com/gin-gonic/gin"
)

type Server struct {
	broker *walletconnect.Service
	listen string
}

func NewServer(broker *walletconnect.Service, listen string) *Server {
	return &Server{broker: broker, listen: listen}
}

func (s *Server) Run() {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RecoveredHTTPLog(), middleware.TimeoutHTTP())

	router.GET("/walletconnect/sessions", s.activeSessions)
	router.POST("/walletconnect/pair", s.pair)
	router.POST("/walletconnect/sessions/approve", s.approveSession)
	router.POST("/walletconnect/sessions/reject", s.rejectSession)
	router.DELETE("/walletconnect/sessions/:topic", s.disconnectSession)
	router.POST("/walletconnect/requests/approve", s.approveRequest)
	router.POST("/walletconnect/requests/reject", s.rejectRequest)

	if err := router.Run(s.listen); err != nil {
		log.Fatal(errors.WrapAndReport(err, "run broker http server"))
	}
}

func (s *Server) activeSessions(ctx *gin.Context) {
	sessions, err := s.broker.ActiveSessions(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, map[string]interface{}{"sessions": sessions})
}

type pairRequest struct {
	URI string `json:"uri" binding:"required"`
}

func (s *Server) pair(ctx *gin.Context) {
	var req pairRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	proposal, err := s.broker.InitSession(ctx.Request.Context(), req.URI)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, map[string]interface{}{"proposal": proposal})
}

type sessionDecisionRequest struct {
	Proposal *relay.Proposal `json:"proposal" binding:"required"`
	WalletID string          `json:"wallet_id"`
}

func (s *Server) approveSession(ctx *gin.Context) {
	var req sessionDecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	if err := s.broker.ApproveSession(ctx.Request.Context(), req.Proposal, req.WalletID); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, map[string]interface{}{"approved": true})
}

func (s *Server) rejectSession(ctx *gin.Context) {
	var req sessionDecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	if err := s.broker.RejectSession(ctx.Request.Context(), req.Proposal); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, map[string]interface{}{"rejected": true})
}

func (s *Server) disconnectSession(ctx *gin.Context) {
	topic := ctx.Param("topic")
	if err := s.broker.DisconnectSession(ctx.Request.Context(), topic); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, map[string]interface{}{"disconnected": true})
}

type requestDecisionRequest struct {
	Topic  string          `json:"topic" binding:"required"`
	ID     int64           `json:"id" binding:"required"`
	Result json.RawMessage `json:"result"`
}

func (s *Server) approveRequest(ctx *gin.Context) {
	var req requestDecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	if err := s.broker.ApproveRequest(ctx.Request.Context(), req.Topic, req.ID, req.Result); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, map[string]interface{}{"responded": true})
}

func (s *Server) rejectRequest(ctx *gin.Context) {
	var req requestDecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	if err := s.broker.RejectRequest(ctx.Request.Context(), req.Topic, req.ID); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, map[string]interface{}{"responded": true})
}

func badRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
}

// fail maps the broker's error taxonomy onto response codes so scenes can
// tell incompatibility and ambiguity apart from plain failures.
func fail(ctx *gin.Context, err error) {
	var unsupported *walletconnect.UnsupportedMethodsError
	switch {
	case errors.As(err, &unsupported):
		ctx.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":               err.Error(),
			"unsupported_methods": unsupported.Methods,
		})
	case errors.Is(err, walletconnect.ErrUnsupportedVersion):
		ctx.JSON(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
	case errors.Is(err, walletconnect.ErrTimeout):
		ctx.JSON(http.StatusGatewayTimeout, map[string]interface{}{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}
}
