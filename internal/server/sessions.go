package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	stderrors "errors"

	"quartermaster/internal/llm"
	"quartermaster/internal/negotiation"
	"quartermaster/internal/session"
	"quartermaster/pkg/types"
)

type startSessionRequest struct {
	Kind         string        `json:"kind"`
	SelectedItem types.Item    `json:"selected_item"`
	Request      types.Request `json:"request"`
	LLMProvider  string        `json:"llm_provider"`
	APIKey       string        `json:"api_key"`
}

func (s *Server) handleStartSession(c *gin.Context) {
	var body startSessionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if body.SelectedItem.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "selected_item is required"})
		return
	}

	provider := body.LLMProvider
	if provider == "" {
		provider = s.deps.DefaultProvider
	}
	apiKey := body.APIKey
	if apiKey == "" {
		apiKey = s.deps.DefaultAPIKey
	}
	client, err := s.deps.Clients(provider, apiKey)
	if err != nil {
		var keyErr *llm.ErrAPIKeyRequired
		if stderrors.As(err, &keyErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": keyErr.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := s.deps.Sessions.Start(body.Kind, body.SelectedItem, body.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.bindSessionClient(sess.ID, client)

	response := gin.H{"session_id": sess.ID, "kind": sess.Kind, "item": sess.Item}

	switch sess.Kind {
	case session.KindNegotiation:
		agent := negotiation.NewVendorAgent(client, s.deps.Catalog, s.deps.Index, s.deps.Logger)
		opening, err := agent.Open(c.Request.Context(), sess.Item, sess.Request)
		if err != nil {
			writeError(c, err)
			return
		}
		if _, err := s.deps.Sessions.Append(sess.ID, opening); err != nil {
			writeError(c, err)
			return
		}
		response["vendor_opening"] = opening.Message
		response["conversation"] = []types.ChatMessage{opening}
		response["competitors"] = agent.Competitors(c.Request.Context(), sess.Item, 3)

	case session.KindCost:
		agent := negotiation.NewCostAgent(client, s.deps.Catalog, s.deps.Logger)
		analysis, err := agent.Analyze(c.Request.Context(), sess.Item, sess.Request)
		if err != nil {
			writeError(c, err)
			return
		}
		if _, err := s.deps.Sessions.Append(sess.ID, analysis.Conversation...); err != nil {
			writeError(c, err)
			return
		}
		response["analysis"] = analysis.Analysis
		response["estimated_savings"] = analysis.EstimatedSavings
		response["conversation"] = analysis.Conversation
		response["cheaper_alternatives"] = agent.CheaperAlternatives(sess.Item)
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess)
}

type sessionMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleSessionMessage(c *gin.Context) {
	var body sessionMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	reply, err := s.processSessionMessage(c, c.Param("id"), body.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// processSessionMessage appends the user's turn, generates the agent reply,
// and persists both. Shared by the POST and WebSocket paths.
func (s *Server) processSessionMessage(c *gin.Context, sessionID, message string) (types.ChatMessage, error) {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return types.ChatMessage{}, err
	}
	client := s.sessionClient(sessionID)
	ctx := c.Request.Context()

	var userTurn, reply types.ChatMessage
	switch sess.Kind {
	case session.KindNegotiation:
		userTurn = types.ChatMessage{Role: negotiation.RoleBuyer, Message: message, Timestamp: time.Now()}
		agent := negotiation.NewVendorAgent(client, s.deps.Catalog, s.deps.Index, s.deps.Logger)
		reply, err = agent.Respond(ctx, message, append(sess.Messages, userTurn), sess.Item, sess.Request)
	default:
		userTurn = types.ChatMessage{Role: negotiation.RoleUser, Message: message, Timestamp: time.Now()}
		agent := negotiation.NewCostAgent(client, s.deps.Catalog, s.deps.Logger)
		reply, err = agent.Chat(ctx, message, append(sess.Messages, userTurn), sess.Item, sess.Request)
	}
	if err != nil {
		return types.ChatMessage{}, err
	}

	if _, err := s.deps.Sessions.Append(sessionID, userTurn, reply); err != nil {
		return types.ChatMessage{}, err
	}
	return reply, nil
}

type wsInbound struct {
	Message string `json:"message"`
}

func (s *Server) handleSessionWS(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := s.deps.Sessions.Get(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.deps.Logger.Warn("websocket upgrade failed for session %s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	for {
		var inbound wsInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		if inbound.Message == "" {
			continue
		}

		reply, err := s.processSessionMessage(c, sessionID, inbound.Message)
		if err != nil {
			_ = conn.WriteJSON(gin.H{"error": err.Error()})
			continue
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}
