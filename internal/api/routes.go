// Package api exposes the HTTP surface: account and voice-biometric
// authentication, workspace management, session lifecycle, and the
// authenticated WebSocket upgrade into a live session.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/voiceflowhq/collab/domain/entities"
	"github.com/voiceflowhq/collab/domain/repositories"
	"github.com/voiceflowhq/collab/internal/auth"
	"github.com/voiceflowhq/collab/internal/voiceauth"
	"github.com/voiceflowhq/collab/internal/websocket"
	"github.com/voiceflowhq/collab/usecase"
)

// tokenTTL mirrors the expiry baked into generated tokens.
const tokenTTL = 7 * 24 * time.Hour

// Server bundles the dependencies the HTTP handlers need.
type Server struct {
	users      repositories.UserRepository
	workspaces repositories.WorkspaceRepository
	profiles   repositories.VoiceProfileRepository
	analytics  repositories.AnalyticsReader
	matcher    *voiceauth.Matcher
	collab     *usecase.CollaborationService
	stt        repositories.SpeechToText
	logger     *zap.Logger
}

// NewServer creates the handler set.
func NewServer(
	users repositories.UserRepository,
	workspaces repositories.WorkspaceRepository,
	profiles repositories.VoiceProfileRepository,
	analytics repositories.AnalyticsReader,
	matcher *voiceauth.Matcher,
	collab *usecase.CollaborationService,
	stt repositories.SpeechToText,
	logger *zap.Logger,
) *Server {
	return &Server{
		users:      users,
		workspaces: workspaces,
		profiles:   profiles,
		analytics:  analytics,
		matcher:    matcher,
		collab:     collab,
		stt:        stt,
		logger:     logger,
	}
}

// InitRoutes initializes all API routes
func (s *Server) InitRoutes(e *echo.Echo) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voiceflow-collab",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// User Management APIs
	v1.POST("/users/register", s.userRegister)
	v1.POST("/users/login", s.userLogin)
	v1.POST("/users/voice-login", s.voiceLogin)

	// Authenticated APIs
	authed := v1.Group("", s.requireUser)
	authed.POST("/voice/enroll", s.voiceEnroll)
	authed.DELETE("/voice/enroll", s.voiceUnenroll)
	authed.POST("/workspaces", s.createWorkspace)
	authed.GET("/workspaces", s.listWorkspaces)
	authed.POST("/sessions", s.startSession)
	authed.DELETE("/sessions/:id", s.endSession)
	authed.POST("/sessions/:id/commands", s.voiceCommand)
	authed.GET("/sessions/:id/nearby", s.listNearby)
	authed.GET("/analytics/dashboard", s.dashboard)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", s.websocketWithAuth)
}

// requireUser validates the Bearer token and stashes the claims.
func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := s.bearerClaims(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "A valid bearer token is required",
			})
		}
		c.Set("claims", claims)
		return next(c)
	}
}

func (s *Server) bearerClaims(c echo.Context) (*auth.JWTClaims, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if len(authHeader) <= 7 || authHeader[:7] != "Bearer " {
		return nil, auth.ErrInvalidToken
	}
	return auth.ValidateToken(authHeader[7:])
}

func claimsFrom(c echo.Context) *auth.JWTClaims {
	claims, _ := c.Get("claims").(*auth.JWTClaims)
	return claims
}

func (s *Server) userRegister(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Email, name, and password are required",
		})
	}

	existing, err := s.users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		s.logger.Error("Failed to look up user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	if existing != nil {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "email_taken",
			Message: "An account with this email already exists",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	user := &entities.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(c.Request().Context(), user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	return s.issueToken(c, user)
}

func (s *Server) userLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	user, err := s.users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		s.logger.Error("Failed to look up user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid email or password",
		})
	}

	// A successful password login clears any voice-login lockout.
	s.matcher.ResetAttempts(user.ID)

	return s.issueToken(c, user)
}

func (s *Server) voiceLogin(c echo.Context) error {
	var req VoiceLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	user, err := s.users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		s.logger.Error("Failed to look up user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	if user == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid email or voice sample",
		})
	}

	profile, err := s.profiles.GetByUserID(c.Request().Context(), user.ID)
	if err != nil {
		s.logger.Error("Failed to load voice profile", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	if profile == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_enrolled",
			Message: "No voice profile enrolled for this account",
		})
	}

	err = s.matcher.Authenticate(c.Request().Context(), user.ID, req.Sample, profile.Reference)
	switch {
	case errors.Is(err, voiceauth.ErrLockedOut):
		return c.JSON(http.StatusLocked, ErrorResponse{
			Error:   "too_many_attempts",
			Message: "Voice login is locked after repeated failures, use password login",
		})
	case err != nil:
		s.logger.Warn("Voice authentication failed",
			zap.String("user_id", user.ID),
			zap.Int("failed_attempts", s.matcher.FailedAttempts(user.ID)))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Voice sample did not match the enrolled profile",
		})
	}

	return s.issueToken(c, user)
}

func (s *Server) issueToken(c echo.Context, user *entities.User) error {
	token, err := auth.GenerateUserToken(user.ID, user.Name, user.Email)
	if err != nil {
		s.logger.Error("Failed to generate token",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}
	return c.JSON(http.StatusOK, AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(tokenTTL),
		UserID:    user.ID,
		Name:      user.Name,
	})
}

func (s *Server) voiceEnroll(c echo.Context) error {
	claims := claimsFrom(c)

	var req VoiceEnrollRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	profile, err := voiceauth.Enroll(claims.UserID, req.Samples, req.Passphrases)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "enrollment_rejected",
			Message: err.Error(),
		})
	}

	if err := s.profiles.Save(c.Request().Context(), profile); err != nil {
		s.logger.Error("Failed to save voice profile",
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	s.logger.Info("Voice profile enrolled", zap.String("user_id", claims.UserID))
	return c.JSON(http.StatusOK, VoiceEnrollResponse{
		Fingerprint: profile.Fingerprint,
		EnrolledAt:  profile.CreatedAt,
	})
}

func (s *Server) voiceUnenroll(c echo.Context) error {
	claims := claimsFrom(c)
	if err := s.profiles.Delete(c.Request().Context(), claims.UserID); err != nil {
		s.logger.Error("Failed to delete voice profile",
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) createWorkspace(c echo.Context) error {
	claims := claimsFrom(c)

	var req CreateWorkspaceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	owner := entities.User{ID: claims.UserID, Name: claims.Name, Email: claims.Email}
	workspace := entities.NewWorkspace(req.Name, owner)
	if len(req.Rooms) > 0 {
		workspace.Rooms = req.Rooms
	} else {
		workspace.Rooms = defaultRooms()
	}

	if err := workspace.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_workspace",
			Message: err.Error(),
		})
	}
	if err := s.workspaces.Create(c.Request().Context(), workspace); err != nil {
		s.logger.Error("Failed to create workspace", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	return c.JSON(http.StatusCreated, workspace)
}

func (s *Server) listWorkspaces(c echo.Context) error {
	claims := claimsFrom(c)

	workspaces, err := s.workspaces.GetByMember(c.Request().Context(), claims.UserID)
	if err != nil {
		s.logger.Error("Failed to list workspaces", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.JSON(http.StatusOK, workspaces)
}

func (s *Server) startSession(c echo.Context) error {
	claims := claimsFrom(c)

	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	sessionType := entities.SessionType(req.Type)
	if req.Type == "" {
		sessionType = entities.SessionTypeContentEditing
	}

	session, err := s.collab.StartSession(c.Request().Context(), req.WorkspaceID, claims.UserID, sessionType, req.Room)
	switch {
	case errors.Is(err, usecase.ErrWorkspaceNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "workspace_not_found"})
	case errors.Is(err, usecase.ErrNotAMember):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "not_a_member"})
	case err != nil:
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "session_rejected",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, StartSessionResponse{
		SessionID:   session.ID,
		WorkspaceID: session.WorkspaceID,
		Room:        session.CurrentRoom,
		StartTime:   session.StartTime,
	})
}

func (s *Server) endSession(c echo.Context) error {
	err := s.collab.EndSession(c.Request().Context(), c.Param("id"))
	if errors.Is(err, usecase.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "session_not_found"})
	}
	if err != nil {
		s.logger.Error("Failed to end session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) voiceCommand(c echo.Context) error {
	claims := claimsFrom(c)

	var req VoiceCommandRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	transcript := req.Transcript
	if transcript == "" {
		if len(req.Audio) == 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "missing_command",
				Message: "Either transcript or audio is required",
			})
		}
		var err error
		transcript, err = s.stt.TranscribeAudio(c.Request().Context(), req.Audio, repositories.AudioConfig{
			SampleRate: req.SampleRate,
			Encoding:   req.Encoding,
			Language:   req.Language,
		})
		if err != nil {
			s.logger.Warn("Transcription failed", zap.Error(err))
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error:   "transcription_failed",
				Message: err.Error(),
			})
		}
	}

	result, err := s.collab.HandleTranscript(c.Request().Context(), c.Param("id"), claims.UserID, transcript)
	if errors.Is(err, usecase.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "session_not_found"})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "command_rejected",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, VoiceCommandResponse{
		Transcript: transcript,
		Matched:    result.Matched,
		Action:     result.Action,
		Params:     result.Params,
	})
}

func (s *Server) listNearby(c echo.Context) error {
	claims := claimsFrom(c)

	rangeLimit := 25.0
	if raw := c.QueryParam("range"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_range",
				Message: "range must be a positive number",
			})
		}
		rangeLimit = parsed
	}

	echoes, err := s.collab.ListNearby(c.Param("id"), claims.UserID, rangeLimit)
	if errors.Is(err, usecase.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "session_not_found"})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "scan_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echoes)
}

func (s *Server) dashboard(c echo.Context) error {
	claims := claimsFrom(c)

	snapshot, err := s.analytics.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		s.logger.Error("Failed to load analytics snapshot", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	if snapshot == nil {
		// A user with no cached snapshot sees an empty dashboard.
		snapshot = &repositories.AnalyticsSnapshot{}
	}
	return c.JSON(http.StatusOK, DashboardResponse{
		AnalyticsSnapshot: *snapshot,
		UserID:            claims.UserID,
	})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func (s *Server) websocketWithAuth(c echo.Context) error {
	claims, err := s.bearerClaims(c)
	if err != nil {
		s.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "A valid bearer token is required in the Authorization header",
		})
	}

	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_session",
			Message: "session_id query parameter is required",
		})
	}

	hub, err := s.collab.Hub(sessionID)
	if errors.Is(err, usecase.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "session_not_found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}

	s.logger.Info("WebSocket connection authenticated",
		zap.String("user_id", claims.UserID),
		zap.String("session_id", sessionID))

	return websocket.HandleWebSocket(hub, c, claims.UserID, claims.Name, s.logger)
}

// defaultRooms is the room layout new workspaces start with.
func defaultRooms() []entities.Room {
	memberRoom := entities.RoomPermissions{
		WhoCanEnter: entities.PermissionMembers,
		WhoCanSpeak: entities.PermissionMembers,
		WhoCanEdit:  entities.PermissionMembers,
	}
	return []entities.Room{
		{
			ID:       "lobby",
			Name:     "Lobby",
			Position: entities.Position{X: 0, Y: 0, Z: 0},
			Capacity: 20,
			Permissions: entities.RoomPermissions{
				WhoCanEnter: entities.PermissionEveryone,
				WhoCanSpeak: entities.PermissionEveryone,
				WhoCanEdit:  entities.PermissionMembers,
			},
		},
		{
			ID:          "blog-room",
			Name:        "Blog Room",
			Position:    entities.Position{X: 10, Y: 0, Z: 5},
			Capacity:    8,
			Permissions: memberRoom,
		},
		{
			ID:          "pages-wing",
			Name:        "Pages Wing",
			Position:    entities.Position{X: -10, Y: 0, Z: 5},
			Capacity:    8,
			Permissions: memberRoom,
		},
		{
			ID:          "draft-corner",
			Name:        "Draft Corner",
			Position:    entities.Position{X: 5, Y: 0, Z: -8},
			Capacity:    4,
			Permissions: memberRoom,
		},
		{
			ID:       "archive-basement",
			Name:     "Archive Basement",
			Position: entities.Position{X: -20, Y: -5, Z: 0},
			Capacity: 4,
			Permissions: entities.RoomPermissions{
				WhoCanEnter: entities.PermissionAdmins,
				WhoCanSpeak: entities.PermissionAdmins,
				WhoCanEdit:  entities.PermissionAdmins,
			},
		},
	}
}
