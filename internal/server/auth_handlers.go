package server

import (
	"fmt"
	"time"

	"pointchat/internal/cache"
	"pointchat/internal/models"
	"pointchat/internal/store"
	"pointchat/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "pointchat-api"
	tokenAudience = "pointchat-client"
	tokenLifetime = time.Hour * 24 * 7
)

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Validate input
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}

	// Validate username format
	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	// Validate email format
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	// Validate password strength
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	// Check if user already exists
	existing, err := s.store.Query(c.Context(), store.UsersCollection,
		store.Query{}.Where("email", store.OpEqual, req.Email))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if len(existing) > 0 {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("User already exists"))
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	now := time.Now()
	doc, err := s.store.Create(c.Context(), store.UsersCollection, map[string]any{
		"username":     req.Username,
		"email":        req.Email,
		"passwordHash": string(hashedPassword),
		"avatar":       "",
		"bio":          "",
		"isOnline":     false,
		"lastSeen":     now,
		"createdAt":    now,
	})
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	user, err := models.UserFromDoc(doc)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	// Generate JWT token
	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Find user by email
	docs, err := s.store.Query(c.Context(), store.UsersCollection,
		store.Query{}.Where("email", store.OpEqual, req.Email))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if len(docs) == 0 {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	user, err := models.UserFromDoc(docs[0])
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	// Compare password
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	// Generate JWT token
	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout. The caller's token is revoked by
// blacklisting its JTI until the token would have expired anyway.
func (s *Server) Logout(c *fiber.Ctx) error {
	if s.redis != nil {
		if jti := s.callerJTI(c); jti != "" {
			if err := s.redis.Set(c.Context(), cache.BlacklistKey(jti), "1", cache.BlacklistTTL).Err(); err != nil {
				return models.RespondWithError(c, fiber.StatusInternalServerError,
					models.NewInternalError(err))
			}
		}
	}

	return c.JSON(fiber.Map{"success": true})
}

// IssueWSTicket handles POST /api/ws/ticket. It mints a short-lived
// single-use ticket for the websocket handshake so browser clients never put
// a bearer token in a URL.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewValidationError("WebSocket tickets unavailable"))
	}

	userID := c.Locals("userID").(string)
	ticket := uuid.NewString()

	if err := s.redis.Set(c.Context(), cache.WSTicketKey(ticket), userID, cache.WSTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(cache.WSTicketTTL.Seconds()),
	})
}

// callerJTI extracts the jti claim from the caller's bearer token without
// re-validating it (AuthRequired already did).
func (s *Server) callerJTI(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) {
		return ""
	}
	token, _, err := jwt.NewParser().ParseUnverified(authHeader[len(prefix):], jwt.MapClaims{})
	if err != nil {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	jti, _ := claims["jti"].(string)
	return jti
}

// generateToken creates a JWT token for the given user ID and username
func (s *Server) generateToken(userID, username string) (string, error) {
	// Validate secret exists
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      userID,                        // Subject (user ID)
		"username": username,                      // Username (cached in token)
		"iss":      tokenIssuer,                   // Issuer
		"aud":      tokenAudience,                 // Audience
		"exp":      now.Add(tokenLifetime).Unix(), // Expiration (7 days)
		"iat":      now.Unix(),                    // Issued at
		"nbf":      now.Unix(),                    // Not before
		"jti":      s.generateJTI(),               // JWT ID (unique identifier)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
