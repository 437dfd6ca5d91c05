package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/velikanov/teleshop/internal/store"
)

type registerInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Address  string `json:"adress"`
}

func (s *Server) handleUserRegister(c *gin.Context) {
	var in registerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "username, password and email are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Password hashing failed")
		internalError(c)
		return
	}

	user := &store.User{
		Username: in.Username,
		Password: string(hash),
		Email:    in.Email,
		Address:  in.Address,
		Role:     store.RoleUser,
	}
	if err := s.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			conflict(c, "A user with this username already exists")
			return
		}
		s.logger.Error().Err(err).Msg("User creation failed")
		internalError(c)
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Token issuance failed")
		internalError(c)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type loginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleUserLogin(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "username and password are required")
		return
	}

	user, err := s.users.FindByUsername(c.Request.Context(), in.Username)
	if err != nil {
		s.logger.Error().Err(err).Msg("User lookup failed")
		internalError(c)
		return
	}
	if user == nil {
		notFound(c, "User not found")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		unauthorized(c, "invalid_credentials", "Invalid password")
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Token issuance failed")
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// handleUserAuth re-validates the caller's token and returns a fresh one
// together with the current user record.
func (s *Server) handleUserAuth(c *gin.Context) {
	claims := currentUser(c)

	user, err := s.users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", claims.UserID).Msg("User lookup failed")
		internalError(c)
		return
	}
	if user == nil {
		unauthorized(c, "unauthorized", "User no longer exists")
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Token issuance failed")
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
