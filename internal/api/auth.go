package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"rollbook/internal/account"
	"rollbook/internal/auth"
)

type credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type sessionResponse struct {
	Teacher account.Teacher `json:"teacher"`
	auth.TokenPair
}

func (s *Server) signup(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, &bindError{err})
		return
	}
	t, err := s.accounts.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.session(c, http.StatusCreated, t)
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, &bindError{err})
		return
	}
	t, err := s.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.session(c, http.StatusOK, t)
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, &bindError{err})
		return
	}
	claims, err := s.tokens.Parse(req.RefreshToken, auth.TypeRefresh)
	if err != nil {
		s.respondError(c, err)
		return
	}
	t, err := s.accounts.Get(c.Request.Context(), claims.Subject)
	if errors.Is(err, account.ErrNotFound) {
		err = auth.ErrInvalidToken
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.session(c, http.StatusOK, t)
}

func (s *Server) session(c *gin.Context, status int, t account.Teacher) {
	pair, err := s.tokens.Issue(t.ID, auth.RoleTeacher)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(status, sessionResponse{Teacher: t, TokenPair: pair})
}

func (s *Server) me(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	t, err := s.accounts.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teacher": t})
}
