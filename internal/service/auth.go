package service

import (
	"errors"
	"net/http"

	"github.com/stemlabtz/stemquote/internal/middleware"
	"github.com/stemlabtz/stemquote/internal/models"
	"github.com/stemlabtz/stemquote/internal/storage"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Email == "" {
		s.writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}

	user, err := s.passwords.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.fail(w, err)
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	s.writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.passwords.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Warn("login failed", "email", req.Email)
		s.fail(w, err)
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Service) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Always answer 200 so the endpoint cannot be used to probe for accounts.
	accepted := map[string]string{"message": "if the email exists, a reset link has been sent"}

	user, token, err := s.passwords.StartReset(r.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeJSON(w, http.StatusOK, accepted)
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	link := s.frontendURL + "/reset-password?token=" + token
	if err := s.mailer.SendPasswordReset(user.Email, user.Name, link); err != nil {
		s.logger.Error("send reset mail", "error", err, "email", user.Email)
	}
	s.writeJSON(w, http.StatusOK, accepted)
}

func (s *Service) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.passwords.CompleteReset(r.Context(), req.Token, req.Password); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
