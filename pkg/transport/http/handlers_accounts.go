package http

import (
	"net/http"

	"github.com/gearshop/gearshop"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	account, err := s.client.Register(r.Context(), gearshop.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	result, err := s.client.Login(r.Context(), gearshop.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.client.Account(r.Context(), accountID(r.Context()))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type profileRequest struct {
	Bio         *string               `json:"bio"`
	AvatarURL   *string               `json:"avatarUrl"`
	SocialLinks *gearshop.SocialLinks `json:"socialLinks"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	account, err := s.client.UpdateProfile(r.Context(), accountID(r.Context()), gearshop.ProfileInput{
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		SocialLinks: req.SocialLinks,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.client.DeleteAccount(r.Context(), accountID(r.Context())); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.client.ListAccounts(r.Context(), accountID(r.Context()))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

type changeRoleRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	account, err := s.client.ChangeRole(r.Context(), accountID(r.Context()), req.UserID, req.Role)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}
