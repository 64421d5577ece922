package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mwhitford/skylog/internal/apperr"
	"github.com/mwhitford/skylog/internal/auth"
	"github.com/mwhitford/skylog/models"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		h.writeError(w, r, apperr.Validation("username, email and a password of at least 8 characters are required"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, apperr.Store("hashing password", err))
		return
	}
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         "user",
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		h.writeError(w, r, apperr.Store("issuing token", err))
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperr.Validation("invalid request body"))
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Same answer for unknown user and wrong password.
		h.writeError(w, r, apperr.Unauthorized("invalid credentials"))
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		h.writeError(w, r, apperr.Store("issuing token", err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}
