package handler

import (
	"net/http"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/service"
)

type AuthHandler struct {
	users AuthService
}

func NewAuthHandler(users AuthService) *AuthHandler {
	return &AuthHandler{users: users}
}

type registerRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.users.Register(r.Context(), service.RegisterRequest{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
	})
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusCreated, "Account created successfully", result)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a customer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, domain.RoleCustomer)
}

// AdminLogin authenticates an administrator.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, domain.RoleAdmin)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, role string) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.users.Login(r.Context(), req.Username, req.Password, role)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Login successful", result)
}

// VerifyToken echoes the profile of the authenticated caller.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	RespondJSON(w, r, http.StatusOK, "Token is valid", p.User)
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Email verified successfully", user)
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	if err := h.users.ResendVerification(r.Context(), p.UserID); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Verification email sent", nil)
}

// RecoverAccount always answers success so callers cannot probe for registered emails.
func (h *AuthHandler) RecoverAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.users.RecoverAccount(r.Context(), req.Email, clientIP(r), r.UserAgent()); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "If the email is registered, a reset link has been sent", nil)
}

type resetPasswordRequest struct {
	Token             string `json:"token"`
	NewPassword       string `json:"newPassword"`
	RetypeNewPassword string `json:"retypeNewPassword"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.users.ResetPassword(r.Context(), req.Token, req.NewPassword, req.RetypeNewPassword); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Password reset successfully", nil)
}
