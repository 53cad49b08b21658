package handler

import (
	"net/http"

	"github.com/bitway/bitway-api/internal/service"
)

// UserHandler serves the caller's own profile and security settings.
type UserHandler struct {
	users ProfileService
}

func NewUserHandler(users ProfileService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	RespondJSON(w, r, http.StatusOK, "Profile retrieved", p.User)
}

type profileRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	DOB       string `json:"dob"`
	Gender    string `json:"gender"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), p.UserID, service.ProfileUpdate{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		DOB:       req.DOB,
		Gender:    req.Gender,
	})
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Profile updated successfully", user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.users.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Password changed successfully", nil)
}

func (h *UserHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.users.VerifyPassword(r.Context(), p.UserID, req.Password); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Password verified", nil)
}

type pinRequest struct {
	OldPIN string `json:"oldPin"`
	PIN    string `json:"pin"`
}

func (h *UserHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req pinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.users.SetPIN(r.Context(), p.UserID, req.OldPIN, req.PIN); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Transaction pin saved", nil)
}

func (h *UserHandler) SetTwoFactor(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"email2FAuth"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.SetTwoFactor(r.Context(), p.UserID, req.Enabled)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	message := "Two-factor authentication disabled successfully"
	if user.TwoFactorEnabled {
		message = "Two-factor authentication enabled successfully"
	}
	RespondJSON(w, r, http.StatusOK, message, user)
}

func (h *UserHandler) SetBVN(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req struct {
		BVN string `json:"bvn"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.users.SetBVN(r.Context(), p.UserID, req.BVN)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "BVN saved successfully", user)
}

func (h *UserHandler) ToggleBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	visible, err := h.users.ToggleBalanceVisibility(r.Context(), p.UserID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Balance visibility updated", map[string]bool{"visible": visible})
}
