package handlers

import (
	"net/http"

	"github.com/nlstn/go-stickynotes/internal/observability"
	"github.com/nlstn/go-stickynotes/internal/response"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err, "Error creating user")
		return
	}
	user, err := h.users.Signup(r.Context(), in.Username, in.Password)
	if err != nil {
		h.fail(w, r, err, "Error creating user")
		return
	}
	token, err := h.issuer.Issue(user.ID, user.Username)
	if err != nil {
		h.fail(w, r, err, "Error creating user")
		return
	}
	h.log(r).Info("user signed up", observability.LogFieldUserID, user.ID)
	h.write(w, r, http.StatusCreated, response.Body{
		"message": "User created successfully",
		"token":   token,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err, "Error logging in")
		return
	}
	user, err := h.users.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		h.fail(w, r, err, "Error logging in")
		return
	}
	token, err := h.issuer.Issue(user.ID, user.Username)
	if err != nil {
		h.fail(w, r, err, "Error logging in")
		return
	}
	http.SetCookie(w, h.issuer.NewCookie(token, h.secureCookies))
	h.write(w, r, http.StatusOK, response.Body{
		"message":  "Logged in successfully",
		"token":    token,
		"username": user.Username,
	})
}
