package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"server/src/schemas"
	"server/src/utils"

	"github.com/go-chi/jwtauth"
)

// requireUser extracts the caller identity. The auth provider sits in
// front of this service; here an absent bearer token is the only fatal
// authentication condition (401).
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := jwtauth.TokenFromHeader(r)
	if token == "" {
		h.HandleErrors(w, utils.Unauthorized("missing bearer token"))
		return "", false
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}
	if userID == "" {
		h.HandleErrors(w, utils.BadRequest("missing userId"))
		return "", false
	}
	return userID, true
}

func (h *Handler) GetAPIStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	noStore(w)

	status, err := h.Controller.GetAPIStatus(ctx)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, status, http.StatusOK)
}

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	noStore(w)

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	response, err := h.Controller.Register(ctx, userID)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, response, http.StatusOK)
}

func (h *Handler) DeregisterUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	noStore(w)

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.Controller.Deregister(ctx, userID); err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, map[string]bool{"success": true}, http.StatusOK)
}

func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	noStore(w)

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req schemas.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleErrors(w, utils.BadRequest("invalid request body"))
		return
	}
	if req.RedirectURI == "" {
		h.HandleErrors(w, utils.BadRequest("missing redirectUri"))
		return
	}

	link, err := h.Controller.CreateLink(ctx, userID, req.RedirectURI, req.Broker)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, link, http.StatusOK)
}

func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	accounts, err := h.Controller.GetAccounts(ctx, userID)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, accounts, http.StatusOK)
}

func (h *Handler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	accountID := r.URL.Query().Get("accountId")
	refresh := r.URL.Query().Get("refresh") == "true"

	holdings := h.Controller.GetHoldings(ctx, userID, accountID, refresh)
	h.respond(w, r, holdings, http.StatusOK)
}

func (h *Handler) SyncAccounts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	response := h.Controller.Sync(ctx, userID)
	h.respond(w, r, response, http.StatusOK)
}

func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()
	noStore(w)

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req schemas.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleErrors(w, utils.BadRequest("invalid request body"))
		return
	}

	accounts, err := h.Controller.Callback(ctx, userID, req.AuthorizationID, req.Brokerage)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, accounts, http.StatusOK)
}
