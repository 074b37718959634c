package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/devilmonastery/bnetsso/internal/auth"
	"github.com/devilmonastery/bnetsso/internal/auth/battlenet"
	"github.com/devilmonastery/bnetsso/internal/domain/services"
	"github.com/devilmonastery/bnetsso/internal/pkg/urlutil"
)

// BattleNetLogin starts the authorization code flow. A logged-in account
// starts a link instead of a login.
func (h *Handler) BattleNetLogin(w http.ResponseWriter, r *http.Request) {
	var linkUserID string
	if user, err := auth.GetUserFromContext(r.Context()); err == nil {
		linkUserID = user.UserID
	}
	returnTo := urlutil.SafeReturnPath(r.URL.Query().Get("returnTo"), "/")

	state, nonce, err := h.state.Issue(linkUserID, returnTo)
	if err != nil {
		h.log.Error("failed to issue oauth state", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusInternalServerError, "Login failed", "We could not start the Battle.net login. Please try again.")
		return
	}

	if err := h.sessionManager.SetNonce(r, w, nonce); err != nil {
		h.log.Error("failed to save session", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusInternalServerError, "Login failed", "We could not start the Battle.net login. Please try again.")
		return
	}

	http.Redirect(w, r, h.plugin.Provider().AuthCodeURL(state), http.StatusFound)
}

// BattleNetCallback completes the authorization code flow
func (h *Handler) BattleNetCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	nonce, err := h.sessionManager.TakeNonce(r, w)
	if err != nil {
		h.log.Error("failed to read session", slog.String("error", err.Error()))
	}

	if errCode := q.Get("error"); errCode != "" {
		h.log.Info("battle.net authorization declined",
			slog.String("error", errCode),
			slog.String("description", q.Get("error_description")))
		h.renderError(w, r, http.StatusUnauthorized, "Login cancelled", "Battle.net did not authorize the login.")
		return
	}

	claims, err := h.state.Verify(q.Get("state"), nonce)
	if err != nil {
		h.log.Warn("rejected oauth state", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusBadRequest, "Login failed", "Your login request expired or was not started here. Please try again.")
		return
	}

	// a link must finish in the session that started it
	var currentUserID string
	if user, err := auth.GetUserFromContext(r.Context()); err == nil {
		currentUserID = user.UserID
	}
	if claims.LinkUserID != "" && claims.LinkUserID != currentUserID {
		h.log.Warn("link state does not match session account",
			slog.String("state_user_id", claims.LinkUserID),
			slog.String("session_user_id", currentUserID))
		h.renderError(w, r, http.StatusBadRequest, "Login failed", "Your login request was not started here. Please try again.")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.renderError(w, r, http.StatusBadRequest, "Login failed", "Battle.net did not return an authorization code.")
		return
	}

	token, err := h.plugin.Provider().Exchange(r.Context(), code)
	if err != nil {
		h.log.Error("battle.net token exchange failed", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusBadGateway, "Login failed", "We could not reach Battle.net. Please try again.")
		return
	}

	res, reg, err := h.plugin.LoginCallback(r.Context(), token, claims.LinkUserID)
	if err != nil {
		h.log.Error("battle.net login failed", slog.String("error", err.Error()))
		h.renderError(w, r, loginFailureStatus(err), "Login failed", "We could not complete your Battle.net login. Please try again.")
		return
	}

	if err := h.sessionManager.SetUserID(r, w, res.User.ID); err != nil {
		h.log.Error("failed to save session", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusInternalServerError, "Login failed", "We could not complete your Battle.net login. Please try again.")
		return
	}

	h.log.Info("battle.net login",
		slog.String("user_id", res.User.ID),
		slog.String("outcome", string(res.Outcome)))

	if reg != nil {
		if err := h.sessionManager.SetRegistration(r, w, reg); err != nil {
			h.log.Error("failed to save registration context", slog.String("error", err.Error()))
			h.renderError(w, r, http.StatusInternalServerError, "Login failed", "We could not complete your Battle.net login. Please try again.")
			return
		}
		http.Redirect(w, r, "/register/complete", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, urlutil.SafeReturnPath(claims.ReturnTo, "/"), http.StatusSeeOther)
}

// loginFailureStatus maps a login error to a response status
func loginFailureStatus(err error) int {
	switch {
	case errors.Is(err, battlenet.ErrProfileFetchFailed), errors.Is(err, battlenet.ErrCharacterFetchFailed):
		return http.StatusBadGateway
	case services.IsUserNotFound(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
