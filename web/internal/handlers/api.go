package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/devilmonastery/bnetsso/internal/auth"
	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/services"
)

// Strategies lists the configured login strategies
func (h *Handler) Strategies(w http.ResponseWriter, r *http.Request) {
	strategies := h.plugin.RegisterStrategy([]entities.Strategy{})
	h.writeJSON(w, http.StatusOK, strategies)
}

// Associations lists the account's linked providers
func (h *Handler) Associations(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	assoc, err := h.plugin.Association(r.Context(), user.UserID)
	if err != nil {
		h.log.Error("failed to load association",
			slog.String("user_id", user.UserID),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, []*entities.AccountAssociation{assoc})
}

// DeleteUser deletes the logged-in account and its association
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())

	err := h.plugin.DeleteAccount(r.Context(), user.UserID)
	if err != nil && !errors.Is(err, services.ErrAssociationStoreFailed) {
		h.log.Error("failed to delete account",
			slog.String("user_id", user.UserID),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// association cleanup failures are logged by the service; the account is gone
	if err := h.sessionManager.Clear(r, w); err != nil {
		h.log.Error("error clearing session", slog.String("error", err.Error()))
	}
	w.WriteHeader(http.StatusNoContent)
}
