package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/services"
	"github.com/devilmonastery/bnetsso/web/internal/render"
)

// RegisterForm shows the post-registration interstitial
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	reg, spec := h.pendingRegistration(r)
	if spec == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderRegistration(w, r, http.StatusOK, reg, spec, entities.RegistrationInput{}, nil)
}

// RegisterSubmit validates the interstitial form and finalizes the account
func (h *Handler) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	reg, spec := h.pendingRegistration(r)
	if spec == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Registration failed", "The form could not be read.")
		return
	}
	input := entities.RegistrationInput{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
	}

	user, err := h.plugin.InterstitialSubmit(r.Context(), reg, input)
	switch {
	case err == nil:
	case services.IsValidationFailure(err):
		h.renderRegistration(w, r, http.StatusBadRequest, reg, spec, input, services.ValidationReasons(err))
		return
	case errors.Is(err, services.ErrNoPendingRegistration):
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	default:
		h.log.Error("registration failed",
			slog.String("user_id", reg.UserID),
			slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusInternalServerError, "Registration failed", "We could not save your registration. Please try again.")
		return
	}

	if err := h.sessionManager.ClearRegistration(r, w); err != nil {
		h.log.Error("failed to clear registration context", slog.String("error", err.Error()))
	}

	h.log.Info("registration completed", slog.String("user_id", user.ID))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// pendingRegistration loads the session's registration context and the
// page to render for it.
func (h *Handler) pendingRegistration(r *http.Request) (*entities.RegistrationContext, *entities.InterstitialSpec) {
	reg, err := h.sessionManager.Registration(r)
	if err != nil {
		h.log.Warn("discarding unreadable registration context", slog.String("error", err.Error()))
		return nil, nil
	}
	return reg, h.plugin.Interstitial(reg)
}

func (h *Handler) renderRegistration(w http.ResponseWriter, r *http.Request, status int, reg *entities.RegistrationContext, spec *entities.InterstitialSpec, input entities.RegistrationInput, reasons []services.ValidationReason) {
	data := h.newTemplateData(r)
	data["Data"] = spec.Data
	data["Username"] = input.Username
	data["Email"] = input.Email

	errs := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		errs = append(errs, string(reason))
	}
	data["Errors"] = errs

	h.renderTemplate(w, status, render.PageName(spec.Template), data)
}
