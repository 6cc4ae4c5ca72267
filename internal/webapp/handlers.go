// ABOUTME: HTTP handlers for the gate, credential form actions and sign-out
// ABOUTME: Form actions post-redirect-get back to the page the visitor was on

package webapp

import (
	"errors"
	"net/http"

	"github.com/2389/creatordash/internal/credform"
	"github.com/2389/creatordash/internal/gate"
	"github.com/2389/creatordash/internal/identity"
	"github.com/2389/creatordash/internal/metrics"
	"github.com/2389/creatordash/internal/nav"
	"github.com/2389/creatordash/internal/routes"
)

// handleGate renders exactly one of the loading view, the credential form
// or the navigation shell for the requested path.
func (a *App) handleGate(w http.ResponseWriter, r *http.Request) {
	v := a.visitorFor(w, r)
	r, csrfToken := a.ensureCSRFToken(w, r)

	a.awaitResolution(r, v)
	a.revalidate(r, v)

	st := v.gate.State()
	a.syncSessionCookie(w, r, st)

	view := gate.Select(st)
	a.metrics.GateView(view.String())

	switch view {
	case gate.ViewLoading:
		a.renderLoading(w, r.URL.Path)

	case gate.ViewCredentialForm:
		a.renderCredentialForm(w, v.form.Snapshot(), r.URL.Path, csrfToken)

	case gate.ViewShell:
		page, ok := routes.Lookup(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		id, _ := st.Identity()
		a.renderShell(w, shellData{
			Title:     page.Title,
			View:      view.String(),
			Email:     id.Email,
			Items:     nav.Items(r.URL.Path),
			Page:      page,
			CSRFToken: csrfToken,
			Next:      r.URL.Path,
		})
	}
}

// formAction parses and CSRF-checks a POST from the visitor's page.
// It writes the error response itself and reports false on failure.
func (a *App) formAction(w http.ResponseWriter, r *http.Request) (*visitor, string, bool) {
	v := a.visitorFor(w, r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return nil, "", false
	}

	if !a.validateCSRF(r) {
		a.logger.Warn("form action with invalid CSRF token", "path", r.URL.Path)
		http.Error(w, "Invalid request, please try again", http.StatusForbidden)
		return nil, "", false
	}

	return v, safeNext(r.FormValue("next")), true
}

// keepEmail copies the posted email into the form so re-renders keep it.
// The password is never kept between requests.
func keepEmail(r *http.Request, form *credform.Form) {
	form.SetEmail(r.PostFormValue("email"))
}

// handleSubmit processes the credential form
func (a *App) handleSubmit(w http.ResponseWriter, r *http.Request) {
	v, next, ok := a.formAction(w, r)
	if !ok {
		return
	}

	// The form is only live while the gate shows it.
	if gate.Select(v.store.State()) != gate.ViewCredentialForm {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	keepEmail(r, v.form)
	mode := v.form.Snapshot().Mode

	// Submit drops the password again before it returns
	v.form.SetPassword(r.PostFormValue("password"))
	err := v.form.Submit(r.Context(), v.store)
	switch {
	case errors.Is(err, credform.ErrInFlight):
		a.logger.Debug("duplicate submission ignored", "visitor_id", v.id)
	case errors.Is(err, credform.ErrIncomplete):
		a.logger.Debug("incomplete submission refused", "visitor_id", v.id)
	case err != nil:
		result := metrics.ResultError
		if _, isAuth := identity.AsAuthError(err); isAuth {
			result = metrics.ResultRejected
		}
		a.metrics.AuthAttempt(mode.String(), result)
	default:
		a.metrics.AuthAttempt(mode.String(), metrics.ResultSuccess)
		a.syncSessionCookie(w, r, v.store.State())
	}

	http.Redirect(w, r, next, http.StatusSeeOther)
}

// handleToggleMode switches between sign-in and sign-up, keeping the typed email
func (a *App) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	v, next, ok := a.formAction(w, r)
	if !ok {
		return
	}
	keepEmail(r, v.form)
	v.form.ToggleMode()
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// handleToggleReveal shows or hides the password for browsers without
// scripts; with scripts the page toggles the field in place.
func (a *App) handleToggleReveal(w http.ResponseWriter, r *http.Request) {
	v, next, ok := a.formAction(w, r)
	if !ok {
		return
	}
	keepEmail(r, v.form)
	v.form.ToggleReveal()
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// handleSignOut ends the visitor's session. A failed sign-out leaves the
// visitor signed in; the failure is logged and counted.
func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	v, next, ok := a.formAction(w, r)
	if !ok {
		return
	}

	if err := v.store.SignOut(r.Context()); err != nil {
		a.metrics.SignOut(metrics.ResultError)
	} else {
		a.metrics.SignOut(metrics.ResultSuccess)
	}

	a.syncSessionCookie(w, r, v.store.State())
	http.Redirect(w, r, next, http.StatusSeeOther)
}
