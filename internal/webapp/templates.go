// ABOUTME: Template rendering functions for the gate's three views
// ABOUTME: Loads templates from embedded filesystem and renders them

package webapp

import (
	"html/template"
	"net/http"

	"github.com/2389/creatordash/internal/credform"
	"github.com/2389/creatordash/internal/gate"
	"github.com/2389/creatordash/internal/nav"
	"github.com/2389/creatordash/internal/routes"
)

// loadingRefreshSeconds is the fallback reload interval when scripts are off
const loadingRefreshSeconds = 1

// Template data types
type loadingData struct {
	Title          string
	View           string
	Next           string
	RefreshSeconds int
}

type credentialFormData struct {
	Title     string
	View      string
	Input     credform.Input
	SignUp    bool
	CSRFToken string
	Next      string
}

type shellData struct {
	Title     string
	View      string
	Email     string
	Items     []nav.Item
	Page      routes.Page
	CSRFToken string
	Next      string
}

func (a *App) render(w http.ResponseWriter, name string, data any) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+name))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render template", "template", name, "error", err)
	}
}

// renderLoading renders the neutral loading indicator
func (a *App) renderLoading(w http.ResponseWriter, next string) {
	a.render(w, "loading.html", loadingData{
		Title:          "Loading",
		View:           gate.ViewLoading.String(),
		Next:           next,
		RefreshSeconds: loadingRefreshSeconds,
	})
}

// renderCredentialForm renders the sign-in / sign-up form
func (a *App) renderCredentialForm(w http.ResponseWriter, in credform.Input, next, csrfToken string) {
	title := "Sign In"
	if in.Mode == credform.ModeSignUp {
		title = "Sign Up"
	}
	a.render(w, "credential_form.html", credentialFormData{
		Title:     title,
		View:      gate.ViewCredentialForm.String(),
		Input:     in,
		SignUp:    in.Mode == credform.ModeSignUp,
		CSRFToken: csrfToken,
		Next:      next,
	})
}

// renderShell renders the navigation shell around a content page
func (a *App) renderShell(w http.ResponseWriter, data shellData) {
	a.render(w, "shell.html", data)
}
