// Package webapp serves the dashboard over HTTP.
//
// # Visitors
//
// Each browser is a visitor, identified by the creatordash_visitor cookie.
// A visitor owns one session.Store, the gate.Gate reading it and one
// credform.Form. Visitors live in memory and are evicted after
// Config.VisitorTTL of inactivity; the signed creatordash_session cookie
// lets a returning browser resolve its session again.
//
// # Gate
//
// Every routed page goes through handleGate, which renders exactly one of:
//
//   - the loading view, while the visitor's first resolution is pending
//     (a request waits up to Config.ResolveWait before falling back to it)
//   - the credential form, when the visitor is signed out
//   - the navigation shell around the requested content page
//
// Form actions (submit, mode, reveal, sign-out) are CSRF-checked POSTs that
// redirect back to the page the visitor was on. Open pages subscribe to
// /auth/events and reload when their gate view changes, for example when the
// session expires or is signed out from another tab.
//
// Unknown paths are not part of the route table and get the mux's 404.
package webapp
