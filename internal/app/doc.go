// Package app provides the application service layer.
//
// Orchestrates use cases: signup, login, listings, favorites, messaging and the
// admin dashboard. Sits between HTTP handlers and domain repositories and owns
// the access-control policy: every call receives the caller's domain.Identity.
package app
