// Package domain defines the marketplace's core types and repository contracts.
//
// Files are concept-oriented (user.go, listing.go, favorite.go, message.go,
// identity.go, errors.go). Implementations live in internal/adapter; use cases
// live in internal/app.
package domain
