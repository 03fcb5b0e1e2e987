// Package services wraps the cadence backend REST API.
//
// # Client
//
// [Client] is the shared transport. Every request:
//   - waits on a [rate.Limiter] so bursts from the TUI do not hammer the backend
//   - carries the session token as a bearer header through an [oauth2.Transport]
//   - carries a fresh X-Request-ID for correlation with backend logs
//   - runs inside a [gobreaker.CircuitBreaker]; transport failures and 5xx responses count as failures
//
// Responses use the `{"data": ...}` envelope. Paged endpoints are decoded with [paging.Decode].
//
// # Resource Services
//
//   - [NotificationService] : inbox listing, unread count, mark read (implements notifications.Service)
//   - [CatalogService] : songs, playlists and creator submissions
//   - [AuthService] : password login and current user lookup
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which unwraps to:
//   - [shared.ErrNotAuthenticated] : 401 responses
//   - [shared.ErrAPIRequest] : every other status
//
// An open breaker surfaces as [shared.ErrServiceUnavailable].
package services
