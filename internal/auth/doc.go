// Package auth provides authentication and authorisation for IDC Core.
//
// It implements a 3-tier role model (viewer → operator → admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - JWT access/refresh token pairs (HS256, short-lived access tokens)
//   - In-process revocation blacklist so logout invalidates access tokens
//     before their natural expiry
//   - Account lifecycle states (active/inactive/locked) checked at login
//     and refresh
//
// The blacklist is intentionally in-memory: the console runs as a single
// process, access tokens are short-lived, and a restart therefore has a
// small, bounded revocation gap rather than a correctness problem.
package auth
