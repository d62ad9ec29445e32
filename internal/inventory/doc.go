// Package inventory manages the data-centre asset registry: servers,
// server groups, and non-server assets (racks, IP blocks, bandwidth,
// hardware).
//
// Repositories follow a uniform contract:
//   - Paginated listings with keyword/status filters, never-nil slices
//   - Partial updates via pointer-field update structs; nil fields are
//     left untouched
//   - Update of a missing ID is a no-op (nil, nil), delete is idempotent
//   - Timestamps stored as RFC3339 UTC TEXT
package inventory
