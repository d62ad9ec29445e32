// Package api implements the HTTP REST API and WebSocket server for IDC Core.
//
// This package provides:
//   - REST endpoints for servers, groups, assets, tickets, users, alert
//     rules/history, monitoring samples, and dashboard aggregates
//   - WebSocket hub for real-time telemetry broadcasts
//   - JWT authentication with an in-process revocation blacklist
//   - Middleware stack (request ID, logging, recovery, CORS, body limit,
//     fixed-window rate limiting)
//
// # Architecture
//
// The API server sits between the browser admin console and the SQLite
// data store. Telemetry samples (simulated or ingested over MQTT) flow
// through a sink wired in main: stored, mirrored to InfluxDB, checked
// against alert rules, and broadcast to WebSocket clients.
//
// # Responses
//
// Every endpoint returns the uniform envelope {code, message, data};
// listings wrap their payload as {list, total, page, pageSize}. Error
// codes mirror the HTTP status and carry data=null.
//
// # Security
//
// Access tokens are short-lived HS256 JWTs verified on every protected
// request; logout inserts the raw token into a TTL blacklist consulted
// during verification. WebSocket connections accept a bearer header or
// token query parameter but do not require one.
package api
