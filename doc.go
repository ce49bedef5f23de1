// Package backend provides the Relist marketplace server.

// This package contains the main application entry point. The actual
// code is organized into subpackages:

// - internal/handlers: HTTP request handlers and page rendering
// - internal/models: Data models and database schemas
// - internal/auth: Authentication, sessions and OAuth
// - internal/storage: Item photo storage (S3 or local disk)
// - internal/database: Database connection and migrations
// - internal/email: Transactional email via SES
// - internal/middleware: HTTP middleware (auth, CSRF, rate limiting, metrics)
// - internal/cache: Redis listing cache
// - internal/web: Embedded templates and static assets
// - internal/seed: Development data seeding
package backend
