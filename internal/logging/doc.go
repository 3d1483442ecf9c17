// Package logging builds the process-wide slog logger and provides
// attribute helpers shared across components. The logger is constructed
// once at startup from configuration and injected everywhere; packages
// never reach for a global logger.
package logging
