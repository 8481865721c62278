// Package logger builds configured slog loggers for the toolkit.
//
// It produces JSON output for production aggregation or text for local
// development, attaches static service attributes, and can inject
// request-scoped attributes (tenant id, principal id, client IP) from the
// context on every log call via a decorating handler.
//
//	log := logger.New(
//	    logger.WithJSONFormat(),
//	    logger.WithAttr(slog.String("service", "guardkit")),
//	    logger.WithContextExtractors(tenant.LoggerExtractor),
//	)
package logger
