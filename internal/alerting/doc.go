// Package alerting manages alert rules, alert history, and threshold
// evaluation for the monitoring pipeline.
//
// Rules pair a metric with a comparison operator and threshold. The
// Evaluator checks every ingested metric sample against the enabled
// rules; a breached rule records a triggered alert_history row and
// pushes it to an optional Notifier for websocket fan-out. While an
// alert for a (rule, server) pair remains unresolved, further breaches
// of the same pair are suppressed, so a sustained condition produces
// one alert rather than one per sample.
//
// Severity is not stored on rules. It is derived at trigger time from
// how far the reading overshoots the threshold: readings within 20% of
// the threshold grade as warning, beyond that as critical.
package alerting
