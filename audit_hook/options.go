package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithActions restricts the extension to emit only the listed actions.
// By default every action is enabled. Unknown actions are ignored.
//
// Example:
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionStateChanged,
//	        audithook.ActionFetchFailed,
//	    ),
//	)
func WithActions(actions ...string) Option {
	known := make(map[string]bool)
	for _, a := range AllActions() {
		known[a] = true
	}
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			if known[a] {
				e.enabled[a] = true
			}
		}
	}
}

// WithLogger sets a custom logger for the extension.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}
