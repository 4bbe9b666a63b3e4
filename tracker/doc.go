// Package tracker turns a request/response job API into a stream of
// state change notifications.
//
// A [Tracker] keeps one session per tracked job. The first
// [Tracker.Subscribe] for a job starts the session's goroutine, which
// reads observations from a [Stream] opened on the tracker's [Source],
// compares each one with the last recorded state and notifies every
// subscriber when the state changed. Only consecutive identical states
// are suppressed, so every observed transition is delivered once and in
// order.
//
// Failed observations are classified with the root package's error
// taxonomy:
//
//   - *jobwatch.ServerError (5xx, transport failure, fetch timeout) is
//     reported through OnError and retried after interval plus the
//     backoff strategy's delay; the counter resets on the next success.
//   - *jobwatch.ClientError and *jobwatch.ParseError are reported as
//     fatal, followed by OnClose; the session ends.
//
// A session also ends when the job reaches a terminal state (the change
// is delivered first, then OnClose) or when its last subscriber
// unsubscribes, in which case any observation in flight is discarded.
//
// Sources:
//
//   - [NewPollSource] fetches the job once per interval through a [Fetcher].
//   - package stream provides the event-log poller and the push transport.
package tracker
