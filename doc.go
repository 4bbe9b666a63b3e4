// Package jobwatch is a Go client for a remote job-processing API. It lets
// a backend holding a service token, or an end user holding a job token,
// create jobs, submit staged inputs, read outputs, screenshots and logs,
// and observe a job's lifecycle until it reaches a terminal state.
//
// The root package holds the shared configuration and the error taxonomy.
// The subpackages do the work:
//
//   - client: HTTP API client for service and end-user tokens, vault flow
//   - tracker: turns repeated observations into state-change notifications
//   - stream: push (server-sent events or WebSocket) and event-log sources for the tracker
//   - engine: wires a Config into a client, a source and a tracker
//   - api: read-only HTTP status surface over an engine
//
// # Quick Start
//
//	cfg := jobwatch.DefaultConfig()
//	cfg.Token = os.Getenv("JOBWATCH_TOKEN")
//
//	eng, err := engine.Build(cfg)
//	if err != nil { ... }
//	defer eng.Close()
//
//	sub, err := eng.Track("job-id", tracker.Handlers{
//	    OnChange: func(cur, prev *job.Snapshot) { ... },
//	    OnError:  func(err error) { ... },
//	    OnClose:  func() { ... },
//	})
//
// # Errors
//
// Every API failure is one of [ClientError], [ServerError] or
// [ParseError]. Only ServerError is retried by the tracker.
package jobwatch
