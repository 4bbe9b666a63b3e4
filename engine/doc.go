// Package engine wires a jobwatch.Config into a ready-to-use tracker.
//
// # Building an Engine
//
//	cfg, err := jobwatch.LoadConfig("jobwatch.yaml")
//	if err != nil { ... }
//
//	eng, err := engine.Build(cfg,
//	    engine.WithLogger(logger),
//	    engine.WithExtension(stream.NewBroker(logger)),
//	    engine.WithStore(redisstore.New(rdb)),
//	)
//	if err != nil { ... }
//	defer eng.Close()
//
// Config.Transport selects the source: "poll" fetches the job each
// interval, "events" pages its event log, "push" follows its server-sent
// event stream and "push-ws" holds a WebSocket open.
//
// # Tracking
//
//	sub, err := eng.Track(jobID, tracker.Handlers{
//	    OnChange: func(cur, prev *job.Snapshot) { ... },
//	})
//	defer sub.Unsubscribe()
//
//	final, err := eng.Wait(ctx, jobID)
//
// API calls pass through recover, logging, tracing, metrics, any
// WithMiddleware additions and the fetch timeout, in that order.
package engine
