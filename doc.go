// Package dispatch sends a message to a list of users resolved from a
// user directory and reports a per-recipient delivery status.
//
// # Basic Usage
//
//	// Build an immutable directory
//	dir, err := memory.New(users...)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d, err := dispatch.New(ctx,
//	    dispatch.WithDirectory(dir),
//	    dispatch.WithTransport(myTransport),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close(ctx)
//
//	outcome := d.Dispatch(ctx, []int{66, 1, 5}, "Hello")
//	if err := outcome.Err(); err != nil {
//	    // only dispatch.ErrEmptyMessage today
//	}
//	for _, r := range outcome.Results() {
//	    fmt.Println(r.ID, r.Status)
//	}
//
// # Semantics
//
//   - An empty message is rejected with KindEmptyMessage before any lookup.
//   - IDs are resolved with Directory.FindByIDs: results follow directory
//     order, and unknown IDs are dropped without error.
//   - Every recipient receives "Message: " + message.
//   - A failed delivery yields StatusError for that recipient and does not
//     stop the others. It never turns the outcome into a failure.
//
// # Transports
//
// A Transport reports delivery as a boolean. AlwaysDeliver accepts everything.
// SenderTransport adapts an error-returning Sender with retries (see package
// retry), and RateLimitedSender throttles one.
//
// # Directories
//
// The directory package defines User and Directory. Directories are built
// once and never mutated:
//   - In-memory (directory/memory)
//   - PostgreSQL snapshot loader (directory/postgres) - accepts *sqlx.DB
//   - MongoDB snapshot loader (directory/mongo) - accepts *mongo.Client
//
// # Events
//
// Each Dispatcher publishes DispatchedEvent on its own event bus
// (github.com/rbaliyan/event/v3). Pass WithRedisClient or WithEventTransport
// to route events somewhere real; the default transport drops them.
//
//	d.Events().Dispatched.Subscribe(ctx, handler)
package dispatch
