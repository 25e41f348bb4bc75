package notify

import "context"

// Worker drains the dispatch channel and persists notifications. Delivery to
// actual channels (email, push) hangs off the store, out of the request path.
type Worker struct {
	store Store
	inbox <-chan Notification
}

func NewWorker(store Store, inbox <-chan Notification) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-w.inbox:
			if err := w.store.Append(ctx, n); err != nil {
				return err
			}
		}
	}
}
