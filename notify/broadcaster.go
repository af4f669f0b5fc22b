package notify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Outcome is the delivery result for one recipient.
type Outcome struct {
	UserID int64
	Err    error
}

// Result collects per-recipient outcomes in recipient order.
type Result struct {
	Outcomes []Outcome
}

// Sent counts successful deliveries.
func (r Result) Sent() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

func (r Result) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Broadcaster delivers messages with a per-recipient timeout. A failing
// recipient never stops delivery to the others.
type Broadcaster struct {
	sender      Sender
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

func NewBroadcaster(sender Sender, timeout time.Duration, concurrency int, logger *slog.Logger) *Broadcaster {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Broadcaster{sender: sender, timeout: timeout, concurrency: concurrency, logger: logger}
}

// Notify sends a single message under the delivery timeout.
func (b *Broadcaster) Notify(ctx context.Context, userID int64, msg Message) error {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	err := b.sender.Send(ctx, userID, msg)
	if err != nil {
		b.logger.Warn("failed to notify user", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return err
}

func (b *Broadcaster) Broadcast(ctx context.Context, recipients []int64, msg Message) Result {
	result := Result{Outcomes: make([]Outcome, len(recipients))}

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, userID := range recipients {
		g.Go(func() error {
			result.Outcomes[i] = Outcome{UserID: userID, Err: b.Notify(ctx, userID, msg)}
			return nil
		})
	}
	_ = g.Wait()

	b.logger.Info("broadcast finished",
		slog.Int("recipients", len(recipients)),
		slog.Int("sent", result.Sent()))
	return result
}
