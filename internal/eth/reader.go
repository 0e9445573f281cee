package eth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/calldepth/trade-guard/internal/metrics"
)

// Backoff bounds for the single post-rotation retry. Jittered so that
// concurrent callers do not reconnect in lockstep.
const (
	backoffMin = 120 * time.Millisecond
	backoffMax = 280 * time.Millisecond
)

// Limiter wraps every remote call; it may throttle or queue the call.
// The default is direct invocation.
type Limiter func(ctx context.Context, call func(ctx context.Context) error) error

func passthrough(ctx context.Context, call func(ctx context.Context) error) error {
	return call(ctx)
}

// ReadError is the typed failure surfaced when a read exhausts its
// retry. Label carries a "_retry" suffix when the post-rotation
// attempt also failed.
type ReadError struct {
	Label   string
	Timeout bool
	Err     error
}

func (e *ReadError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("read %s timed out: %v", e.Label, e.Err)
	}
	return fmt.Sprintf("read %s failed: %v", e.Label, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Reader issues deadline-bounded reads against the endpoint pool with
// automatic rotation failover.
type Reader struct {
	pool     *Pool
	deadline time.Duration
	limiter  Limiter
}

// NewReader creates a reader. A nil limiter means pass-through.
func NewReader(pool *Pool, deadline time.Duration, limiter Limiter) *Reader {
	if limiter == nil {
		limiter = passthrough
	}
	return &Reader{pool: pool, deadline: deadline, limiter: limiter}
}

// Pool exposes the underlying endpoint pool, for guards that need a
// consistent handle across several reads.
func (r *Reader) Pool() *Pool { return r.pool }

// Deadline returns the default per-call deadline.
func (r *Reader) Deadline() time.Duration { return r.deadline }

// Op is a one-shot read against a specific endpoint handle.
type Op[T any] func(ctx context.Context, ep *Endpoint) (T, error)

// Read runs op against the active endpoint under deadline (the
// reader's default when deadline is zero). On any failure it rotates
// the pool, sleeps a jittered backoff, and retries exactly once with
// the same deadline against the (possibly new) active endpoint. A
// second failure surfaces as a *ReadError with the label suffixed
// "_retry".
func Read[T any](ctx context.Context, r *Reader, label string, deadline time.Duration, op Op[T]) (T, error) {
	ep := r.pool.Active()
	out, err := attempt(ctx, r, label, deadline, ep, op)
	if err == nil {
		return out, nil
	}

	r.pool.Rotate(fmt.Sprintf("%s: %v", label, err))
	time.Sleep(jitter())

	ep = r.pool.Active()
	out, err = attempt(ctx, r, label, deadline, ep, op)
	if err == nil {
		return out, nil
	}

	var zero T
	return zero, &ReadError{
		Label:   label + "_retry",
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}

// ReadOn runs op against a caller-supplied endpoint, with the deadline
// and limiter applied but without rotation or retry. Guards that must
// observe one consistent handle across multiple reads obtain it from
// Pool().Active() and issue each read through ReadOn.
func ReadOn[T any](ctx context.Context, r *Reader, label string, deadline time.Duration, ep *Endpoint, op Op[T]) (T, error) {
	out, err := attempt(ctx, r, label, deadline, ep, op)
	if err != nil {
		var zero T
		return zero, &ReadError{
			Label:   label,
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Err:     err,
		}
	}
	return out, nil
}

// attempt performs one deadline-bounded call through the limiter.
func attempt[T any](ctx context.Context, r *Reader, label string, deadline time.Duration, ep *Endpoint, op Op[T]) (T, error) {
	if deadline <= 0 {
		deadline = r.deadline
	}
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	var out T
	err := r.limiter(cctx, func(c context.Context) error {
		v, opErr := op(c, ep)
		if opErr != nil {
			return opErr
		}
		out = v
		return nil
	})
	metrics.ReadLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		log.Debug().
			Err(err).
			Str("label", label).
			Str("endpoint", ep.Name).
			Msg("Read attempt failed")
		var zero T
		return zero, err
	}
	return out, nil
}

func jitter() time.Duration {
	span := int64(backoffMax - backoffMin)
	return backoffMin + time.Duration(rand.Int63n(span+1))
}
