package orders

import (
	"context"
	"sync"
)

// Transactor runs fn inside one unit of work. Nested calls join the outer one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventSink publishes domain events. Inside a transaction the publish is
// deferred until commit and dropped on rollback.
type EventSink interface {
	Emit(ctx context.Context, topic, eventType, key string, payload any)
}

type NopSink struct{}

func (NopSink) Emit(context.Context, string, string, string, any) {}

type hooksKey struct{}

// CommitHooks collects callbacks that must only run once a transaction committed.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// BeginCommitHooks attaches a fresh hook list to ctx. Transactors call it when
// they open a transaction and call Run after a successful commit.
func BeginCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	h := &CommitHooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

func (h *CommitHooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// AfterCommit defers fn to the enclosing transaction's commit, or runs it now
// when ctx carries no transaction.
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(hooksKey{}).(*CommitHooks)
	if !ok {
		fn()
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

type traceKey struct{}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}
