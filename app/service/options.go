package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
)

// AsyncRunner schedules work that must not block the request path.
type AsyncRunner func(task func())

// Notifier delivers the transactional emails of the shop.
type Notifier interface {
	SendVerification(ctx context.Context, user *entity.User, link string) error
	SendWelcome(ctx context.Context, user *entity.User) error
	SendPasswordReset(ctx context.Context, user *entity.User, link string) error
	SendOrderConfirmation(ctx context.Context, user *entity.User, order *entity.Order) error
}

type Option func(*runtime)

type runtime struct {
	asyncRunner AsyncRunner
	now         func() time.Time
}

func newRuntime(opts []Option) runtime {
	rt := runtime{
		asyncRunner: func(task func()) {
			go task()
		},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(&rt)
	}
	return rt
}

func WithAsyncRunner(runner AsyncRunner) Option {
	return func(rt *runtime) {
		if runner != nil {
			rt.asyncRunner = runner
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(rt *runtime) {
		if now != nil {
			rt.now = now
		}
	}
}

const notifyTimeout = 30 * time.Second

// notify runs send on the async runner with a detached context so the
// request context being cancelled does not abort delivery.
func (rt runtime) notify(send func(ctx context.Context) error, onError func(err error)) {
	rt.asyncRunner(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			onError(err)
		}
	})
}
