package ratelimit_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/alie/internal/adapters/ratelimit"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory limiter of 3 requests per minute", t, func() {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		l := ratelimit.NewMemory(
			ratelimit.WithLimit(3),
			ratelimit.WithWindow(time.Minute),
			ratelimit.WithClock(clock.Now),
		)

		Convey("When the first 3 requests arrive", func() {
			var last ratelimit.Decision
			for i := 0; i < 3; i++ {
				d, err := l.Allow(ctx, "client-a")
				So(err, ShouldBeNil)
				So(d.Allowed, ShouldBeTrue)
				So(d.Remaining, ShouldEqual, 2-i)
				last = d
				clock.Advance(time.Second)
			}

			Convey("Then the last one reports no remaining slots", func() {
				So(last.Limit, ShouldEqual, 3)
				So(last.Remaining, ShouldEqual, 0)
			})

			Convey("And the fourth is rejected until the oldest hit leaves the window", func() {
				d, err := l.Allow(ctx, "client-a")
				So(err, ShouldBeNil)
				So(d.Allowed, ShouldBeFalse)
				So(d.Remaining, ShouldEqual, 0)
				So(d.ResetAfter, ShouldEqual, 57*time.Second)
			})

			Convey("And other keys are unaffected", func() {
				d, _ := l.Allow(ctx, "client-b")
				So(d.Allowed, ShouldBeTrue)
				So(l.Len(), ShouldEqual, 2)
			})

			Convey("And after the window elapses requests succeed again", func() {
				clock.Advance(time.Minute)
				d, err := l.Allow(ctx, "client-a")
				So(err, ShouldBeNil)
				So(d.Allowed, ShouldBeTrue)
				So(d.Remaining, ShouldEqual, 2)
			})

			Convey("And the window slides one hit at a time", func() {
				// oldest hit was at t0, now is t0+3s
				clock.Advance(57 * time.Second)
				d, _ := l.Allow(ctx, "client-a")
				So(d.Allowed, ShouldBeTrue)
				d, _ = l.Allow(ctx, "client-a")
				So(d.Allowed, ShouldBeFalse)
			})
		})

		Convey("When keys go idle", func() {
			_, _ = l.Allow(ctx, "idle")
			_, _ = l.Allow(ctx, "busy")
			clock.Advance(45 * time.Second)
			_, _ = l.Allow(ctx, "busy")
			clock.Advance(30 * time.Second)

			Convey("Then a sweep removes only keys with no hits in the window", func() {
				So(l.Sweep(), ShouldEqual, 1)
				So(l.Len(), ShouldEqual, 1)
			})
		})

		Convey("When Run is cancelled", func() {
			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				l.Run(runCtx)
				close(done)
			}()
			cancel()

			Convey("Then it returns", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					So("Run did not return", ShouldBeEmpty)
				}
			})
		})
	})

	Convey("Given concurrent requests for one key", t, func() {
		l := ratelimit.NewMemory(ratelimit.WithLimit(50), ratelimit.WithShards(4))
		var allowed atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if d, _ := l.Allow(ctx, "shared"); d.Allowed {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly the limit is admitted", func() {
			So(allowed.Load(), ShouldEqual, 50)
		})
	})

	Convey("Given the default options", t, func() {
		l := ratelimit.NewMemory()
		for i := 0; i < ratelimit.DefaultLimit; i++ {
			d, _ := l.Allow(ctx, fmt.Sprintf("k-%d", i%2))
			So(d.Allowed, ShouldBeTrue)
		}
		d, _ := l.Allow(ctx, "k-0")
		So(d.Limit, ShouldEqual, ratelimit.DefaultLimit)
		So(d.Remaining, ShouldEqual, ratelimit.DefaultLimit-ratelimit.DefaultLimit/2-1)
	})
}
