// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartEvictionScheduler runs the rate-limiter window sweep once a minute so
// expired windows don't pile up in memory.
func StartEvictionScheduler(limiter *RateLimiter) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			evicted := limiter.Evict(time.Now())
			if evicted > 0 {
				log.Printf("[Scheduler] Evicted %d expired rate-limit window(s), %d live", evicted, limiter.Size())
			}
		}),
	)
}
