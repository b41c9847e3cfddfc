package workers

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"coduel/services"
)

// Sweeper runs the periodic maintenance jobs: evicting abandoned queue
// entries and force-ending matches whose players disappeared.
type Sweeper struct {
	store services.Store
	cfg   services.Config
	sched gocron.Scheduler
}

func NewSweeper(store services.Store, cfg services.Config) *Sweeper {
	return &Sweeper{store: store, cfg: cfg}
}

func (w *Sweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	w.sched = sched

	// Every 30s: drop queue entries whose owner stopped polling.
	_, err = sched.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-w.cfg.QueueStaleTTL)
			n, err := w.store.DeleteStaleQueueEntries(cutoff)
			if err != nil {
				log.Printf("⚠️ Sweeper: queue eviction failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("🧹 Evicted %d stale queue entries", n)
			}
		}),
	)
	if err != nil {
		return err
	}

	// Every minute: forfeit matches that never finished. Covers process
	// restarts where the in-memory battle was lost.
	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-w.cfg.AbandonedTimeout)
			n, err := w.store.ForfeitOpenMatches(cutoff)
			if err != nil {
				log.Printf("⚠️ Sweeper: abandoned match cleanup failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("🧹 Forfeited %d abandoned matches", n)
			}
		}),
	)
	if err != nil {
		return err
	}

	sched.Start()
	log.Println("🕓 Background sweeper started")
	return nil
}

func (w *Sweeper) Stop() {
	if w.sched != nil {
		_ = w.sched.Shutdown()
	}
}
