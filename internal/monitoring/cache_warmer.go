package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/usercache/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// CacheWarmer retries the cache-or-fetch flow on a cron schedule while the local
// store is empty, e.g. after the first fetch failed. A populated store is left alone.
type CacheWarmer struct {
	directory services.DirectoryServiceProvider
	schedule  cron.Schedule
	timeout   time.Duration
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCacheWarmer parses spec as a standard five-field cron expression.
func NewCacheWarmer(directory services.DirectoryServiceProvider, spec string, timeout time.Duration) (*CacheWarmer, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if schedule.Next(time.Now()).IsZero() {
		return nil, fmt.Errorf("cron expression %q never fires", spec)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheWarmer{
		directory: directory,
		schedule:  schedule,
		timeout:   timeout,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start launches the warmer in the background. It warms the cache once immediately
// and then at every scheduled time until Stop.
func (w *CacheWarmer) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()
}

func (w *CacheWarmer) run() {
	log.Info().Msg("Starting cache warmer...")
	w.warm()

	for {
		next := w.schedule.Next(w.now())
		if next.IsZero() {
			log.Warn().Msg("CacheWarmer: schedule has no next run, stopping")
			return
		}
		timer := time.NewTimer(next.Sub(w.now()))
		select {
		case <-w.ctx.Done():
			timer.Stop()
			log.Info().Msg("Stopping cache warmer.")
			return
		case <-timer.C:
			w.warm()
		}
	}
}

// Stop halts the warmer and cancels an in-flight fetch.
func (w *CacheWarmer) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *CacheWarmer) warm() {
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	if err := w.directory.WarmCache(ctx); err != nil {
		if w.ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("CacheWarmer: cache is still empty")
	}
}
