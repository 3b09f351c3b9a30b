package janitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"inbox-digest-go/internal/cache"
)

// Janitor periodically sweeps expired entries out of the summary cache.
// Expired entries are already misses on access; the sweep just frees the
// memory they hold between accesses.
type Janitor struct {
	cron            *cron.Cron
	intervalMinutes int
	cache           *cache.SummaryCache
	wg              sync.WaitGroup
	isRunning       bool
	mu              sync.RWMutex
}

// NewJanitor creates a new cache janitor
func NewJanitor(intervalMinutes int, summaries *cache.SummaryCache) *Janitor {
	return &Janitor{
		intervalMinutes: intervalMinutes,
		cache:           summaries,
	}
}

// Start starts the janitor
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isRunning {
		return fmt.Errorf("janitor is already running")
	}

	j.cron = cron.New(cron.WithSeconds())
	schedule := fmt.Sprintf("0 */%d * * * *", j.intervalMinutes)
	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	j.cron.Start()
	j.isRunning = true

	logrus.Infof("Cache janitor started with interval: %d minutes", j.intervalMinutes)
	return nil
}

// Stop stops the janitor
func (j *Janitor) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.isRunning {
		return nil
	}

	ctx := j.cron.Stop()
	select {
	case <-ctx.Done():
		logrus.Info("Cache janitor stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Cache janitor stop timeout, forcing shutdown")
	}

	j.isRunning = false
	return nil
}

// IsRunning returns whether the janitor is running
func (j *Janitor) IsRunning() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.isRunning
}

// Wait waits for any in-flight sweep to finish
func (j *Janitor) Wait() {
	j.wg.Wait()
}

// sweep drops expired cache entries
func (j *Janitor) sweep() {
	j.wg.Add(1)
	defer j.wg.Done()

	removed := j.cache.Sweep()
	if removed > 0 {
		logrus.Infof("Cache sweep removed %d expired entries", removed)
	} else {
		logrus.Debug("Cache sweep found no expired entries")
	}
}
