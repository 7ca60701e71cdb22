package base

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ProgressReporter periodically logs how many records a stream has emitted
type ProgressReporter struct {
	logger *zap.Logger

	processedRecords int64
	skippedRecords   int64
	startTime        time.Time
	reportInterval   time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(logger *zap.Logger, interval time.Duration) *ProgressReporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &ProgressReporter{
		logger:         logger,
		startTime:      time.Now(),
		reportInterval: interval,
		stopCh:         make(chan struct{}),
	}
}

// Start begins periodic progress reporting
func (pr *ProgressReporter) Start() {
	pr.wg.Add(1)
	go func() {
		defer pr.wg.Done()
		ticker := time.NewTicker(pr.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pr.stopCh:
				return
			case <-ticker.C:
				pr.report("progress update")
			}
		}
	}()
}

// Stop stops periodic reporting and logs a final summary
func (pr *ProgressReporter) Stop() {
	pr.stopOnce.Do(func() {
		close(pr.stopCh)
		pr.wg.Wait()
		pr.report("stream completed")
	})
}

// IncrementProcessed increments the processed count
func (pr *ProgressReporter) IncrementProcessed(count int64) {
	atomic.AddInt64(&pr.processedRecords, count)
}

// IncrementSkipped increments the skipped count
func (pr *ProgressReporter) IncrementSkipped(count int64) {
	atomic.AddInt64(&pr.skippedRecords, count)
}

// GetProgress returns the processed and skipped counts
func (pr *ProgressReporter) GetProgress() (processed, skipped int64) {
	return atomic.LoadInt64(&pr.processedRecords), atomic.LoadInt64(&pr.skippedRecords)
}

// GetAverageThroughput returns records per second since start
func (pr *ProgressReporter) GetAverageThroughput() float64 {
	elapsed := time.Since(pr.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&pr.processedRecords)) / elapsed
}

func (pr *ProgressReporter) report(msg string) {
	processed, skipped := pr.GetProgress()
	pr.logger.Info(msg,
		zap.Int64("processed", processed),
		zap.Int64("skipped", skipped),
		zap.Float64("throughput", pr.GetAverageThroughput()),
		zap.Duration("elapsed", time.Since(pr.startTime)),
	)
}
