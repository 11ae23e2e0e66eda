// Package worker provides a bounded pool of goroutines processing submitted
// work items. Submission never blocks: when the queue is full the item is
// rejected with ErrQueueFull.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pool processes work items of type T with a fixed number of workers
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error

	workChan chan T
	metrics  *Metrics
	wg       *sync.WaitGroup
	done     chan struct{}

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	submitted int64
	processed int64
	failed    int64
	dropped   int64

	registerer    prometheus.Registerer
	metricsPrefix string
}

// Metrics holds Prometheus metrics for worker pool monitoring
type Metrics struct {
	queueDepth     prometheus.Gauge
	utilization    prometheus.Gauge
	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	processingTime *prometheus.HistogramVec
}

type Option[T any] func(*Pool[T])

// WithMetrics registers the pool metrics with the given registerer, each
// name prefixed with prefix.
func WithMetrics[T any](registerer prometheus.Registerer, prefix string) Option[T] {
	return func(p *Pool[T]) {
		p.registerer = registerer
		p.metricsPrefix = prefix
	}
}

// NewPool creates a pool. Non-positive workers or queueSize fall back to 10
// and 1000.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = 10
	}
	if queueSize <= 0 {
		queueSize = 1000
	}
	if processor == nil {
		panic(ErrNilProcessor)
	}

	pool := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		workChan:  make(chan T, queueSize),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(pool)
	}

	if pool.registerer != nil && pool.metricsPrefix != "" {
		pool.initializeMetrics()
	}

	return pool
}

func (p *Pool[T]) initializeMetrics() {
	prefix := p.metricsPrefix

	p.metrics = &Metrics{
		queueDepth: register(p.registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_queue_depth",
			Help: "Current worker pool queue depth",
		})),
		utilization: register(p.registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_utilization",
			Help: "Worker pool utilization (0-1)",
		})),
		submitted: register(p.registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_submitted_total",
			Help: "Total work items submitted",
		})),
		processed: register(p.registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_processed_total",
			Help: "Total work items processed",
		})),
		failed: register(p.registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_failed_total",
			Help: "Total work items that failed processing",
		})),
		dropped: register(p.registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_dropped_total",
			Help: "Total work items dropped due to full queue",
		})),
		processingTime: register(p.registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_processing_duration_seconds",
			Help:    "Time spent processing work items",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 600},
		}, []string{"status"})),
	}
}

// register registers c, or returns the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) C {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(fmt.Sprintf("unable to register metric: %v", err))
	}
	return c
}

// Submit queues work without blocking. Returns ErrQueueFull if the queue is
// at capacity.
func (p *Pool[T]) Submit(work T) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.workChan <- work:
		atomic.AddInt64(&p.submitted, 1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.workChan)))
		}
		return nil
	default:
		atomic.AddInt64(&p.dropped, 1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	p.wg = &sync.WaitGroup{}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	if p.metrics != nil {
		go p.metricsUpdater(ctx)
	}

	p.started = true
	return nil
}

// Stop closes the queue and waits up to timeout for queued and in-flight
// work to finish.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started || p.stopped {
		return nil
	}

	p.stopped = true
	close(p.workChan)
	close(p.done)

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-finished:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.workChan),
		Submitted:  atomic.LoadInt64(&p.submitted),
		Processed:  atomic.LoadInt64(&p.processed),
		Failed:     atomic.LoadInt64(&p.failed),
		Dropped:    atomic.LoadInt64(&p.dropped),
	}
}

type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queueSize"`
	QueueDepth int   `json:"queueDepth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-p.workChan:
			if !ok {
				return
			}

			start := time.Now()
			err := p.process(ctx, work)
			duration := time.Since(start)

			atomic.AddInt64(&p.processed, 1)
			if err != nil {
				atomic.AddInt64(&p.failed, 1)
			}

			if p.metrics != nil {
				p.metrics.processed.Inc()
				status := "success"
				if err != nil {
					p.metrics.failed.Inc()
					status = "error"
				}
				p.metrics.processingTime.WithLabelValues(status).Observe(duration.Seconds())
			}
		}
	}
}

// process runs the processor, converting a panic into an error so that a
// single item cannot take down its worker.
func (p *Pool[T]) process(ctx context.Context, work T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing work item: %v", r)
		}
	}()
	return p.processor(ctx, work)
}

func (p *Pool[T]) metricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			queueDepth := float64(len(p.workChan))
			p.metrics.queueDepth.Set(queueDepth)
			p.metrics.utilization.Set(queueDepth / float64(p.queueSize))
		}
	}
}
