// Package upload delivers staged session directories to a STOW-RS endpoint.
//
// Each directory is sent as a single multipart/related POST with one
// application/dicom part per staged file. File contents are streamed from
// disk into the request body, so the size of a delivery is not bounded by
// memory. Delivery is attempted once; failures are logged and recorded in
// the delivery journal but never retried.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/ismrmrd/dicomweb-gateway/core"
	"github.com/ismrmrd/dicomweb-gateway/storage"
	"github.com/ismrmrd/dicomweb-gateway/worker"
)

const (
	PartContentType = "application/dicom"
	AcceptType      = "application/dicom+xml"

	DefaultParallelism = 10
	DefaultQueueSize   = 1000
	DefaultReadTimeout = 10 * time.Minute

	maxLoggedResponseBytes = 64 * 1024
)

var (
	ErrDeliveryRejected = errors.New("upload rejected by server")
	ErrEmptyDirectory   = errors.New("no files to upload")
)

type Options struct {
	Parallelism int
	QueueSize   int
	Journal     core.DeliveryJournal
	Registerer  prometheus.Registerer
}

type Dispatcher struct {
	endpoint string
	client   *http.Client
	journal  core.DeliveryJournal
	pool     *worker.Pool[string]

	deliveries *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewHTTPClient returns a client whose transport waits up to readTimeout for
// the server to respond once the request body has been sent.
func NewHTTPClient(readTimeout time.Duration) *http.Client {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = readTimeout
	return &http.Client{Transport: transport}
}

func NewDispatcher(endpoint string, client *http.Client, opts Options) *Dispatcher {
	if client == nil {
		client = NewHTTPClient(DefaultReadTimeout)
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	factory := promauto.With(opts.Registerer)
	d := &Dispatcher{
		endpoint: endpoint,
		client:   client,
		journal:  opts.Journal,
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dicomweb_gateway_uploads_total",
			Help: "Upload attempts by outcome",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dicomweb_gateway_upload_duration_seconds",
			Help:    "Duration of upload attempts",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 600},
		}),
	}

	var poolOpts []worker.Option[string]
	if opts.Registerer != nil {
		poolOpts = append(poolOpts, worker.WithMetrics[string](opts.Registerer, "dicomweb_gateway_upload_pool"))
	}
	d.pool = worker.NewPool(opts.Parallelism, opts.QueueSize, d.process, poolOpts...)

	return d
}

func (d *Dispatcher) Start(ctx context.Context) error {
	return d.pool.Start(ctx)
}

// Stop waits up to timeout for queued and in-flight uploads.
func (d *Dispatcher) Stop(timeout time.Duration) error {
	return d.pool.Stop(timeout)
}

func (d *Dispatcher) Stats() worker.PoolStats {
	return d.pool.Stats()
}

// UploadDirectory schedules dir for delivery and returns immediately.
func (d *Dispatcher) UploadDirectory(dir string) {
	if err := d.pool.Submit(dir); err != nil {
		log.Error().Err(err).Str("directory", dir).Msg("Unable to schedule upload, staged instances remain on disk")
	}
}

func (d *Dispatcher) process(ctx context.Context, dir string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("directory", dir).Interface("panic", r).Msg("Upload task panicked")
			err = fmt.Errorf("upload of %s panicked: %v", dir, r)
		}
	}()

	_, err = d.Deliver(ctx, dir)
	return err
}

// Deliver performs one synchronous upload attempt of the regular files in dir.
func (d *Dispatcher) Deliver(ctx context.Context, dir string) (*core.Delivery, error) {
	logger := log.With().Str("directory", dir).Logger()

	delivery := &core.Delivery{
		Id:        uuid.NewString(),
		Directory: dir,
		StartedAt: time.Now().UTC(),
	}

	err := d.send(ctx, dir, delivery)

	delivery.CompletedAt = time.Now().UTC()
	switch {
	case err == nil:
		delivery.Outcome = core.DeliveryOutcomeSucceeded
		logger.Info().
			Int("files", delivery.Files).
			Int64("bytes", delivery.Bytes).
			Dur("elapsed", delivery.CompletedAt.Sub(delivery.StartedAt)).
			Msg("Upload succeeded")
	case errors.Is(err, ErrDeliveryRejected):
		delivery.Outcome = core.DeliveryOutcomeRejected
		logger.Error().Err(err).Msg("Upload rejected")
	default:
		delivery.Outcome = core.DeliveryOutcomeFailed
		logger.Error().Err(err).Msg("Upload failed")
	}
	if err != nil {
		message := err.Error()
		delivery.Error = &message
	}

	d.deliveries.WithLabelValues(string(delivery.Outcome)).Inc()
	d.duration.Observe(delivery.CompletedAt.Sub(delivery.StartedAt).Seconds())

	if d.journal != nil {
		if jerr := d.journal.RecordDelivery(ctx, delivery); jerr != nil {
			logger.Warn().Err(jerr).Msg("Failed to record delivery")
		}
	}

	return delivery, err
}

func (d *Dispatcher) send(ctx context.Context, dir string, delivery *core.Delivery) error {
	files, err := listFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrEmptyDirectory
	}
	delivery.Files = len(files)

	body, writer := io.Pipe()
	mw := multipart.NewWriter(writer)
	if err := mw.SetBoundary(uuid.NewString()); err != nil {
		return err
	}

	var written int64
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		writer.CloseWithError(writeParts(mw, files, &written))
	}()
	defer func() {
		body.Close()
		<-writeDone
		delivery.Bytes = atomic.LoadInt64(&written)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", fmt.Sprintf(`multipart/related; type="%s"; boundary=%s`, PartContentType, mw.Boundary()))
	req.Header.Set("Accept", AcceptType)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	delivery.StatusCode = &status

	responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedResponseBytes))
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrDeliveryRejected, status, strings.TrimSpace(string(responseBody)))
	}

	log.Debug().Str("directory", dir).Str("response", string(responseBody)).Msg("Upload response")
	return nil
}

// listFiles returns the regular files in dir in name order. Subdirectories
// and temp files of in-progress writes are skipped.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), storage.TempFileExtension) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func writeParts(mw *multipart.Writer, files []string, written *int64) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", PartContentType)

	for _, file := range files {
		part, err := mw.CreatePart(header)
		if err != nil {
			return err
		}
		if err := copyFile(part, file, written); err != nil {
			return err
		}
	}
	return mw.Close()
}

func copyFile(w io.Writer, file string, written *int64) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := io.Copy(w, f)
	atomic.AddInt64(written, n)
	return err
}
