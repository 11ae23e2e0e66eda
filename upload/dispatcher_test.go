package upload

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismrmrd/dicomweb-gateway/core"
	"github.com/ismrmrd/dicomweb-gateway/mocks"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

type receivedRequest struct {
	contentType string
	accept      string
	boundary    string
	partTypes   []string
	parts       []string
}

type fakeStowServer struct {
	mu       sync.Mutex
	status   int
	requests []receivedRequest
	received chan struct{}
}

func newFakeStowServer(t *testing.T, status int) (*fakeStowServer, *httptest.Server) {
	fake := &fakeStowServer{status: status, received: make(chan struct{}, 16)}

	r := chi.NewRouter()
	r.Post("/studies", func(w http.ResponseWriter, r *http.Request) {
		req := receivedRequest{contentType: r.Header.Get("Content-Type"), accept: r.Header.Get("Accept")}

		_, params, err := mime.ParseMediaType(req.contentType)
		if assert.Nil(t, err) {
			req.boundary = params["boundary"]
			reader := multipart.NewReader(r.Body, req.boundary)
			for {
				part, err := reader.NextPart()
				if err == io.EOF {
					break
				}
				require.Nil(t, err)
				data, err := io.ReadAll(part)
				require.Nil(t, err)
				req.partTypes = append(req.partTypes, part.Header.Get("Content-Type"))
				req.parts = append(req.parts, string(data))
			}
		}

		fake.mu.Lock()
		fake.requests = append(fake.requests, req)
		fake.mu.Unlock()

		w.Header().Set("Content-Type", "application/dicom+xml")
		w.WriteHeader(fake.status)
		io.WriteString(w, `<NativeDicomModel/>`)
		fake.received <- struct{}{}
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return fake, server
}

func stageDirectory(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, contents := range files {
		require.Nil(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
	}
	return dir
}

func TestDeliverStreamsEachFileAsPart(t *testing.T) {
	fake, server := newFakeStowServer(t, http.StatusOK)

	dir := stageDirectory(t, map[string]string{
		"1.2.3.dcm":         "first",
		"1.2.4.dcm":         "second",
		"1.2.5.dcm.123.tmp": "partial",
	})
	require.Nil(t, os.Mkdir(filepath.Join(dir, "nested"), os.ModePerm))

	mockCtrl := gomock.NewController(t)
	journal := mocks.NewMockDeliveryJournal(mockCtrl)
	journal.EXPECT().
		RecordDelivery(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d *core.Delivery) error {
			assert.Equal(t, core.DeliveryOutcomeSucceeded, d.Outcome)
			assert.Equal(t, dir, d.Directory)
			return nil
		})

	dispatcher := NewDispatcher(server.URL+"/studies", nil, Options{Journal: journal})
	delivery, err := dispatcher.Deliver(context.Background(), dir)
	require.Nil(t, err)

	assert.Equal(t, 2, delivery.Files)
	assert.Equal(t, int64(len("first")+len("second")), delivery.Bytes)
	require.NotNil(t, delivery.StatusCode)
	assert.Equal(t, http.StatusOK, *delivery.StatusCode)
	assert.Nil(t, delivery.Error)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	mediaType, params, err := mime.ParseMediaType(req.contentType)
	require.Nil(t, err)
	assert.Equal(t, "multipart/related", mediaType)
	assert.Equal(t, "application/dicom", params["type"])
	assert.Equal(t, "application/dicom+xml", req.accept)
	assert.Equal(t, []string{"application/dicom", "application/dicom"}, req.partTypes)
	assert.Equal(t, []string{"first", "second"}, req.parts)
}

func TestEachRequestUsesFreshBoundary(t *testing.T) {
	fake, server := newFakeStowServer(t, http.StatusOK)
	dir := stageDirectory(t, map[string]string{"1.2.3.dcm": "x"})

	dispatcher := NewDispatcher(server.URL+"/studies", nil, Options{})
	_, err := dispatcher.Deliver(context.Background(), dir)
	require.Nil(t, err)
	_, err = dispatcher.Deliver(context.Background(), dir)
	require.Nil(t, err)

	require.Len(t, fake.requests, 2)
	assert.NotEmpty(t, fake.requests[0].boundary)
	assert.NotEqual(t, fake.requests[0].boundary, fake.requests[1].boundary)
}

func TestRejectedDeliveryIsNotRetried(t *testing.T) {
	fake, server := newFakeStowServer(t, http.StatusConflict)
	dir := stageDirectory(t, map[string]string{"1.2.3.dcm": "x"})

	registry := prometheus.NewRegistry()
	dispatcher := NewDispatcher(server.URL+"/studies", nil, Options{Registerer: registry})
	delivery, err := dispatcher.Deliver(context.Background(), dir)

	assert.ErrorIs(t, err, ErrDeliveryRejected)
	assert.Equal(t, core.DeliveryOutcomeRejected, delivery.Outcome)
	require.NotNil(t, delivery.Error)
	assert.Contains(t, *delivery.Error, "409")
	assert.Len(t, fake.requests, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(dispatcher.deliveries.WithLabelValues("rejected")))

	// staged files are left untouched
	_, err = os.Stat(filepath.Join(dir, "1.2.3.dcm"))
	assert.Nil(t, err)
}

func TestTransportFailureIsRecorded(t *testing.T) {
	dir := stageDirectory(t, map[string]string{"1.2.3.dcm": "x"})

	mockCtrl := gomock.NewController(t)
	journal := mocks.NewMockDeliveryJournal(mockCtrl)
	journal.EXPECT().RecordDelivery(gomock.Any(), gomock.Any()).Return(nil)

	dispatcher := NewDispatcher("http://127.0.0.1:1/studies", nil, Options{Journal: journal})
	delivery, err := dispatcher.Deliver(context.Background(), dir)

	assert.NotNil(t, err)
	assert.Equal(t, core.DeliveryOutcomeFailed, delivery.Outcome)
	assert.Nil(t, delivery.StatusCode)
}

func TestEmptyDirectoryIsNotSent(t *testing.T) {
	fake, server := newFakeStowServer(t, http.StatusOK)

	dispatcher := NewDispatcher(server.URL+"/studies", nil, Options{})
	_, err := dispatcher.Deliver(context.Background(), t.TempDir())

	assert.ErrorIs(t, err, ErrEmptyDirectory)
	assert.Empty(t, fake.requests)
}

func TestUploadDirectoryRunsInBackground(t *testing.T) {
	fake, server := newFakeStowServer(t, http.StatusOK)

	dispatcher := NewDispatcher(server.URL+"/studies", nil, Options{Parallelism: 2})
	require.Nil(t, dispatcher.Start(context.Background()))

	dirs := []string{
		stageDirectory(t, map[string]string{"1.2.3.dcm": "a"}),
		stageDirectory(t, map[string]string{"1.2.4.dcm": "b"}),
		stageDirectory(t, map[string]string{"1.2.5.dcm": "c"}),
	}
	for _, dir := range dirs {
		dispatcher.UploadDirectory(dir)
	}

	for range dirs {
		select {
		case <-fake.received:
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for uploads")
		}
	}

	require.Nil(t, dispatcher.Stop(10*time.Second))
	assert.Equal(t, int64(3), dispatcher.Stats().Processed)
	assert.Equal(t, int64(0), dispatcher.Stats().Failed)
}

func TestUploadDirectoryBeforeStartDoesNotBlock(t *testing.T) {
	dispatcher := NewDispatcher("http://127.0.0.1:1/studies", nil, Options{})
	dispatcher.UploadDirectory(t.TempDir())
	assert.Equal(t, int64(0), dispatcher.Stats().Submitted)
}
