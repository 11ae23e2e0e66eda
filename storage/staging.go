package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ismrmrd/dicomweb-gateway/core"
	"github.com/ismrmrd/dicomweb-gateway/dataset"
)

const (
	InstanceFileExtension = ".dcm"
	TempFileExtension     = ".tmp"
)

type StoreRequest struct {
	Session           core.SessionHandle
	SOPClassUID       string
	SOPInstanceUID    string
	TransferSyntaxUID string
	CallingAETitle    string
}

type session struct {
	once sync.Once
	dir  string
	err  error
}

// StagingStore writes received instances to one directory per session and
// hands the directory to an uploader when the session ends cleanly.
type StagingStore struct {
	rootDir  string
	uploader core.Uploader

	mu       sync.Mutex
	sessions map[core.SessionHandle]*session
}

func NewStagingStore(rootDir string, uploader core.Uploader) (*StagingStore, error) {
	if err := os.MkdirAll(rootDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("unable to create directory: %v", err)
	}

	return &StagingStore{
		rootDir:  rootDir,
		uploader: uploader,
		sessions: make(map[core.SessionHandle]*session),
	}, nil
}

func (s *StagingStore) RootDir() string {
	return s.rootDir
}

// Store persists one instance. The file is only visible under its final
// name once it has been completely written.
func (s *StagingStore) Store(ctx context.Context, req StoreRequest, contents io.Reader) error {
	logger := log.With().
		Str("session", string(req.Session)).
		Str("sop_instance_uid", req.SOPInstanceUID).
		Logger()

	if !dataset.ValidUID(req.SOPInstanceUID) {
		logger.Warn().Msg("Rejecting instance with invalid SOP instance UID")
		return core.ErrInvalidID
	}

	dir, err := s.sessionDirectory(req.Session)
	if err != nil {
		logger.Error().Err(err).Msg("Unable to create session directory")
		return fmt.Errorf("%w: %v", core.ErrWriteFailure, err)
	}

	if err := s.writeInstance(dir, req, contents); err != nil {
		logger.Error().Err(err).Str("directory", dir).Msg("Failed to store instance")
		return fmt.Errorf("%w: %v", core.ErrWriteFailure, err)
	}

	logger.Debug().Str("directory", dir).Msg("Stored instance")
	return nil
}

// sessionDirectory returns the staging directory of the session, creating it
// on first use. Concurrent first writes for the same session share a single
// creation attempt.
func (s *StagingStore) sessionDirectory(handle core.SessionHandle) (string, error) {
	s.mu.Lock()
	sess, ok := s.sessions[handle]
	if !ok {
		sess = &session{}
		s.sessions[handle] = sess
	}
	s.mu.Unlock()

	sess.once.Do(func() {
		dir := filepath.Join(s.rootDir, uuid.NewString())
		// Mkdir fails if the name already exists
		if err := os.Mkdir(dir, os.ModePerm); err != nil {
			sess.err = err
			return
		}
		sess.dir = dir
	})

	return sess.dir, sess.err
}

func (s *StagingStore) writeInstance(dir string, req StoreRequest, contents io.Reader) (err error) {
	f, err := os.CreateTemp(dir, req.SOPInstanceUID+".*"+TempFileExtension)
	if err != nil {
		return err
	}

	tempName := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tempName)
		}
	}()

	writer := bufio.NewWriter(f)
	meta := dataset.FileMeta{
		MediaStorageSOPClassUID:      req.SOPClassUID,
		MediaStorageSOPInstanceUID:   req.SOPInstanceUID,
		TransferSyntaxUID:            req.TransferSyntaxUID,
		SourceApplicationEntityTitle: req.CallingAETitle,
	}
	if err = dataset.WriteFileMeta(writer, meta); err != nil {
		return err
	}
	if _, err = io.Copy(writer, contents); err != nil {
		return err
	}
	if err = writer.Flush(); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	return os.Rename(tempName, filepath.Join(dir, req.SOPInstanceUID+InstanceFileExtension))
}

// EndSession finishes a session. A nil err means the association was
// released normally, in which case the staging directory (if any) is handed
// to the uploader. Otherwise the directory is left in place.
func (s *StagingStore) EndSession(ctx context.Context, handle core.SessionHandle, err error) {
	s.mu.Lock()
	sess, ok := s.sessions[handle]
	delete(s.sessions, handle)
	s.mu.Unlock()

	logger := log.With().Str("session", string(handle)).Logger()

	if err != nil {
		event := logger.Warn().Err(err)
		if ok && sess.dir != "" {
			event = event.Str("directory", sess.dir)
		}
		event.Msg("Session ended abnormally, staged instances will not be uploaded")
		return
	}

	if !ok || sess.dir == "" {
		logger.Debug().Msg("Session ended without staged instances")
		return
	}

	logger.Info().Str("directory", sess.dir).Msg("Session ended, scheduling upload")
	s.uploader.UploadDirectory(sess.dir)
}

// HealthCheck verifies the staging root is still a writable directory.
func (s *StagingStore) HealthCheck(ctx context.Context) error {
	f, err := os.CreateTemp(s.rootDir, ".healthcheck.*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
