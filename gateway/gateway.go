// Package gateway is the surface offered to the DICOM protocol engine. The
// engine owns associations and DIMSE framing; it calls into the gateway for
// C-ECHO, C-STORE and Modality Worklist C-FIND requests and reports when an
// association ends.
package gateway

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/ismrmrd/dicomweb-gateway/core"
	"github.com/ismrmrd/dicomweb-gateway/dataset"
	"github.com/ismrmrd/dicomweb-gateway/storage"
	"github.com/ismrmrd/dicomweb-gateway/worklist"
)

// Status is a DIMSE response status.
type Status uint16

const (
	StatusSuccess              Status = 0x0000
	StatusPending              Status = 0xFF00
	StatusProcessingFailure    Status = 0x0110
	StatusSOPClassNotSupported Status = 0x0122
	StatusUnableToProcess      Status = 0xC001
)

// InstanceStore is satisfied by *storage.StagingStore.
type InstanceStore interface {
	Store(ctx context.Context, req storage.StoreRequest, contents io.Reader) error
	EndSession(ctx context.Context, handle core.SessionHandle, err error)
}

type Options struct {
	// Store receives C-STORE requests. Nil disables storage.
	Store InstanceStore
	// Worklist answers C-FIND requests. Nil disables worklist queries.
	Worklist core.WorklistClient
}

type Gateway struct {
	store    InstanceStore
	worklist core.WorklistClient
}

func New(opts Options) *Gateway {
	return &Gateway{store: opts.Store, worklist: opts.Worklist}
}

func (g *Gateway) Echo(ctx context.Context) Status {
	return StatusSuccess
}

func (g *Gateway) Store(ctx context.Context, req storage.StoreRequest, contents io.Reader) Status {
	if g.store == nil {
		return StatusSOPClassNotSupported
	}

	if err := g.store.Store(ctx, req, contents); err != nil {
		if !errors.Is(err, core.ErrInvalidID) && !errors.Is(err, core.ErrWriteFailure) {
			log.Error().Err(err).Str("session", string(req.Session)).Msg("Unexpected store failure")
		}
		return StatusProcessingFailure
	}
	return StatusSuccess
}

// Find runs a worklist query. The returned cursor is fully populated; each
// result it yields is sent with StatusPending and the final response with
// StatusSuccess.
func (g *Gateway) Find(ctx context.Context, keys *dataset.Dataset) (*worklist.Cursor, Status) {
	if g.worklist == nil {
		return worklist.NewCursor(nil), StatusSOPClassNotSupported
	}

	results, err := g.worklist.ListWorkitems(ctx, keys)
	if err != nil {
		log.Error().Err(err).Msg("Worklist query failed")
		return worklist.NewCursor(nil), StatusUnableToProcess
	}
	return worklist.NewCursor(results), StatusSuccess
}

// SessionClosed reports the end of an association. A nil err means it was
// released normally.
func (g *Gateway) SessionClosed(ctx context.Context, handle core.SessionHandle, err error) {
	if g.store == nil {
		return
	}
	g.store.EndSession(ctx, handle, err)
}
