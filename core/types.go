package core

//go:generate mockgen -destination ../mocks/mocks_core.go -package=mocks github.com/ismrmrd/dicomweb-gateway/core Uploader,WorklistClient,DeliveryJournal

import (
	"context"
	"errors"
	"time"

	"github.com/ismrmrd/dicomweb-gateway/dataset"
)

var (
	ErrInvalidID                = errors.New("invalid SOP instance UID")
	ErrWriteFailure             = errors.New("unable to write instance to staging area")
	ErrInvalidContinuationToken = errors.New("invalid continuation token")
	ErrRecordNotFound           = errors.New("record not found")
)

// SessionHandle identifies one inbound association. It is assigned by the
// protocol engine and is opaque to the gateway.
type SessionHandle string

type DeliveryOutcome string

const (
	DeliveryOutcomeSucceeded DeliveryOutcome = "succeeded"
	DeliveryOutcomeRejected  DeliveryOutcome = "rejected"
	DeliveryOutcomeFailed    DeliveryOutcome = "failed"
)

type Delivery struct {
	Id          string
	Directory   string
	Files       int
	Bytes       int64
	StatusCode  *int
	Error       *string
	Outcome     DeliveryOutcome
	StartedAt   time.Time
	CompletedAt time.Time
}

type DeliveryFilter struct {
	Outcome   *DeliveryOutcome
	Directory *string
}

type ContinutationToken string

func UnixTimeMsToTime(timeValueMs int64) time.Time {
	return time.Unix(timeValueMs/1000, (timeValueMs%1000)*1000000)
}

// Uploader takes ownership of a completed session directory. Implementations
// must not block the caller for the duration of the upload.
type Uploader interface {
	UploadDirectory(dir string)
}

type WorklistClient interface {
	ListWorkitems(ctx context.Context, query *dataset.Dataset) ([]*dataset.Dataset, error)
}

type DeliveryJournal interface {
	RecordDelivery(ctx context.Context, delivery *Delivery) error
	GetDelivery(ctx context.Context, id string) (*Delivery, error)
	SearchDeliveries(ctx context.Context, filter DeliveryFilter, ct *ContinutationToken, pageSize int) ([]Delivery, *ContinutationToken, error)
	HealthCheck(ctx context.Context) error
}
