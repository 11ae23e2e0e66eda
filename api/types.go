package api

import (
	"net/http"
	"time"

	"github.com/ismrmrd/dicomweb-gateway/core"
)

type DeliveryInfo struct {
	Id          string `json:"id"`
	Location    string `json:"location"`
	Directory   string `json:"directory"`
	Outcome     string `json:"outcome"`
	Files       int    `json:"files"`
	Bytes       int64  `json:"bytes"`
	StatusCode  *int   `json:"statusCode,omitempty"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"startedAt"`
	CompletedAt string `json:"completedAt"`
}

type SearchResponse struct {
	Items    []DeliveryInfo `json:"items"`
	NextLink string         `json:"nextLink,omitempty"`
}

type RedeliveryResponse struct {
	Directory string `json:"directory"`
}

// Based on https://github.com/microsoft/api-guidelines/blob/vNext/Guidelines.md#7102-error-condition-responses
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func CreateErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorInfo{Code: code, Message: message}}
}

func CreateDeliveryInfo(r *http.Request, delivery *core.Delivery) DeliveryInfo {
	info := DeliveryInfo{
		Id:          delivery.Id,
		Location:    getDeliveryUri(r, delivery.Id),
		Directory:   delivery.Directory,
		Outcome:     string(delivery.Outcome),
		Files:       delivery.Files,
		Bytes:       delivery.Bytes,
		StatusCode:  delivery.StatusCode,
		StartedAt:   delivery.StartedAt.UTC().Format(time.RFC3339Nano),
		CompletedAt: delivery.CompletedAt.UTC().Format(time.RFC3339Nano),
	}

	if delivery.Error != nil {
		info.Error = *delivery.Error
	}

	return info
}
