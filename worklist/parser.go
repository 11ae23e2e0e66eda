package worklist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/ismrmrd/dicomweb-gateway/dataset"
)

const (
	MultipartRelated = "multipart/related"
	DicomXML         = "application/dicom+xml"
)

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMalformedPart        = errors.New("malformed multipart response")
)

// Parse reads a multipart/related UPS-RS response and returns one MWL-shaped
// dataset per part, in body order. A response with an empty body has no
// results. A single unparseable part fails the whole response.
func Parse(contentType string, body io.Reader) ([]*dataset.Dataset, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ErrUnsupportedMediaType, contentType, err)
	}
	if mediaType != MultipartRelated {
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedMediaType, contentType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: '%s' has no boundary", ErrUnsupportedMediaType, contentType)
	}

	buffered := bufio.NewReader(body)
	if _, err := buffered.Peek(1); err == io.EOF {
		return []*dataset.Dataset{}, nil
	}

	results := []*dataset.Dataset{}
	reader := multipart.NewReader(buffered, boundary)
	for index := 0; ; index++ {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %v", ErrMalformedPart, index, err)
		}

		ds, err := parsePart(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %v", ErrMalformedPart, index, err)
		}

		ToWorklistSchema(ds)
		results = append(results, ds)
	}

	return results, nil
}

func parsePart(part *multipart.Part) (*dataset.Dataset, error) {
	contentTypes := part.Header.Values("Content-Type")
	if len(contentTypes) != 1 {
		return nil, fmt.Errorf("expected exactly one Content-Type header, found %d", len(contentTypes))
	}
	if contentType := strings.TrimSpace(contentTypes[0]); contentType != DicomXML {
		return nil, fmt.Errorf("cannot handle Content-Type '%s'; only %s is supported", contentType, DicomXML)
	}

	return dataset.DecodeXML(part)
}

// ToWorklistSchema rewrites a UPS-RS workitem in place into the MWL schema:
// the contents of a single-item Referenced Request Sequence move to the top
// level, and the scheduled procedure step start date-time is split into a
// separate date and time.
func ToWorklistSchema(ds *dataset.Dataset) {
	if items, ok := ds.Sequence(dataset.TagReferencedRequestSequence); ok && len(items) == 1 && items[0] != nil {
		ds.Remove(dataset.TagReferencedRequestSequence)
		ds.AddAll(items[0])
	}

	if items, ok := ds.Sequence(dataset.TagScheduledProcedureStepSequence); ok && len(items) == 1 && items[0] != nil {
		splitStartDateTime(items[0])
	}
}

func splitStartDateTime(sps *dataset.Dataset) {
	dateTime, ok := sps.String(dataset.TagScheduledProcedureStepStartDateTime)
	if !ok || strings.TrimSpace(dateTime) == "" {
		return
	}

	var date, tm string
	switch n := len(dateTime); {
	case n == 4:
		date = dateTime + "0101"
	case n == 6:
		date = dateTime + "01"
	case n == 8:
		date = dateTime
	case n > 8:
		date = dateTime[:8]
		tm = dateTime[8:]
		// DA and TM carry no UTC offset
		if i := strings.IndexAny(tm, "&+-"); i >= 0 {
			tm = tm[:i]
		}
		if strings.TrimSpace(strings.Trim(tm, "0.")) == "" {
			tm = ""
		}
	default:
		// partial values such as YYYYM are not valid dates
		return
	}

	sps.Remove(dataset.TagScheduledProcedureStepStartDateTime)
	sps.Set(dataset.TagScheduledProcedureStepStartDate, dataset.VR_DA, date)
	if tm != "" {
		sps.Set(dataset.TagScheduledProcedureStepStartTime, dataset.VR_TM, tm)
	}
}
