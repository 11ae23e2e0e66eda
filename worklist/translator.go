// Package worklist translates Modality Worklist (MWL) C-FIND queries into
// UPS-RS SearchForWorkitems requests and converts the UPS-RS responses back
// into MWL-shaped datasets.
package worklist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ismrmrd/dicomweb-gateway/dataset"
)

var ErrMalformedQuery = errors.New("malformed worklist query")

var (
	startDatePath     = dataset.TagPath(dataset.TagScheduledProcedureStepSequence, dataset.TagScheduledProcedureStepStartDate)
	startTimePath     = dataset.TagPath(dataset.TagScheduledProcedureStepSequence, dataset.TagScheduledProcedureStepStartTime)
	startDateTimePath = dataset.TagPath(dataset.TagScheduledProcedureStepSequence, dataset.TagScheduledProcedureStepStartDateTime)

	// Attributes that MWL carries at the top level but UPS-RS nests in the
	// Referenced Request Sequence.
	referencedRequestTags = []dataset.Tag{
		dataset.TagStudyInstanceUID,
		dataset.TagRequestingPhysician,
		dataset.TagReferringPhysicianName,
		dataset.TagRequestedProcedureDescription,
		dataset.TagRequestedProcedureID,
		dataset.TagAccessionNumber,
	}
)

// field is one flattened query attribute. An unconstrained field asks for
// the attribute to be returned without matching on it.
type field struct {
	path          string
	value         string
	unconstrained bool
}

type Translator struct {
	// IncludeAllFields replaces the per-attribute includefield parameters
	// with a single includefield=all.
	IncludeAllFields bool
}

func NewTranslator(includeAllFields bool) *Translator {
	return &Translator{IncludeAllFields: includeAllFields}
}

// Translate converts an MWL query dataset into UPS-RS query parameters.
func (t *Translator) Translate(query *dataset.Dataset) (Params, error) {
	flattened, err := flatten(query, "")
	if err != nil {
		return nil, err
	}

	fields := make(map[string]field, len(flattened))
	order := make([]string, 0, len(flattened))
	for _, f := range flattened {
		if _, ok := fields[f.path]; !ok {
			order = append(order, f.path)
		}
		fields[f.path] = f
	}

	mergeStartDateTime(fields, &order)
	for _, tag := range referencedRequestTags {
		reparent(fields, &order, tag.Hex(), dataset.TagPath(dataset.TagReferencedRequestSequence, tag))
	}

	params := Params{}
	for _, path := range order {
		f, ok := fields[path]
		if !ok {
			continue
		}
		if f.unconstrained {
			if !t.IncludeAllFields {
				params.Add(IncludeField, f.path)
			}
			continue
		}
		params.Add(f.path, f.value)
	}
	if t.IncludeAllFields {
		params.Add(IncludeField, IncludeFieldAll)
	}

	return params, nil
}

// flatten walks ds depth first, returning one field per leaf element and per
// empty sequence. Non-empty sequences contribute only their items' fields.
func flatten(ds *dataset.Dataset, prefix string) ([]field, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: nil dataset at '%s'", ErrMalformedQuery, prefix)
	}

	var fields []field
	for _, e := range ds.Elements() {
		path := e.Tag.Hex()
		if prefix != "" {
			path = prefix + "." + path
		}

		if e.IsSequence() {
			if len(e.Values) > 0 {
				return nil, fmt.Errorf("%w: sequence %s carries values", ErrMalformedQuery, path)
			}
			if len(e.Items) == 0 {
				fields = append(fields, field{path: path, unconstrained: true})
				continue
			}
			for _, item := range e.Items {
				nested, err := flatten(item, path)
				if err != nil {
					return nil, err
				}
				fields = append(fields, nested...)
			}
			continue
		}

		if len(e.Items) > 0 {
			return nil, fmt.Errorf("%w: element %s with VR %s carries items", ErrMalformedQuery, path, e.VR)
		}
		if e.IsBlank() {
			fields = append(fields, field{path: path, unconstrained: true})
		} else {
			fields = append(fields, field{path: path, value: e.String()})
		}
	}
	return fields, nil
}

// mergeStartDateTime replaces the scheduled procedure step start date and
// time with the combined start date-time used by UPS-RS.
func mergeStartDateTime(fields map[string]field, order *[]string) {
	date, ok := fields[startDatePath]
	if !ok {
		return
	}
	delete(fields, startDatePath)
	tm, hasTime := fields[startTimePath]
	delete(fields, startTimePath)

	merged := field{path: startDateTimePath}
	if date.unconstrained {
		// a time without a date cannot be matched on
		merged.unconstrained = true
	} else {
		merged.value = date.value
		if hasTime {
			merged.value = combineDateTime(date.value, tm.value)
		}
	}

	put(fields, order, merged)
}

func combineDateTime(date, tm string) string {
	dateStart, dateEnd, dateRanged := strings.Cut(date, "-")
	timeStart, timeEnd, timeRanged := strings.Cut(tm, "-")

	switch {
	case dateRanged && timeRanged:
		return dateStart + timeStart + "-" + dateEnd + timeEnd
	case dateRanged:
		return dateStart + tm + "-" + dateEnd + tm
	case timeRanged:
		return date + timeStart + "-" + date + timeEnd
	default:
		return date + tm
	}
}

func reparent(fields map[string]field, order *[]string, from, to string) {
	f, ok := fields[from]
	if !ok {
		return
	}
	delete(fields, from)
	f.path = to
	put(fields, order, f)
}

func put(fields map[string]field, order *[]string, f field) {
	if _, ok := fields[f.path]; !ok {
		*order = append(*order, f.path)
	}
	fields[f.path] = f
}
