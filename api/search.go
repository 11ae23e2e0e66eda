package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/ismrmrd/dicomweb-gateway/core"
)

const maxPageSize = 100

func (handler *Handler) SearchDeliveries(w http.ResponseWriter, r *http.Request) {

	filter, ct, pageSize, ok := getSearchParameters(w, r)
	if !ok {
		return
	}

	results, ct, err := handler.journal.SearchDeliveries(r.Context(), filter, ct, pageSize)

	if err != nil {
		if errors.Is(err, core.ErrInvalidContinuationToken) {
			writeJson(w, r, http.StatusBadRequest, CreateErrorResponse("InvalidContinuationToken", "The '_ct' parameter is invalid."))
			return
		}

		log.Error().Err(err).Msg("Failed to search deliveries")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	items := make([]DeliveryInfo, len(results))
	for i := range results {
		items[i] = CreateDeliveryInfo(r, &results[i])
	}

	searchResponse := SearchResponse{Items: items}

	if ct != nil {
		nextQuery := r.URL.Query()
		nextQuery.Set("_ct", string(*ct))

		url := getBaseUri(r)
		url.Path = r.URL.Path
		url.RawQuery = nextQuery.Encode()
		searchResponse.NextLink = url.String()
	}

	writeJson(w, r, http.StatusOK, searchResponse)
}

func getSearchParameters(w http.ResponseWriter, r *http.Request) (filter core.DeliveryFilter, ct *core.ContinutationToken, pageSize int, ok bool) {
	query := normalizeQueryMapToLowercaseKeys(r.URL.Query())

	if outcome, present, valid := singleValue(query, "outcome"); !valid {
		writeJson(w, r, http.StatusBadRequest, CreateErrorResponse("InvalidParameter", "The 'outcome' parameter was specified multiple times in the URL."))
		return
	} else if present {
		o := core.DeliveryOutcome(outcome)
		switch o {
		case core.DeliveryOutcomeSucceeded, core.DeliveryOutcomeRejected, core.DeliveryOutcomeFailed:
			filter.Outcome = &o
		default:
			writeJson(w, r, http.StatusBadRequest, CreateErrorResponse("InvalidParameter", "The 'outcome' parameter must be one of 'succeeded', 'rejected' or 'failed'."))
			return
		}
	}

	if directory, present, valid := singleValue(query, "directory"); !valid {
		writeJson(w, r, http.StatusBadRequest, CreateErrorResponse("InvalidParameter", "The 'directory' parameter was specified multiple times in the URL."))
		return
	} else if present {
		filter.Directory = &directory
	}

	pageSize = maxPageSize

	if limitStrings, hasLimit := query["_limit"]; hasLimit {
		pageSize, _ = strconv.Atoi(limitStrings[0])
		if pageSize > maxPageSize || pageSize <= 0 {
			pageSize = maxPageSize
		}
	}

	if cts, hasCt := query["_ct"]; hasCt {
		if len(cts) > 1 {
			writeJson(w, r, http.StatusBadRequest, CreateErrorResponse("InvalidContinuationToken", "The '_ct' parameter was specified multiple times in the URL."))
			return
		}

		ct = (*core.ContinutationToken)(&cts[0])
	}

	ok = true
	return
}

func singleValue(query url.Values, key string) (value string, present bool, valid bool) {
	values, present := query[key]
	if !present {
		return "", false, true
	}
	if len(values) != 1 {
		return "", true, false
	}
	return values[0], true, true
}
