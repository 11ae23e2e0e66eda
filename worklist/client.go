package worklist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ismrmrd/dicomweb-gateway/dataset"
)

const (
	ResponseAcceptType = `multipart/related; type="application/dicom+xml"`

	maxLoggedResponseBytes = 64 * 1024
)

// UPSClient runs worklist queries against a UPS-RS SearchForWorkitems
// endpoint.
type UPSClient struct {
	endpoint   string
	client     *http.Client
	translator *Translator
}

func NewUPSClient(endpoint string, client *http.Client, translator *Translator) *UPSClient {
	if client == nil {
		client = http.DefaultClient
	}
	if translator == nil {
		translator = NewTranslator(false)
	}
	return &UPSClient{endpoint: endpoint, client: client, translator: translator}
}

// ListWorkitems translates query, runs it and returns the matching workitems
// in the MWL schema. Queries that cannot be translated or sent, and responses
// with an unexpected status, yield no results. Only a response that cannot be
// parsed is reported as an error.
func (c *UPSClient) ListWorkitems(ctx context.Context, query *dataset.Dataset) ([]*dataset.Dataset, error) {
	params, err := c.translator.Translate(query)
	if err != nil {
		log.Error().Err(err).Msg("Unable to translate worklist query")
		return []*dataset.Dataset{}, nil
	}

	queryURL, err := c.queryURL(params)
	if err != nil {
		log.Error().Err(err).Str("endpoint", c.endpoint).Msg("Invalid worklist endpoint")
		return []*dataset.Dataset{}, nil
	}

	logger := log.With().Str("url", queryURL).Logger()
	logger.Info().Msg("Performing worklist query")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Unable to build worklist request")
		return []*dataset.Dataset{}, nil
	}
	req.Header.Set("Accept", ResponseAcceptType)

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error().Err(err).Msg("Worklist query failed")
		return []*dataset.Dataset{}, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return []*dataset.Dataset{}, nil
	case http.StatusOK:
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedResponseBytes))
		logger.Error().
			Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(body))).
			Msg("Worklist query returned an error status")
		return []*dataset.Dataset{}, nil
	}

	results, err := Parse(resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Unable to parse worklist response")
		return nil, fmt.Errorf("unable to parse worklist response: %w", err)
	}

	logger.Info().Int("results", len(results)).Msg("Worklist query completed")
	return results, nil
}

func (c *UPSClient) queryURL(params Params) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	if encoded := params.Encode(); encoded != "" {
		if u.RawQuery != "" {
			u.RawQuery += "&" + encoded
		} else {
			u.RawQuery = encoded
		}
	}
	return u.String(), nil
}
