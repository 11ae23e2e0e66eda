package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ismrmrd/dicomweb-gateway/core"
	"github.com/ismrmrd/dicomweb-gateway/database"
	"github.com/ismrmrd/dicomweb-gateway/upload"
	"github.com/ismrmrd/dicomweb-gateway/worklist"
)

const (
	ConfigPrefix                     = "DICOMWEB_GATEWAY"
	ConfigDatabaseProviderSqlite     = "sqlite"
	ConfigDatabaseProviderPostgresql = "postgresql"
)

var (
	ErrNoUpstream         = errors.New("at least one of the upload URI and the worklist URI must be configured")
	ErrInsecureUpstream   = errors.New("upstream URIs must use https, plain http is only allowed for 127.0.0.1")
	ErrInvalidUpstreamUri = errors.New("invalid upstream URI")
)

type ConfigSpec struct {
	DatabaseProvider         string        `split_words:"true" default:"sqlite"`
	DatabaseConnectionString string        `split_words:"true" default:"_data/deliveries.db"`
	StagingDirectory         string        `split_words:"true" default:"_data/staging"`
	UploadUri                string        `split_words:"true"`
	WorklistUri              string        `split_words:"true"`
	WorklistIncludefieldAll  bool          `split_words:"true" default:"false"`
	UploadParallelism        int           `split_words:"true" default:"10"`
	UploadQueueSize          int           `split_words:"true" default:"1000"`
	UploadReadTimeout        time.Duration `split_words:"true" default:"10m"`
	AdminPort                int           `split_words:"true" default:"3333"`
	LogRequests              bool          `split_words:"true" default:"true"`
}

func loadConfig() (ConfigSpec, error) {
	var config ConfigSpec
	if err := envconfig.Process(ConfigPrefix, &config); err != nil {
		return config, err
	}

	return config, config.Validate()
}

func (config ConfigSpec) Validate() error {
	if config.UploadUri == "" && config.WorklistUri == "" {
		return ErrNoUpstream
	}

	for _, uri := range []string{config.UploadUri, config.WorklistUri} {
		if uri == "" {
			continue
		}
		if err := validateUpstreamUri(uri); err != nil {
			return err
		}
	}

	return nil
}

func validateUpstreamUri(uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("%w: '%s'", ErrInvalidUpstreamUri, uri)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "https":
		return nil
	case "http":
		if parsed.Hostname() == "127.0.0.1" {
			return nil
		}
	}

	return fmt.Errorf("%w: '%s'", ErrInsecureUpstream, uri)
}

func createDeliveryJournal(config ConfigSpec) (core.DeliveryJournal, error) {
	switch strings.ToLower(config.DatabaseProvider) {
	case ConfigDatabaseProviderSqlite:
		return database.OpenSqliteDatabase(config.DatabaseConnectionString)
	case ConfigDatabaseProviderPostgresql:
		return database.ConnectPostgresqlDatabase(config.DatabaseConnectionString)
	}

	return nil, fmt.Errorf("unrecognized database provider '%s'", config.DatabaseProvider)
}

func createDispatcher(config ConfigSpec, journal core.DeliveryJournal, registerer prometheus.Registerer) *upload.Dispatcher {
	return upload.NewDispatcher(config.UploadUri, upload.NewHTTPClient(config.UploadReadTimeout), upload.Options{
		Parallelism: config.UploadParallelism,
		QueueSize:   config.UploadQueueSize,
		Journal:     journal,
		Registerer:  registerer,
	})
}

func createWorklistClient(config ConfigSpec) *worklist.UPSClient {
	return worklist.NewUPSClient(config.WorklistUri, nil, worklist.NewTranslator(config.WorklistIncludefieldAll))
}
