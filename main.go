package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ismrmrd/dicomweb-gateway/api"
	"github.com/ismrmrd/dicomweb-gateway/dataset"
	"github.com/ismrmrd/dicomweb-gateway/storage"
)

const shutdownTimeout = 30 * time.Second

type AdminCmd struct{}

type UploadCmd struct {
	Directories []string `arg:"" help:"Staged session directories to deliver."`
}

type WorklistCmd struct {
	Query string `arg:"" type:"existingfile" help:"Native DICOM XML query dataset."`
}

var cli struct {
	Admin    AdminCmd    `cmd:"" help:"Run the upload dispatcher and serve the admin API."`
	Upload   UploadCmd   `cmd:"" help:"Deliver staged session directories and wait for the results."`
	Worklist WorklistCmd `cmd:"" help:"Run a worklist query and print the results as Native DICOM XML."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("dicomweb-gateway"),
		kong.Description("Forwards DICOM instances and worklist queries to DICOMweb services."),
		kong.UsageOnError())

	config, err := loadConfig()
	ctx.FatalIfErrorf(err)

	ctx.FatalIfErrorf(ctx.Run(config))
}

func (cmd *AdminCmd) Run(config ConfigSpec) error {
	if config.UploadUri == "" {
		return errors.New("the admin command requires an upload URI")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal, err := createDeliveryJournal(config)
	if err != nil {
		return fmt.Errorf("unable to initialize delivery journal: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dispatcher := createDispatcher(config, journal, registry)

	staging, err := storage.NewStagingStore(config.StagingDirectory, dispatcher)
	if err != nil {
		return fmt.Errorf("unable to initialize staging directory: %w", err)
	}

	if err := dispatcher.Start(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.AdminPort),
		Handler: api.BuildRouter(journal, staging, dispatcher, registry, config.LogRequests),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("Serving admin API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	if stopErr := dispatcher.Stop(shutdownTimeout); stopErr != nil {
		log.Error().Err(stopErr).Msg("Upload dispatcher did not stop cleanly")
	}

	return err
}

func (cmd *UploadCmd) Run(config ConfigSpec) error {
	if config.UploadUri == "" {
		return errors.New("the upload command requires an upload URI")
	}

	journal, err := createDeliveryJournal(config)
	if err != nil {
		return fmt.Errorf("unable to initialize delivery journal: %w", err)
	}

	dispatcher := createDispatcher(config, journal, nil)

	failed := 0
	for _, dir := range cmd.Directories {
		delivery, err := dispatcher.Deliver(context.Background(), dir)
		if err != nil {
			failed++
			log.Error().Err(err).Str("directory", dir).Msg("Delivery failed")
			continue
		}
		log.Info().Str("directory", dir).Int("files", delivery.Files).Int64("bytes", delivery.Bytes).Msg("Delivered")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d deliveries failed", failed, len(cmd.Directories))
	}

	return nil
}

func (cmd *WorklistCmd) Run(config ConfigSpec) error {
	if config.WorklistUri == "" {
		return errors.New("the worklist command requires a worklist URI")
	}

	f, err := os.Open(cmd.Query)
	if err != nil {
		return err
	}
	defer f.Close()

	query, err := dataset.DecodeXML(f)
	if err != nil {
		return fmt.Errorf("unable to read query: %w", err)
	}

	results, err := createWorklistClient(config).ListWorkitems(context.Background(), query)
	if err != nil {
		return err
	}

	for _, result := range results {
		if err := dataset.EncodeXML(os.Stdout, result); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout)
	}

	log.Info().Int("results", len(results)).Msg("Worklist query completed")
	return nil
}
