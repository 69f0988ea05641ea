package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/internal/config"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline/exprengine"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline/geojsonsource"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline/oteladapters"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline/pgsource"
)

type appOptions struct {
	registryPath   string
	appID          string
	configLocation string
	verbose        bool
	parallelism    int
}

// app is everything a command needs to build a timeline.
type app struct {
	cfg     *config.AppConfig
	source  timeline.Source
	builder *timeline.Builder
	logger  *oteladapters.SlogLogger
	close   func()
}

func newLogger(w io.Writer, verbose bool) *oteladapters.SlogLogger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return oteladapters.NewSlogLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadAppConfig(ctx context.Context, opts *appOptions) (*config.AppConfig, error) {
	if opts.configLocation != "" {
		if isURL(opts.configLocation) {
			return config.Fetch(ctx, http.DefaultClient, opts.configLocation)
		}

		return config.LoadAppConfig(opts.configLocation)
	}

	reg, err := config.LoadRegistry(opts.registryPath)
	if err != nil {
		return nil, err
	}

	item, err := reg.Resolve(opts.appID)
	if err != nil {
		return nil, err
	}

	return reg.LoadApp(ctx, http.DefaultClient, item)
}

func openApp(ctx context.Context, opts *appOptions, logOutput io.Writer) (*app, error) {
	logger := newLogger(logOutput, opts.verbose)

	cfg, err := loadAppConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	source, closeSource, err := openSource(ctx, cfg.Source, logger)
	if err != nil {
		return nil, err
	}

	engine, err := exprengine.New()
	if err != nil {
		closeSource()
		return nil, err
	}

	builderOptions := []timeline.BuilderOption{timeline.WithLogger(logger), timeline.WithSortVerification()}
	if opts.parallelism > 0 {
		builderOptions = append(builderOptions, timeline.WithParallelism(opts.parallelism))
	}

	builder, err := timeline.NewBuilder(engine, builderOptions...)
	if err != nil {
		closeSource()
		return nil, err
	}

	return &app{cfg: cfg, source: source, builder: builder, logger: logger, close: closeSource}, nil
}

func openSource(ctx context.Context, src config.SourceConfig, logger timeline.Logger) (timeline.Source, func(), error) {
	switch src.Type {
	case config.SourceTypeGeoJSON:
		options := []geojsonsource.Option{
			geojsonsource.WithObjectIDField(src.ObjectIDField),
			geojsonsource.WithLogger(logger),
		}

		var (
			source *geojsonsource.Source
			err    error
		)
		if src.URL != "" {
			source, err = geojsonsource.LoadURL(ctx, src.URL, options...)
		} else {
			source, err = geojsonsource.Load(src.Path, options...)
		}
		if err != nil {
			return nil, nil, err
		}

		return source, func() {}, nil

	case config.SourceTypePostgres:
		return openPostgresSource(ctx, src, logger)

	default:
		return nil, nil, fmt.Errorf("unsupported source type: %s", src.Type)
	}
}

func pgsourceOptions(src config.SourceConfig, logger timeline.Logger) []pgsource.Option {
	options := []pgsource.Option{
		pgsource.WithTableName(src.Table),
		pgsource.WithLogger(logger),
	}

	if src.GeometryColumn != "" {
		options = append(options, pgsource.WithGeometryColumn(src.GeometryColumn))
	}

	if src.ObjectIDField != "" {
		options = append(options, pgsource.WithObjectIDField(src.ObjectIDField))
	}

	if src.SRID > 0 {
		options = append(options, pgsource.WithSRID(src.SRID))
	}

	return options
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
