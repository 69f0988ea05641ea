package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline/exprengine"
)

func validateCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check an app config and compile its expressions without querying the source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), opts, os.Stdout)
		},
	}
}

func runValidate(ctx context.Context, opts *appOptions, out io.Writer) error {
	cfg, err := loadAppConfig(ctx, opts)
	if err != nil {
		return err
	}

	engine, err := exprengine.New()
	if err != nil {
		return err
	}

	specs := map[string]*timeline.ExpressionSpec{
		"title":       &cfg.Timeline.TitleExpression,
		"subtitle":    cfg.Timeline.SubtitleExpression,
		"description": cfg.Timeline.DescriptionExpression,
	}
	for _, role := range []string{"title", "subtitle", "description"} {
		spec := specs[role]
		if spec == nil {
			continue
		}

		if _, err := engine.Compile(*spec); err != nil {
			return fmt.Errorf("%s expression: %w", role, err)
		}
	}

	query, err := timeline.EventQuery(cfg.Timeline)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: ok\n", cfg.App.Title)
	fmt.Fprintf(out, "  source: %s\n", cfg.Source.Type)
	fmt.Fprintf(out, "  where:  %s\n", query.Where())
	return nil
}
