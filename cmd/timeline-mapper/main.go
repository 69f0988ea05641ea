package main

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &appOptions{}

	root := &cobra.Command{
		Use:          "timeline-mapper",
		Short:        "Turn geospatial features into a navigable timeline of events",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&opts.registryPath, "registry", "config/registry.yml", "Path to the app registry")
	flags.StringVar(&opts.appID, "app", "", "App id from the registry (default: first app by name)")
	flags.StringVar(&opts.configLocation, "config", "", "App config file or URL, bypasses the registry")
	flags.BoolVar(&opts.verbose, "verbose", false, "Log at debug level")
	flags.IntVar(&opts.parallelism, "parallelism", runtime.NumCPU(), "Features evaluated concurrently")

	root.AddCommand(eventsCmd(opts))
	root.AddCommand(browseCmd(opts))
	root.AddCommand(validateCmd(opts))

	return root
}
