package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samirrijal/rateplan/internal/adapters/geojsonfile"
	natsadapter "github.com/samirrijal/rateplan/internal/adapters/nats"
	"github.com/samirrijal/rateplan/internal/adapters/proj"
	"github.com/samirrijal/rateplan/internal/adapters/shapefile"
	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/core/usecases"
	"github.com/samirrijal/rateplan/internal/pkg/config"
	"github.com/samirrijal/rateplan/internal/pkg/logging"
)

type rootOptions struct {
	inputCRS string
	output   string
	pretty   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "rateplan",
		Short:         "Convert rate plan and boundary files to WGS84 GeoJSON project files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.inputCRS, "input-crs", "", "EPSG code assumed when a file has no usable CRS (default from config)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "write the result to this file instead of stdout")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")

	root.AddCommand(
		newConvertCmd(opts),
		newBoundaryCmd(opts),
		newProjectCmd(opts),
		newEventsCmd(),
	)
	return root
}

func newConvertCmd(opts *rootOptions) *cobra.Command {
	var project bool
	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert a rate plan (shapefile with sidecars, zip or GeoJSON)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			uploads, err := readUploads(args)
			if err != nil {
				return err
			}
			if project {
				p, err := svc.ConvertPlanToProject(cmd.Context(), uploads, opts.inputCRS)
				if err != nil {
					return err
				}
				return writeResult(cmd, opts, p)
			}
			conv, err := svc.ConvertPlan(cmd.Context(), uploads, opts.inputCRS)
			if err != nil {
				return err
			}
			return writeResult(cmd, opts, conv)
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "emit a project file with a synthesized boundary")
	return cmd
}

func newBoundaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "boundary FILE...",
		Short: "Convert a field boundary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			uploads, err := readUploads(args)
			if err != nil {
				return err
			}
			conv, err := svc.ConvertBoundary(cmd.Context(), uploads, opts.inputCRS)
			if err != nil {
				return err
			}
			return writeResult(cmd, opts, conv)
		},
	}
}

func newProjectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "project PROJECT.json",
		Short: "Complete a project file, synthesizing a missing boundary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := domain.DecodeProjectFile(data)
			if err != nil {
				return err
			}
			out, err := svc.CreateProject(cmd.Context(), p)
			if err != nil {
				return err
			}
			return writeResult(cmd, opts, out)
		},
	}
}

func newEventsCmd() *cobra.Command {
	var (
		url     string
		durable string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow plan and project events published by the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg, err := config.Load("rateplan-cli")
				if err != nil {
					return err
				}
				url = cfg.NATS.URL
			}
			if url == "" {
				return fmt.Errorf("no NATS url: set --nats-url or RATEPLAN_NATS_URL")
			}

			sub, err := natsadapter.NewSubscriber(url)
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			err = sub.SubscribePlanConverted(ctx, durableName(durable, "plans"), func(ctx context.Context, ev *domain.PlanConvertedEvent) error {
				return enc.Encode(struct {
					Subject string `json:"subject"`
					*domain.PlanConvertedEvent
				}{natsadapter.SubjectPlanConverted, ev})
			})
			if err != nil {
				return err
			}
			err = sub.SubscribeProjectAssembled(ctx, durableName(durable, "projects"), func(ctx context.Context, ev *domain.ProjectAssembledEvent) error {
				return enc.Encode(struct {
					Subject string `json:"subject"`
					*domain.ProjectAssembledEvent
				}{natsadapter.SubjectProjectAssembled, ev})
			})
			if err != nil {
				return err
			}

			slog.Info("following events", "url", url)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "nats-url", "", "NATS server (default from config)")
	cmd.Flags().StringVar(&durable, "durable", "", "durable consumer name prefix")
	return cmd
}

// durableName gives each subscription its own consumer under prefix.
func durableName(prefix, stream string) string {
	if prefix == "" {
		return ""
	}
	return prefix + "-" + stream
}

// newService wires the pipeline without any broker; the CLI publishes nothing.
func newService() (*usecases.ProjectService, error) {
	cfg, err := config.Load("rateplan-cli")
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format))

	reader := usecases.NewSpatialReader(shapefile.NewReader(), geojsonfile.NewReader())
	normalizer := usecases.NewCRSNormalizer(proj.New())
	return usecases.NewProjectService(reader, normalizer, nil, cfg.Ingest.DefaultInputCRS), nil
}

// readUploads loads files from disk the way the API receives them: by base
// name and content.
func readUploads(paths []string) ([]domain.Upload, error) {
	uploads := make([]domain.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, domain.Upload{Name: filepath.Base(p), Data: data})
	}
	return uploads, nil
}

func writeResult(cmd *cobra.Command, opts *rootOptions, v any) error {
	var w io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
