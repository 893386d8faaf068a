// Command ec2-reservation-check runs one EC2 reservation reconciliation
// check invocation, emitting gauge metrics for running on-demand-eligible
// instances, reserved-capacity contracts, residual on-demand usage, and
// unused reservation capacity.
//
// Use regular AWS SDK variables to set authentication and region:
// AWS_SECRET_KEY, AWS_ACCESS_KEY, AWS_REGION.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/check"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/cloudapi"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/config"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/metrics"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/obslog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath   string
		region       string
		metricPrefix string
		listenAddr   string
		pushURL      string
		schedule     string
		develop      bool
	)

	cmd := &cobra.Command{
		Use:   "ec2-reservation-check",
		Short: "Reconcile EC2 reservations against running instances and emit gauges",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			if region != "" {
				cfg.Region = region
			}
			if metricPrefix != "" {
				cfg.MetricPrefix = metricPrefix
			}

			log, err := newLogger(develop)
			if err != nil {
				return err
			}

			emitter := metrics.NewPrometheusEmitter(cfg.MetricPrefix)

			run := func() error {
				client, err := cloudapi.NewEC2Client()
				if err != nil {
					return err
				}
				return check.Run(cfg, client, emitter, log)
			}

			if schedule == "" {
				if listenAddr != "" {
					go serveMetrics(listenAddr, emitter)
				}
				if err := run(); err != nil {
					return err
				}
				if pushURL != "" {
					return emitter.Push(pushURL, cfg.MetricPrefix)
				}
				return nil
			}

			return runScheduled(schedule, listenAddr, pushURL, cfg.MetricPrefix, emitter, log, run)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file with a region key")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (overrides config file and AWS_REGION)")
	cmd.Flags().StringVar(&metricPrefix, "metric-prefix", "", "metric name prefix (default aws_ec2_count)")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "address to serve /metrics for Prometheus scrape, e.g. :9107")
	cmd.Flags().StringVar(&pushURL, "push-gateway", "", "Prometheus Pushgateway URL to push gauges to after each run")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression; when set, runs as a long-lived daemon instead of a one-shot")
	cmd.Flags().BoolVar(&develop, "develop", false, "use human-readable console logging instead of JSON")

	return cmd
}

func newLogger(develop bool) (obslog.Logger, error) {
	if develop {
		return obslog.NewDevelopment()
	}
	return obslog.NewProduction()
}

func serveMetrics(addr string, emitter *metrics.PrometheusEmitter) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", emitter.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	_ = srv.ListenAndServe()
}

// runScheduled keeps a single-threaded, sequential check invocation running
// on a cron cadence: the cron scheduler only decides when to start the
// next one-shot run, it never overlaps two.
func runScheduled(schedule, listenAddr, pushURL, job string, emitter *metrics.PrometheusEmitter, log obslog.Logger, run func() error) error {
	if listenAddr != "" {
		go serveMetrics(listenAddr, emitter)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		if err := run(); err != nil {
			log.Error(err.Error())
			return
		}
		if pushURL != "" {
			if err := emitter.Push(pushURL, job); err != nil {
				log.Error(err.Error())
			}
		}
	})
	if err != nil {
		return err
	}
	c.Run()
	return nil
}
