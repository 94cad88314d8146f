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

	"github.com/guardian-nexus/sqlfw-auditor/pkg/auditor"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/azure"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/config"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/logger"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/metrics"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/notify"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/report"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/scheduler"
	"github.com/guardian-nexus/sqlfw-auditor/pkg/updater"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// setup loads configuration and initializes logging. Sink settings are only
// required when the command notifies.
func setup(configFile string, requireSink bool) (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, err
	}

	out, err := logger.Output(cfg.LogFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("open log file: %w", err)
	}
	logger.Init(cfg.Debug, out)
	logger.WithFields(cfg.Redacted()).Debug("Configuration loaded")

	if requireSink {
		if err := cfg.Validate(); err != nil {
			logger.Log().WithError(err).Error("Configuration is incomplete, nothing was audited")
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// buildNotifier picks every configured sink. The bot token variant renders
// per-rule fields, the webhook variant one accumulated text block.
func buildNotifier(cfg config.Config) notify.Notifier {
	var sinks notify.Multi
	if cfg.BotToken != "" {
		sinks = append(sinks, notify.NewBotNotifier(cfg.BotToken, cfg.Channel, cfg.SlackAPIURL))
	}
	if cfg.Hook != "" {
		sinks = append(sinks, notify.NewWebhookNotifier(cfg.Hook, cfg.Channel))
	}
	if cfg.NotifyURL != "" {
		sinks = append(sinks, notify.NewShoutrrrNotifier(cfg.NotifyURL))
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	}
	return sinks
}

func buildAuditor(cfg config.Config, opts auditor.Options) (*auditor.Auditor, error) {
	pol, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	scanner, err := azure.NewScanner(cfg.SubscriptionID)
	if err != nil {
		return nil, err
	}
	opts.UpdateRules = cfg.UpdateRules
	opts.AddInMissingRules = cfg.AddInMissingRules
	return auditor.New(scanner, pol, cfg.WhiteList, opts), nil
}

func newRunCmd(configFile *string) *cobra.Command {
	var (
		dryRun   bool
		jsonPath string
		pdfPath  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one audit and notify when rules are out of range",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configFile, true)
			if err != nil {
				return err
			}

			a, err := buildAuditor(cfg, auditor.Options{DryRun: dryRun, Notifier: buildNotifier(cfg)})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, err := a.Run(ctx)
			if r != nil {
				if saveErr := saveReport(r, jsonPath, pdfPath); saveErr != nil {
					return saveErr
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report and plan only, never delete or create rules")
	cmd.Flags().StringVar(&jsonPath, "json", "", "Write the audit report as JSON to this file")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Write the audit report as PDF to this file")
	return cmd
}

func saveReport(r *report.AuditReport, jsonPath, pdfPath string) error {
	if jsonPath != "" {
		if err := r.SaveJSON(jsonPath); err != nil {
			return err
		}
		logger.Log().WithField("path", jsonPath).Info("JSON report saved")
	}
	if pdfPath != "" {
		if err := report.GeneratePDF(r, pdfPath); err != nil {
			return err
		}
		logger.Log().WithField("path", pdfPath).Info("PDF report saved")
	}
	return nil
}

func newPlanCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the remediation plan for every server without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configFile, false)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			a, err := buildAuditor(cfg, auditor.Options{
				DryRun: true,
				OnPlan: func(p auditor.ServerPlan) { printPlan(out, p, cfg) },
			})
			if err != nil {
				return err
			}

			r, err := a.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, r.Summary())
			return nil
		},
	}
}

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Audit on the configured schedule and expose Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configFile, true)
			if err != nil {
				return err
			}

			a, err := buildAuditor(cfg, auditor.Options{Notifier: buildNotifier(cfg)})
			if err != nil {
				return err
			}

			sched, err := scheduler.New(cfg.Schedule, func(ctx context.Context) {
				if _, err := a.Run(ctx); err != nil {
					logger.Log().WithError(err).Error("Audit run aborted")
				}
			})
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics.Register(registry)

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				logger.Log().WithField("addr", cfg.MetricsAddr).Info("Serving metrics")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Log().WithError(err).Error("Metrics server failed")
					stop()
				}
			}()

			sched.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "SQL FW Auditor %s\n", updater.CurrentVersion)
			if !check {
				return nil
			}

			release, newer, err := updater.CheckForUpdates(cmd.Context(), "")
			if err != nil {
				return err
			}
			if newer {
				fmt.Fprintf(out, "New version available: %s (you have %s)\n", release.TagName, updater.CurrentVersion)
				fmt.Fprintf(out, "  Download: %s\n", release.URL)
			} else {
				fmt.Fprintf(out, "You're on the latest version (%s)\n", updater.CurrentVersion)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}
