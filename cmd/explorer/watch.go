package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Explorer/internal/daemon"
	"github.com/Ning0612/Explorer/internal/logger"
	"github.com/Ning0612/Explorer/internal/scheduler"
	"github.com/Ning0612/Explorer/internal/service"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		every time.Duration
		stop  bool
	)

	cmd := &cobra.Command{
		Use:   "watch [source...]",
		Short: "Re-import sources periodically until interrupted",
		Long: `Import the given sources (or every configured source) right away and
then again at each interval. Only one watcher runs per data directory;
"watch --stop" shuts it down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath, err := daemon.PIDPath(a.config.GetDataDir())
			if err != nil {
				return err
			}
			pidFile := daemon.NewPIDFile(pidPath)

			if stop {
				if err := pidFile.Kill(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Watcher stopped.")
				return nil
			}

			for _, name := range args {
				if _, err := a.config.GetSource(name); err != nil {
					return err
				}
			}

			if err := pidFile.Write(); err != nil {
				return err
			}
			defer pidFile.Remove()

			sigCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return a.withService(func(svc *service.ExplorerService) error {
				svc.SetReporter(newProgressReporter(cmd, false))

				sched, err := scheduler.NewIntervalScheduler(scheduler.Config{
					Interval:  every,
					Sources:   args,
					Immediate: true,
				}, svc)
				if err != nil {
					return err
				}
				if err := sched.Start(cmd.Context()); err != nil {
					return err
				}

				logger.Get().Info("watcher started", "interval", every, "sources", args)
				select {
				case <-sigCtx.Done():
					// a second signal kills the process while Stop waits
					cancel()
					if err := sched.Stop(); err != nil {
						logger.Get().Warn("failed to stop watcher", "error", err)
					}
				case <-sched.Done():
				}

				status := sched.Status()
				logger.Get().Info("watcher stopped", "runs", status.TotalRuns, "failed", status.FailedRuns)
				fmt.Fprintf(cmd.OutOrStdout(), "%d runs, %d failed\n", status.TotalRuns, status.FailedRuns)
				if status.LastError != "" {
					return errors.New(status.LastError)
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&every, "every", 15*time.Minute, "time between imports")
	cmd.Flags().BoolVar(&stop, "stop", false, "stop the running watcher")
	return cmd
}
