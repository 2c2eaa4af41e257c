package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Explorer/internal/adapter/gdrive"
	"github.com/Ning0612/Explorer/internal/domain"
	"github.com/Ning0612/Explorer/internal/progress"
	"github.com/Ning0612/Explorer/internal/service"
)

func newImportCmd(a *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "import <source>",
		Short: "Index a configured source, replacing its previous listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *service.ExplorerService) error {
				svc.SetReporter(newProgressReporter(cmd, quiet))
				result, err := svc.Import(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d added, %d removed\n",
					args[0], result.Summary.Added, result.Summary.Removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not report walk progress")
	return cmd
}

// newProgressReporter prints walk progress to stderr, at most twice a second
func newProgressReporter(cmd *cobra.Command, quiet bool) progress.Reporter {
	if quiet {
		return progress.NullReporter{}
	}
	out := cmd.ErrOrStderr()
	return progress.NewCallbackReporter(progress.Throttle(500*time.Millisecond, func(u progress.Update) {
		fmt.Fprintln(out, progress.FormatUpdate(u))
	}))
}

func newAuthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth <source>",
		Short: "Authorize access to a Google Drive source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.config.GetSource(args[0])
			if err != nil {
				return err
			}
			if src.Type != domain.SourceGDrive {
				return fmt.Errorf("source %s is not a gdrive source", src.Name)
			}

			auth := gdrive.NewAuthenticator(src.ClientID, src.ClientSecret, src.TokenPath)
			_, err = auth.Authenticate(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			return err
		},
	}
}
