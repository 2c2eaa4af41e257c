package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Explorer/internal/config"
	"github.com/Ning0612/Explorer/internal/domain"
	"github.com/Ning0612/Explorer/internal/logger"
	"github.com/Ning0612/Explorer/internal/service"
)

// app carries state shared by every command
type app struct {
	configPath string
	config     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "explorer",
		Short:         "Browse and edit a flat file/folder index",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: search ./config.yaml, user config dir)")

	root.AddCommand(
		newImportCmd(a),
		newWatchCmd(a),
		newAuthCmd(a),
		newOpenCmd(a),
		newSearchCmd(a),
		newTreeCmd(a),
		newRenameCmd(a),
		newMoveCmd(a),
		newCopyCmd(a),
		newTrashCmd(a),
		newRestoreCmd(a),
		newTrashListCmd(a),
		newHistoryCmd(a),
		newUnlockCmd(a),
	)

	return root
}

// init loads the configuration and starts the logger. A missing config
// file is only an error when one was named explicitly.
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	switch {
	case errors.Is(err, domain.ErrConfigNotFound) && a.configPath == "":
		cfg = config.Default()
	case err != nil:
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.config = cfg

	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Debug("configuration loaded", "path", a.configPath, "data_dir", cfg.GetDataDir())
	return nil
}

// withService opens the explorer service for the duration of fn
func (a *app) withService(fn func(svc *service.ExplorerService) error) error {
	svc, err := service.NewExplorerService(a.config)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}
