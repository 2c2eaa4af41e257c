package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Explorer/internal/core/diff"
	"github.com/Ning0612/Explorer/internal/core/tree"
	"github.com/Ning0612/Explorer/internal/service"
)

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <new-name>",
		Short: "Rename a file or folder in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *service.ExplorerService) error {
				result, err := svc.Rename(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				printEdit(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <path> <destination-folder>",
		Short: "Move a file or folder into another folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *service.ExplorerService) error {
				result, err := svc.Move(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				printEdit(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newCopyCmd(a *app) *cobra.Command {
	var opts tree.CopyOptions

	cmd := &cobra.Command{
		Use:   "copy <path> <destination-folder>",
		Short: "Copy a file or folder into another folder",
		Long: `Copy a file or folder, with everything below it, into another folder.
The copy is named "<name> copy" unless --name is given; taken names get a
numeric suffix ("<name> copy 2").`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *service.ExplorerService) error {
				result, err := svc.Copy(cmd.Context(), args[0], args[1], opts)
				if err != nil {
					return err
				}
				printEdit(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.NewName, "name", "", "name of the copy")
	return cmd
}

func newTrashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trash <path>",
		Short: "Move a file or folder to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *service.ExplorerService) error {
				result, err := svc.Trash(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printEdit(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <original-path>",
		Short: "Restore a trashed file or folder to where it was",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *service.ExplorerService) error {
				result, err := svc.Restore(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printEdit(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newUnlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Remove a lock left behind by a crashed edit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *service.ExplorerService) error {
				out := cmd.OutOrStdout()
				if !svc.IsLocked() {
					fmt.Fprintln(out, "Not locked.")
					return nil
				}
				if holder, err := svc.GetLockHolder(); err == nil {
					fmt.Fprintf(out, "Releasing lock held by PID %d on %s (%s)\n", holder.PID, holder.Hostname, holder.Operation)
				}
				return svc.ForceUnlock()
			})
		},
	}
}

func printEdit(w io.Writer, result *service.EditResult) {
	fmt.Fprintf(w, "%s: %d added, %d removed, %d relocated\n",
		result.Operation, result.Summary.Added, result.Summary.Removed, result.Summary.Relocated)
	for _, c := range result.Changes {
		switch c.Kind {
		case diff.ResourceRelocated:
			fmt.Fprintf(w, "  ~ %s -> %s\n", c.From, c.Path)
		case diff.ResourceAdded:
			fmt.Fprintf(w, "  + %s\n", c.Path)
		case diff.ResourceRemoved:
			fmt.Fprintf(w, "  - %s\n", c.Path)
		}
	}
}
