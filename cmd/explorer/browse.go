package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Explorer/internal/core/nested"
	"github.com/Ning0612/Explorer/internal/core/route"
	"github.com/Ning0612/Explorer/internal/core/treepath"
	"github.com/Ning0612/Explorer/internal/domain"
	"github.com/Ning0612/Explorer/internal/service"
)

func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <pathname>",
		Short: "List a folder by its route, e.g. /reading/my-files/docs or /trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *service.ExplorerService) error {
				view, err := svc.Open(args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, view.Location.Pathname())
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, r := range view.Resources {
					child := route.Location{View: view.Location.View, FolderPath: treepath.Join(view.Location.FolderPath, r.Name)}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", typeLabel(r), r.Name, child.Pathname())
				}
				return tw.Flush()
			})
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find resources whose name contains query (case-insensitive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *service.ExplorerService) error {
				results, err := svc.Search(args[0])
				if err != nil {
					return err
				}
				printResources(cmd.OutOrStdout(), results)
				return nil
			})
		},
	}
}

func newTreeCmd(a *app) *cobra.Command {
	var paths bool

	cmd := &cobra.Command{
		Use:   "tree [folder]",
		Short: "Print a folder and everything below it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folderPath := ""
			if len(args) == 1 {
				folderPath = args[0]
			}

			return a.withService(func(svc *service.ExplorerService) error {
				nodes, err := svc.Tree(folderPath)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if paths {
					for _, p := range nested.FlattenPaths(nodes) {
						fmt.Fprintln(out, p)
					}
					return nil
				}
				printTree(out, nodes, 0)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&paths, "paths", false, "print full paths, parents first")
	return cmd
}

func printTree(w io.Writer, nodes []nested.Node, depth int) {
	for _, n := range nodes {
		name := n.Name
		if n.IsDirectory {
			name += "/"
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), name)
		printTree(w, n.Children, depth+1)
	}
}

func newTrashListCmd(a *app) *cobra.Command {
	var original string

	cmd := &cobra.Command{
		Use:   "trash-ls [virtual-path]",
		Short: "List the trash, e.g. trash/project-a",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			virtualPath := ""
			if len(args) == 1 {
				virtualPath = args[0]
			}

			return a.withService(func(svc *service.ExplorerService) error {
				listing, err := svc.ListTrash(virtualPath, original)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "virtual root: %s\n", listing.VirtualRoot)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, item := range listing.Resources {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", typeLabel(item.Resource), item.VirtualPath, item.Path)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&original, "original", "", "only show items whose original path contains this text")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *service.ExplorerService) error {
				records, err := svc.History(limit)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tOPERATION\tTARGET\tDESTINATION\tSTATUS\tCHANGED")
				for _, r := range records {
					status := r.Status
					if r.Error != "" {
						status += ": " + r.Error
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
						r.StartTime.Local().Format(time.DateTime), r.Operation, r.Target, r.Destination, status, r.Changed)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of edits to show")
	return cmd
}

func printResources(w io.Writer, resources []domain.Resource) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range resources {
		fmt.Fprintf(tw, "%s\t%s\n", typeLabel(r), r.Path)
	}
	tw.Flush()
}

func typeLabel(r domain.Resource) string {
	if r.IsFolder() {
		return "dir"
	}
	return "file"
}
