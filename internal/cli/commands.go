package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/caelinsutch/agentlink/internal/version"
	"github.com/caelinsutch/agentlink/pkg/chain"
	"github.com/caelinsutch/agentlink/pkg/clients"
	"github.com/caelinsutch/agentlink/pkg/commands/initialize"
	"github.com/caelinsutch/agentlink/pkg/commands/list"
	"github.com/caelinsutch/agentlink/pkg/commands/repair"
	"github.com/caelinsutch/agentlink/pkg/commands/status"
	synccmd "github.com/caelinsutch/agentlink/pkg/commands/sync"
	"github.com/caelinsutch/agentlink/pkg/filesystem"
	"github.com/caelinsutch/agentlink/pkg/linkplan"
	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/paths"
	"github.com/caelinsutch/agentlink/pkg/settings"
	"github.com/caelinsutch/agentlink/pkg/types"
	"github.com/caelinsutch/agentlink/pkg/ui"
	"github.com/caelinsutch/agentlink/pkg/watch"
)

type globalOpts struct {
	verbosity   int
	dryRun      bool
	force       bool
	global      bool
	clientNames []string
}

func (g *globalOpts) scope() clients.Scope {
	if g.global {
		return clients.ScopeGlobal
	}
	return clients.ScopeProject
}

func (g *globalOpts) clientSet() ([]clients.Client, error) {
	return clients.Parse(g.clientNames)
}

// env resolves the ambient inputs every command needs.
func env() (types.FS, string, string, error) {
	fsys := filesystem.NewOS()
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", "", fmt.Errorf("resolving working directory: %w", err)
	}
	home, err := paths.HomeDir()
	if err != nil {
		return nil, "", "", err
	}
	return fsys, wd, home, nil
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	opts := &globalOpts{}

	rootCmd := &cobra.Command{
		Use:     "agentlink",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Preview changes without executing them")
	rootCmd.PersistentFlags().BoolVar(&opts.force, "force", false, "Apply around conflicting targets instead of aborting")
	rootCmd.PersistentFlags().BoolVarP(&opts.global, "global", "g", false, "Project into home-scoped client layouts")
	rootCmd.PersistentFlags().StringSliceVar(&opts.clientNames, "client", nil, "Limit to the named clients (default: auto-detect)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSyncCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newRepairCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newInitCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Long:  MsgVersionLong,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf(MsgVersionFormat, version.Version)
			fmt.Printf(MsgCommitFormat, version.Commit)
			fmt.Printf(MsgBuiltFormat, version.Date)
		},
	}
}

func newSyncCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: MsgSyncShort,
		Long:  MsgSyncLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, wd, home, err := env()
			if err != nil {
				return err
			}
			set, err := opts.clientSet()
			if err != nil {
				return err
			}
			st, err := settings.Load()
			if err != nil {
				return err
			}

			result, err := synccmd.Run(synccmd.Options{
				FS:              fsys,
				WorkingDir:      wd,
				HomeDir:         home,
				Clients:         set,
				Scope:           opts.scope(),
				DryRun:          opts.dryRun,
				Force:           opts.force,
				BackupRetention: st.Backup.Retention,
			})
			if err != nil {
				if result != nil && result.Plan != nil && len(result.Plan.Conflicts()) > 0 {
					printConflicts(result.Plan)
				}
				return err
			}

			printPlanOutcome(result.Plan, result.Apply, opts.dryRun)
			return nil
		},
	}
}

func newStatusCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: MsgStatusShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, wd, home, err := env()
			if err != nil {
				return err
			}
			set, err := opts.clientSet()
			if err != nil {
				return err
			}

			result, err := status.Run(status.Options{
				FS:         fsys,
				WorkingDir: wd,
				HomeDir:    home,
				Clients:    set,
				Scope:      opts.scope(),
			})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newRepairCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: MsgRepairShort,
		Long:  MsgRepairLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, wd, home, err := env()
			if err != nil {
				return err
			}
			set, err := opts.clientSet()
			if err != nil {
				return err
			}

			result, err := repair.Run(repair.Options{
				FS:         fsys,
				WorkingDir: wd,
				HomeDir:    home,
				Clients:    set,
				Scope:      opts.scope(),
			})
			if err != nil {
				return err
			}
			if result.Message != "" {
				fmt.Println(result.Message)
				return nil
			}
			fmt.Printf(MsgRepairSummary,
				result.Repair.Created, result.Repair.Updated, result.Repair.Skipped)
			styles := ui.NewStyles()
			for _, e := range result.Repair.Errors {
				fmt.Println(styles.Warning.Render("  ! " + e))
			}
			return nil
		},
	}
}

func newWatchCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: MsgWatchShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, wd, home, err := env()
			if err != nil {
				return err
			}
			set, err := opts.clientSet()
			if err != nil {
				return err
			}
			st, err := settings.Load()
			if err != nil {
				return err
			}

			ch, err := chain.Detect(fsys, wd, home)
			if err != nil {
				return err
			}
			roots := ch.Effective()
			if len(roots) == 0 {
				return fmt.Errorf("no canonical tree found at or above %s", wd)
			}

			rebuild := func(ctx context.Context) error {
				_, err := synccmd.Run(synccmd.Options{
					FS:              fsys,
					WorkingDir:      wd,
					HomeDir:         home,
					Clients:         set,
					Scope:           opts.scope(),
					Force:           opts.force,
					BackupRetention: st.Backup.Retention,
				})
				return err
			}

			// One pass up front so the watch starts from a linked state.
			if err := rebuild(cmd.Context()); err != nil {
				return err
			}

			daemon, err := watch.New(roots, st.Watch.Debounce, rebuild)
			if err != nil {
				return err
			}
			defer func() { _ = daemon.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf(MsgWatchStarted, len(roots))
			return daemon.Run(ctx)
		},
	}
}

func newListCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: MsgListShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, wd, home, err := env()
			if err != nil {
				return err
			}

			result, err := list.Run(list.Options{
				FS:         fsys,
				WorkingDir: wd,
				HomeDir:    home,
			})
			if err != nil {
				return err
			}
			if len(result.Items) == 0 {
				fmt.Println(MsgNoResources)
				return nil
			}

			styles := ui.NewStyles()
			var lastKind types.ResourceKind = -1
			for _, item := range result.Items {
				if item.Kind != lastKind {
					fmt.Println(styles.Header.Render(item.Kind.String() + ":"))
					lastKind = item.Kind
				}
				fmt.Printf("  %s  %s\n", item.Name, styles.Muted.Render(item.Root))
			}
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: MsgInitShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, wd, _, err := env()
			if err != nil {
				return err
			}

			result, err := initialize.Run(initialize.Options{FS: fsys, Dir: wd})
			if err != nil {
				return err
			}
			if result.AlreadyInitialized {
				fmt.Printf(MsgInitExists, result.Root)
				return nil
			}
			fmt.Printf(MsgInitDone, result.Root)
			for _, created := range result.Created {
				fmt.Printf("  %s\n", created)
			}
			return nil
		},
	}
}

func printConflicts(plan *linkplan.Plan) {
	styles := ui.NewStyles()
	for _, task := range plan.Conflicts() {
		fmt.Println(styles.Error.Render("  ✗ " + linkplan.Describe(task)))
	}
	fmt.Println(MsgConflictHint)
}

func printPlanOutcome(plan *linkplan.Plan, applied *linkplan.ApplyResult, dryRun bool) {
	styles := ui.NewStyles()
	if dryRun {
		changes := plan.Changes()
		if len(changes) == 0 && len(plan.Conflicts()) == 0 {
			fmt.Println(MsgNoChanges)
		}
		for _, task := range changes {
			fmt.Println("  " + linkplan.Describe(task))
		}
		printConflictList(plan, styles)
		fmt.Println(MsgDryRunNotice)
		return
	}

	if applied.Created == 0 && applied.Updated == 0 && applied.Conflicts == 0 {
		fmt.Println(styles.Success.Render(MsgNoChanges))
		return
	}
	fmt.Printf(MsgSyncSummary, applied.Created, applied.Updated, applied.Skipped)
	printConflictList(plan, styles)
}

func printConflictList(plan *linkplan.Plan, styles ui.Styles) {
	for _, task := range plan.Conflicts() {
		fmt.Println(styles.Warning.Render("  ! " + linkplan.Describe(task)))
	}
}
