package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/Lunar-Chipter/prism/internal/config"
	"github.com/Lunar-Chipter/prism/internal/core"
	"github.com/Lunar-Chipter/prism/internal/render"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var rootCmd = &cobra.Command{
	Use:           "prismctl",
	Short:         "Validate, inspect and watch prism logger configuration files",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a configuration file without touching any running hierarchy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h := core.NewHierarchy()
		if err := config.ApplyProperties(h, 0, args[0]); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), failStyle.Render("FAIL"), args[0])
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("OK"), args[0])
		return nil
	},
}

var treeFilter string

var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Apply a configuration file to a scratch hierarchy and print the tree diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h := core.NewHierarchy()
		if err := config.ApplyProperties(h, 0, args[0]); err != nil {
			return err
		}
		if treeFilter == "" {
			fmt.Fprint(cmd.OutOrStdout(), render.Tree(h, 0, h.Root()))
			return nil
		}

		g, err := glob.Compile(treeFilter, '.')
		if err != nil {
			return fmt.Errorf("invalid --filter pattern: %w", err)
		}
		var matches []*core.Logger
		h.VisitDescendants(h.Root(), func(l *core.Logger) {
			if g.Match(l.Name()) {
				matches = append(matches, l)
			}
		})
		if len(matches) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("no loggers match "+treeFilter))
			return nil
		}
		var out strings.Builder
		for _, m := range matches {
			out.WriteString(render.Tree(h, 0, m))
		}
		fmt.Fprint(cmd.OutOrStdout(), out.String())
		return nil
	},
}

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Apply a configuration file, then reprint the tree on every change until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		h := core.NewHierarchy()

		show := func() error {
			if err := config.ApplyProperties(h, 0, path); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), failStyle.Render("reload failed:"), err)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render(time.Now().Format(time.RFC3339)+" "+path))
			fmt.Fprint(cmd.OutOrStdout(), render.Tree(h, 0, h.Root()))
			return nil
		}
		if err := show(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		w, err := config.StartWatch(ctx, path, watchInterval,
			func(string) error { return show() },
			func(err error) { fmt.Fprintln(cmd.ErrOrStderr(), failStyle.Render("watch:"), err) })
		if err != nil {
			return err
		}
		<-ctx.Done()
		<-w.Done()
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVar(&treeFilter, "filter", "", "glob over dotted logger names; matching subtrees are rendered")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "poll interval for the reload loop")
	rootCmd.AddCommand(checkCmd, treeCmd, watchCmd)
}
