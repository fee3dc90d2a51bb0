package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"patentrag/internal/agent"
	"patentrag/internal/app"
)

var (
	thoughtColor = color.New(color.FgCyan).SprintFunc()
	actionColor  = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	answerColor  = color.New(color.FgGreen, color.Bold).SprintFunc()
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question and print the markdown answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		color.NoColor = color.NoColor || viper.GetBool("no_color")

		var observers []agent.Observer
		if verbose {
			out := cmd.ErrOrStderr()
			observers = append(observers, agent.ObserverFunc(func(_ context.Context, _ string, t agent.Turn) {
				printTurn(out, t)
			}))
		}
		rt, err := app.NewRuntime(cmd.Context(), currentConfig, logger, app.RuntimeOptions{Observers: observers})
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), currentConfig.RequestTimeout())
		defer cancel()
		res, err := rt.Agent.Run(ctx, strings.Join(args, " "), nil)
		if err != nil {
			return err
		}
		if verbose && res.Forced {
			fmt.Fprintln(cmd.ErrOrStderr(), answerColor("turn limit reached, synthesized from findings"))
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
		return nil
	},
}

func printTurn(w io.Writer, t agent.Turn) {
	fmt.Fprintf(w, "--- turn %d ---\n", t.Number)
	if t.Thought != "" {
		fmt.Fprintf(w, "%s %s\n", thoughtColor("Thought:"), t.Thought)
	}
	switch {
	case t.FinalAnswer != "":
		fmt.Fprintln(w, answerColor("Answer ready"))
	case t.Action != "":
		fmt.Fprintf(w, "%s %s(%q)\n", actionColor("Action:"), t.Action, t.ActionInput)
	}
	if t.Observation != "" {
		label := "Observation:"
		if t.IsError {
			label = errorColor(label)
		}
		fmt.Fprintf(w, "%s %s\n", label, clip(t.Observation, 400))
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func init() {
	askCmd.Flags().BoolP("verbose", "v", false, "print each reasoning turn to stderr")
}
