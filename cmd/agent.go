package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/workbench-dev/workbench/internal/action"
	"github.com/workbench-dev/workbench/internal/agent"
	"github.com/workbench-dev/workbench/internal/engine"
	"github.com/workbench-dev/workbench/internal/models"
	"github.com/workbench-dev/workbench/internal/output"
	"github.com/workbench-dev/workbench/internal/store"
)

var (
	agentProject string
	agentLimit   int
)

var agentCmd = &cobra.Command{
	Use:   "agent [message]",
	Short: "Run AI agent turns against a project",
	Long:  "Send a message to the coding agent and apply its actions to a project.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return agentRunRun(cmd.Context(), strings.Join(args, " "))
	},
}

var agentRunCmd = &cobra.Command{
	Use:   "run <message>",
	Short: "Run one agent turn",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentRunRun(cmd.Context(), strings.Join(args, " "))
	},
}

var agentHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show conversation history for a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentHistoryRun(cmd.Context())
	},
}

func init() {
	agentCmd.PersistentFlags().StringVar(&agentProject, "project", "", "Project name or ID")
	agentHistoryCmd.Flags().IntVar(&agentLimit, "limit", 20, "Max messages to show")

	agentCmd.AddCommand(agentRunCmd)
	agentCmd.AddCommand(agentHistoryCmd)
	rootCmd.AddCommand(agentCmd)
}

func agentRunRun(ctx context.Context, message string) error {
	if agentProject == "" {
		return fmt.Errorf("specify --project")
	}

	client := newLLMClient()
	if client == nil {
		return fmt.Errorf("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	p, err := resolveProject(ctx, s, agentProject)
	if err != nil {
		return err
	}

	files, err := s.ListFiles(ctx, p.ID)
	if err != nil {
		return err
	}
	records := make([]models.FileRecord, 0, len(files))
	for _, f := range files {
		records = append(records, *f)
	}

	eng := newEngine(s)
	orchestrator := agent.NewOrchestrator(client, eng)

	ui.Info("Running agent against %s", output.Cyan(p.Name))
	resp, err := orchestrator.Run(ctx, agent.Request{
		Message:   message,
		ProjectID: p.ID,
		Files:     records,
		Mode:      agent.ModeAutonomous,
	})
	if err != nil {
		return fmt.Errorf("agent turn: %w", err)
	}

	fmt.Fprintln(ui.Out, resp.Message)

	if len(resp.Actions) > 0 {
		timeline := agent.NewTimeline(resp.Actions)
		timeline.Resolve(engine.Result{Status: resp.Status, Output: resp.Output})

		fmt.Fprintln(ui.Out)
		for _, e := range timeline.Entries() {
			fmt.Fprintf(ui.Out, "  %s  %s %s\n",
				output.StatusColor(string(e.Status)), e.Action.Kind, actionTarget(e.Action))
		}
	}

	if resp.Output != "" {
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, resp.Output)
	}

	recordAgentTurn(ctx, s, p.ID, message, resp.Message)
	return nil
}

func actionTarget(a action.Action) string {
	if a.Kind == action.KindRunCommand {
		return a.Command
	}
	return a.Target
}

// recordAgentTurn persists the exchange to the project's conversation.
// Best-effort: a failed write never fails the turn.
func recordAgentTurn(ctx context.Context, s store.Store, projectID, userMsg, assistantMsg string) {
	if _, err := s.EnsureUser(ctx, engine.AnonUserID, engine.AnonUserName, engine.AnonUserEmail); err != nil {
		return
	}
	_ = s.CreateMessage(ctx, &models.Message{
		ProjectID: projectID,
		UserID:    engine.AnonUserID,
		Role:      models.MessageRoleUser,
		Content:   userMsg,
	})
	_ = s.CreateMessage(ctx, &models.Message{
		ProjectID: projectID,
		UserID:    engine.AnonUserID,
		Role:      models.MessageRoleAssistant,
		Content:   assistantMsg,
	})
}

func agentHistoryRun(ctx context.Context) error {
	if agentProject == "" {
		return fmt.Errorf("specify --project")
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	p, err := resolveProject(ctx, s, agentProject)
	if err != nil {
		return err
	}

	messages, err := s.ListMessages(ctx, p.ID, agentLimit)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		ui.Info("No conversation yet for %s", p.Name)
		return nil
	}

	for _, m := range messages {
		role := string(m.Role)
		if m.Role == models.MessageRoleAssistant {
			role = output.Green(role)
		} else {
			role = output.Cyan(role)
		}
		fmt.Fprintf(ui.Out, "%s  %s\n%s\n\n", role, timeAgo(m.CreatedAt), m.Content)
	}
	return nil
}
