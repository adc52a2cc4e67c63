package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/workbench-dev/workbench/internal/engine"
	"github.com/workbench-dev/workbench/internal/models"
	"github.com/workbench-dev/workbench/internal/output"
	"github.com/workbench-dev/workbench/internal/store"
)

var (
	projectLanguage    string
	projectDescription string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage workbench projects",
	Long:  "Add, remove, list, and show workbench projects.",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectAddRun(args[0])
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:     "remove <name-or-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a project and its files",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectRemoveRun(args[0])
	},
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun()
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <name-or-id>",
	Short: "Show project files and recent activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectShowRun(args[0])
	},
}

func init() {
	projectAddCmd.Flags().StringVar(&projectLanguage, "language", "javascript", "Primary project language")
	projectAddCmd.Flags().StringVar(&projectDescription, "description", "", "Project description")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectRemoveCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	rootCmd.AddCommand(projectCmd)
}

func projectAddRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	owner, err := s.EnsureUser(ctx, engine.AnonUserID, engine.AnonUserName, engine.AnonUserEmail)
	if err != nil {
		return fmt.Errorf("ensure owner: %w", err)
	}

	p := &models.Project{
		Name:        name,
		Description: projectDescription,
		Language:    projectLanguage,
		OwnerID:     owner.ID,
	}

	if err := s.CreateProject(ctx, p); err != nil {
		return fmt.Errorf("add project: %w", err)
	}

	ui.Success("Added project: %s (%s)", output.Cyan(name), p.ID)
	return nil
}

func projectRemoveRun(nameOrID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, nameOrID)
	if err != nil {
		return err
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		return fmt.Errorf("remove project: %w", err)
	}

	if err := newEngine(s).Mirror().RemoveProject(p.ID); err != nil {
		ui.Warning("Could not remove mirror directory: %v", err)
	}

	ui.Success("Removed project: %s", output.Cyan(p.Name))
	return nil
}

func projectListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		ui.Info("No projects yet. Use 'workbench project add <name>' to get started.")
		return nil
	}

	table := ui.Table([]string{"Name", "Language", "Description", "Files", "Updated"})
	for _, p := range projects {
		files, _ := s.ListFiles(ctx, p.ID)

		table.Append([]string{
			output.Cyan(p.Name),
			p.Language,
			p.Description,
			fmt.Sprintf("%d", len(files)),
			timeAgo(p.UpdatedAt),
		})
	}
	table.Render()
	return nil
}

func projectShowRun(nameOrID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := resolveProject(ctx, s, nameOrID)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(p.Name))
	fmt.Fprintf(ui.Out, "  ID:         %s\n", p.ID)
	if p.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", p.Description)
	}
	if p.Language != "" {
		fmt.Fprintf(ui.Out, "  Language:   %s\n", p.Language)
	}
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", timeAgo(p.UpdatedAt))
	fmt.Fprintln(ui.Out)

	files, err := s.ListFiles(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		fmt.Fprintf(ui.Out, "  Files:      %d\n", len(files))
		for _, f := range files {
			fmt.Fprintf(ui.Out, "              %s (%s)\n", f.Path, f.Language)
		}
	}

	execs, err := s.ListExecutions(ctx, p.ID, 5)
	if err != nil {
		return err
	}
	if len(execs) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "  Recent commands:\n")
		for _, e := range execs {
			fmt.Fprintf(ui.Out, "              %s  %s  %s\n",
				output.StatusColor(string(e.Status)), e.Command, timeAgo(e.CreatedAt))
		}
	}

	return nil
}

// resolveProject finds a project by name or ID.
func resolveProject(ctx context.Context, s store.Store, nameOrID string) (*models.Project, error) {
	if p, err := s.GetProjectByName(ctx, nameOrID); err == nil {
		return p, nil
	}
	if p, err := s.GetProject(ctx, nameOrID); err == nil {
		return p, nil
	}
	return nil, fmt.Errorf("project not found: %s", nameOrID)
}

// timeAgo returns a human-readable duration from a time.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
