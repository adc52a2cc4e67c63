package cmd

import (
	"github.com/spf13/cobra"

	"github.com/workbench-dev/workbench/internal/agent"
	"github.com/workbench-dev/workbench/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This allows Claude Code to work with workbench projects natively.
Configure in Claude Code with:

  {
    "mcpServers": {
      "workbench": { "command": "workbench", "args": ["mcp"] }
    }
  }

Available tools: workbench_list_projects, workbench_list_files,
workbench_read_file, workbench_write_file, workbench_delete_file,
workbench_execute_command, workbench_run_agent`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}

		eng := newEngine(s)

		var orchestrator *agent.Orchestrator
		if client := newLLMClient(); client != nil {
			orchestrator = agent.NewOrchestrator(client, eng)
		}

		return mcp.NewServer(s, eng, orchestrator).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
