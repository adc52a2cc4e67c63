package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/workbench-dev/workbench/internal/agent"
	"github.com/workbench-dev/workbench/internal/api"
	"github.com/workbench-dev/workbench/internal/daemon"
	"github.com/workbench-dev/workbench/internal/presence"
)

var serveDaemon bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workbench API server",
	Long: `Start the HTTP server that exposes the REST API and the websocket
presence endpoint. By default it listens on port 8090 and runs in the
foreground. Use --daemon to run it in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveDaemon {
			return serveStartRun()
		}
		return serveRun(cmd.Context())
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show background server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.AddCommand(serveStopCmd, serveStatusCmd)

	serveCmd.Flags().IntP("port", "p", 8090, "port to listen on")
	serveCmd.Flags().BoolVarP(&serveDaemon, "daemon", "d", false, "run the server in the background")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

// pidFile locates the background server's PID file under state_dir.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "workbench-serve.pid"))
}

// serveLogPath is where the background server writes its output.
func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "workbench-serve.log")
}

// serveRun starts the server in the foreground and blocks until the
// process receives a shutdown signal.
func serveRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	eng := newEngine(s)

	var orchestrator *agent.Orchestrator
	if client := newLLMClient(); client != nil {
		orchestrator = agent.NewOrchestrator(client, eng)
	} else {
		ui.Warning("No Anthropic API key configured; agent endpoints disabled")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := presence.NewHub(presence.NewRegistry(), logger)

	srv := api.NewServer(s, eng, orchestrator, hub)

	port := viper.GetInt("port")
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		ui.Info("Listening on http://localhost:%d", port)
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals()...)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		ui.Info("Received %s, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// serveStartRun launches the server as a detached background process and
// records its PID.
func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("server is already running (pid %d)", pid)
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	logFile, err := os.OpenFile(serveLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(self, "serve", "--port", strconv.Itoa(viper.GetInt("port")))
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	if err := pf.WritePID(child.Process.Pid); err != nil {
		_ = child.Process.Kill()
		return fmt.Errorf("write PID file: %w", err)
	}

	ui.Success("Server started (pid %d), logging to %s", child.Process.Pid, serveLogPath())
	return nil
}

// serveStopRun signals the background server to exit, escalating to a
// hard kill if it does not stop in time.
func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		_ = pf.Remove()
		return errors.New("server is not running")
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, still := pf.IsRunning(); !still {
			_ = pf.Remove()
			ui.Success("Server stopped (pid %d)", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	_ = pf.Signal(sigKILL())
	_ = pf.Remove()
	ui.Warning("Server did not exit cleanly, killed (pid %d)", pid)
	return nil
}

// serveStatusRun reports whether a background server is running.
func serveStatusRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		ui.Success("Server is running (pid %d)", pid)
	} else {
		ui.Info("Server is not running")
	}
	return nil
}
