package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/studyd/internal/api"
	"github.com/kalambet/studyd/internal/backend"
	"github.com/kalambet/studyd/internal/config"
	"github.com/kalambet/studyd/internal/gamify"
	"github.com/kalambet/studyd/internal/session"
	"github.com/kalambet/studyd/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the studyd server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		stdioMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(stdioMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running studyd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show studyd status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", true, "serve MCP over stdin/stdout alongside the HTTP API")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "studyd.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer(stdioMCP bool) error {
	fmt.Fprintf(os.Stderr, "studyd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)})))

	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("studyd is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("studyd is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	notices := api.NewNoticeBoard(store)
	journal := gamify.New(store, notices)
	planner := backend.New(cfg.Backend.BaseURL, cfg.Backend.TimeoutDuration())

	sess, err := session.New(session.Options{
		Backend:      planner,
		Gamifier:     journal,
		View:         notices,
		BreakMinutes: cfg.Timer.BreakMinutes,
		Context:      ctx,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	// The server stays up without the backend; flows retry on demand.
	if err := sess.Bootstrap(ctx); err != nil {
		slog.Warn("initial sync with planning backend failed", "base_url", cfg.Backend.BaseURL, "error", err)
	} else {
		slog.Info("session ready", "has_profile", sess.HasProfile(), "calendar", sess.CalendarConnected())
	}

	appHandler := api.NewAppHandler(api.AppDeps{
		Session: sess,
		Notices: notices,
		Journal: journal,
		Token:   apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if stdioMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Session: sess, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "studyd listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("studyd is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop studyd (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to studyd (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	hc := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := hc.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}
	printStatus("Backend", "%s", cfg.Backend.BaseURL)

	if running {
		token, tokenErr := config.GetAPIToken(config.NewKeychain())
		if tokenErr == nil {
			c := &apiClient{baseURL: serverURL, token: token, httpClient: hc}
			printSessionStatus(ctx, c)
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

// printSessionStatus summarizes the live session. Failures are skipped
// silently; status is best effort.
func printSessionStatus(ctx context.Context, c *apiClient) {
	var st struct {
		HasProfile bool `json:"has_profile"`
		Profile    struct {
			Name string `json:"nombre"`
		} `json:"profile"`
		Transcript        []json.RawMessage  `json:"transcript"`
		Timer             session.TimerState `json:"timer"`
		Projects          []json.RawMessage  `json:"projects"`
		CalendarConnected bool               `json:"calendar_connected"`
	}
	if c.call(ctx, http.MethodGet, "/state", nil, &st) == nil {
		if st.HasProfile {
			printStatus("Profile", "%s", st.Profile.Name)
		} else {
			printStatus("Profile", "not set up")
		}
		printStatus("Conversation", "%d turns", len(st.Transcript))
		printStatus("Timer", "%s %s (%s)", st.Timer.Mode, st.Timer, st.Timer.Phase)
		printStatus("Projects", "%d", len(st.Projects))
		printStatus("Calendar", "%s", connectedLabel(st.CalendarConnected))
	}

	var unread []storage.Notice
	if c.call(ctx, http.MethodGet, "/notices?unread=true&limit=100", nil, &unread) == nil {
		printStatus("Unread notices", "%s", countLabel(len(unread), 100))
	}

	var xp gamify.Summary
	if c.call(ctx, http.MethodGet, "/xp", nil, &xp) == nil {
		printStatus("Level", "%d (%d/%d XP)", xp.Level, xp.IntoLevel, xp.NextLevel)
	}
}

func connectedLabel(ok bool) string {
	if ok {
		return "connected"
	}
	return "not connected"
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
