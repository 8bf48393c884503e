package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stellarlinkco/agentrelay/internal/adapter"
	"github.com/stellarlinkco/agentrelay/internal/bootstrap"
	"github.com/stellarlinkco/agentrelay/internal/config"
	"github.com/stellarlinkco/agentrelay/internal/events"
	"github.com/stellarlinkco/agentrelay/internal/notify"
	"github.com/stellarlinkco/agentrelay/internal/policy"
	"github.com/stellarlinkco/agentrelay/internal/registry"
	"github.com/stellarlinkco/agentrelay/internal/sideband"
)

var rootCmd = &cobra.Command{
	Use:   "agentrelay",
	Short: "agentrelay - event relay and permission gateway for coding agents",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sideband server with policy and notification handlers",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check <tool> [command]",
	Short: "Evaluate a tool or command against the workspace policy",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCheck,
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Print or install the terminal hook script",
	RunE:  runBootstrap,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agentrelay status",
	RunE:  runStatus,
}

var (
	checkWorkspace string
	checkPreset    string
	checkFilePath  string
	bootstrapOut   string
)

func init() {
	checkCmd.Flags().StringVarP(&checkWorkspace, "workspace", "w", "", "Workspace whose policy file applies")
	checkCmd.Flags().StringVar(&checkPreset, "preset", "", "Evaluate against a named preset instead of the workspace policy")
	checkCmd.Flags().StringVar(&checkFilePath, "file", "", "File path the tool would touch")
	bootstrapCmd.Flags().StringVarP(&bootstrapOut, "out", "o", "", "Directory to install the hook script into")
	rootCmd.AddCommand(serveCmd, checkCmd, bootstrapCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New()
	g, ctx := errgroup.WithContext(ctx)

	src, err := policySource(ctx, g, cfg)
	if err != nil {
		return err
	}
	reg.OnType("permission:request", policy.Handler(src))

	if cfg.Notify.Telegram.Enabled {
		fwd, err := notify.NewTelegramForwarder(notify.TelegramConfig{
			Token:  cfg.Notify.Telegram.Token,
			ChatID: cfg.Notify.Telegram.ChatID,
			Proxy:  cfg.Notify.Telegram.Proxy,
		})
		if err != nil {
			return fmt.Errorf("configure telegram: %w", err)
		}
		if err := fwd.Start(); err != nil {
			return fmt.Errorf("start telegram: %w", err)
		}
		fwd.Register(reg)
	}

	srv := sideband.NewServer(sideband.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start sideband server: %w", err)
	}

	g.Go(func() error {
		pumpLifecycle(ctx, srv.Broadcaster(), reg)
		return nil
	})

	log.Printf("[serve] ready, policy preset %s", cfg.Policy.Preset)
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// policySource wires the policy the serve loop evaluates against. An
// explicit file is loaded once; a workspace policy is watched and reloaded
// live.
func policySource(ctx context.Context, g *errgroup.Group, cfg *config.Config) (policy.Source, error) {
	base := policy.Preset(cfg.Policy.Preset)

	if cfg.Policy.Path != "" {
		p, err := policy.LoadFileOver(cfg.Policy.Path, base)
		if err != nil {
			return nil, fmt.Errorf("load policy file: %w", err)
		}
		return policy.Fixed(p), nil
	}

	watcher, err := policy.NewWatcherOver(cfg.Workspace, base)
	if err != nil {
		return nil, fmt.Errorf("watch workspace policy: %w", err)
	}
	g.Go(func() error {
		return watcher.Run(ctx)
	})
	return watcher.Current, nil
}

// pumpLifecycle bridges sideband lifecycle reports onto the registry as
// canonical events.
func pumpLifecycle(ctx context.Context, b *sideband.Broadcaster, reg *registry.Registry) {
	ch, cancel := b.Subscribe(64)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case lev, ok := <-ch:
			if !ok {
				return
			}
			reg.Emit(ctx, lifecycleToAgentEvent(lev))
		}
	}
}

func lifecycleToAgentEvent(lev sideband.LifecycleEvent) *events.AgentEvent {
	ectx := events.Context{
		AgentID:       lev.AgentID,
		SessionID:     lev.SessionID,
		WorkspacePath: lev.WorkspacePath,
		GitBranch:     lev.GitBranch,
	}
	raw := map[string]any{"source": "sideband", "terminalId": lev.TerminalID}

	switch lev.Type {
	case sideband.LifecycleStart:
		return events.New("session:start", ectx, events.SessionPayload{
			SessionID:     lev.SessionID,
			WorkspacePath: lev.WorkspacePath,
		}, raw)
	case sideband.LifecycleStop:
		return events.New("session:stop", ectx, events.SessionPayload{
			SessionID: lev.SessionID,
		}, raw)
	case sideband.LifecyclePermissionRequest:
		return events.New("permission:request", ectx, events.PermissionPayload{
			ToolName: lev.ToolName,
			Command:  inputCommand(lev.ToolInput),
		}, raw)
	default: // LifecyclePreToolUse
		return events.New("tool:start", ectx, events.ToolPayload{
			ToolName:     lev.ToolName,
			ToolCategory: adapter.Categorize(lev.ToolName),
			Input:        lev.ToolInput,
			Status:       events.ToolPending,
		}, raw)
	}
}

func inputCommand(input map[string]any) string {
	if input == nil {
		return ""
	}
	if cmd, ok := input["command"].(string); ok {
		return cmd
	}
	return ""
}

func runCheck(cmd *cobra.Command, args []string) error {
	return runCheckTo(cmd.OutOrStdout(), args)
}

func runCheckTo(out io.Writer, args []string) error {
	var p *policy.Policy
	if checkPreset != "" {
		p = policy.Preset(checkPreset)
	} else {
		workspace := checkWorkspace
		if workspace == "" {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			workspace = cfg.Workspace
		}
		loaded, err := policy.LoadWorkspace(workspace)
		if err != nil {
			return fmt.Errorf("load workspace policy: %w", err)
		}
		p = loaded
	}

	req := events.PermissionPayload{ToolName: args[0], FilePath: checkFilePath}
	if len(args) > 1 {
		req.Command = args[1]
	}

	action := policy.Evaluate(p, req)
	fmt.Fprintln(out, string(action))
	return nil
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	if bootstrapOut == "" {
		fmt.Fprint(cmd.OutOrStdout(), bootstrap.Script())
		return nil
	}
	path, err := bootstrap.WriteScript(bootstrapOut)
	if err != nil {
		return fmt.Errorf("install hook script: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Installed: %s\n", path)
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to pick a policy preset\n", cfgPath)
	fmt.Printf("  2. Drop a %s file into a workspace for per-project rules\n", policy.PolicyFileName)
	fmt.Println("  3. Run 'agentrelay serve' to start the sideband server")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Workspace: %s\n", cfg.Workspace)
	fmt.Printf("Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Policy preset: %s\n", cfg.Policy.Preset)
	if cfg.Policy.Path != "" {
		fmt.Printf("Policy file: %s\n", cfg.Policy.Path)
	} else {
		fmt.Printf("Policy file: %s (per workspace)\n", policy.PolicyPath(cfg.Workspace))
	}
	fmt.Printf("Telegram: enabled=%v\n", cfg.Notify.Telegram.Enabled)
	return nil
}
