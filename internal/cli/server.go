package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goMarketd/internal/config"
	"github.com/LeJamon/goMarketd/internal/di"
	"github.com/LeJamon/goMarketd/internal/server"
)

var (
	// Server flags
	listenAddr string
)

// serverCmd represents the server command (default action)
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the marketplace daemon",
	Long: `Start the marketd server which provides:
- HTTP JSON-RPC API endpoints
- WebSocket server for real-time market event subscriptions
- Health check endpoint
- Persistent market state and optional SQL sale history

This is the default command when no subcommand is specified.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Set server as the default command
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serverCmd.RunE(cmd, args)
	}

	// Server-specific flags
	serverCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address override (default from config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	container := di.New()
	provider := di.NewProvider(container, cfg)
	if err := provider.RegisterAll(); err != nil {
		return fmt.Errorf("register services: %w", err)
	}
	if err := provider.Activate(); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	defer container.Close()

	log, err := di.Logger(container)
	if err != nil {
		return err
	}
	defer log.Sync()

	rpcSrv, err := di.RPCServer(container)
	if err != nil {
		return err
	}
	wsSrv, err := di.WSServer(container)
	if err != nil {
		return err
	}
	pub, err := di.Publisher(container)
	if err != nil {
		return err
	}

	if !quiet {
		fmt.Println("Starting marketd - marketplace daemon")
		fmt.Printf("  - HTTP JSON-RPC: http://%s/rpc\n", displayAddr(cfg.Server.Addr))
		if cfg.Server.WSAddr != "" {
			fmt.Printf("  - WebSocket:     ws://%s/\n", displayAddr(cfg.Server.WSAddr))
		} else {
			fmt.Printf("  - WebSocket:     ws://%s/ws\n", displayAddr(cfg.Server.Addr))
		}
		fmt.Printf("  - Health Check:  http://%s/health\n", displayAddr(cfg.Server.Addr))
		fmt.Printf("  - Storage:       %s", cfg.Storage.Backend)
		if cfg.Storage.Path != "" {
			fmt.Printf(" (%s)", cfg.Storage.Path)
		}
		fmt.Println()
		if cfg.History.Enabled {
			fmt.Printf("  - Sale history:  %s\n", cfg.History.Driver)
		}
	}

	srv := server.New(cfg, log, rpcSrv, wsSrv, pub)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// displayAddr rewrites a bare ":port" listen address into something a
// client can paste.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
