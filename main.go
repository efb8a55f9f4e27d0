package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/battleship/assets"
	"github.com/robalobadob/battleship/internal/config"
	"github.com/robalobadob/battleship/internal/conversation"
	"github.com/robalobadob/battleship/internal/game"
	"github.com/robalobadob/battleship/internal/httpserver"
	"github.com/robalobadob/battleship/internal/store"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "battleship",
	Short: "Battleship message-game server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
		return nil
	},
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var (
	encodeShips    []int
	encodeComplete bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the message URL for a ship placement",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := game.NewGameState(encodeShips, cfg.Rules)
		if err != nil {
			return err
		}
		st.IsComplete = encodeComplete
		fmt.Fprintln(cmd.OutOrStdout(), game.EncodeWithBase(cfg.BaseURL, st))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <url>",
	Short: "Print the ship locations and completion flag carried by a message URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := game.Decode(args[0])
		if err != nil {
			return err
		}
		ships := make([]string, len(st.ShipLocations))
		for i, c := range st.ShipLocations {
			ships[i] = fmt.Sprint(c)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ships: [%s]\ncomplete: %t\n", strings.Join(ships, " "), st.IsComplete)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.Path(), "path to YAML config")
	encodeCmd.Flags().IntSliceVar(&encodeShips, "ship", nil, "ship cell (repeatable)")
	encodeCmd.Flags().BoolVar(&encodeComplete, "complete", false, "mark the board complete")
	rootCmd.AddCommand(serveCmd, encodeCmd, decodeCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var msgs conversation.Log = store.NewSQLLog(db)
	srv := httpserver.New(cfg, store.NewMemoryStore(), msgs, db)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("port", cfg.Port).Str("db", cfg.DBPath).Msg("starting battleship server")
	return srv.Run(ctx, ":"+cfg.Port)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("battleship exited")
	}
}
