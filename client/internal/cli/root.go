package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pohaoc29/GroceryShopperAI/client/internal/api"
	"github.com/pohaoc29/GroceryShopperAI/client/internal/config"
	"github.com/pohaoc29/GroceryShopperAI/client/internal/session"
)

// runtime is the state the root command prepares for its subcommands.
type runtime struct {
	// flags
	cfgPath  string
	server   string
	room     int64
	logLevel string

	cfg     *config.Config
	level   slog.LevelVar
	store   *session.SQLiteStore
	session *session.State
	api     *api.Client
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:   "grocerychat",
		Short: "Terminal client for the GroceryShopperAI group chat",
		Long: `grocerychat talks to a GroceryShopperAI backend: log in once, and the
session is kept in a local SQLite file so later commands and chat sessions
resume without logging in again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return rt.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&rt.cfgPath, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.StringVar(&rt.server, "server", "", "backend base URL, overrides client.server_url")
	pf.Int64Var(&rt.room, "room", 0, "room id, overrides client.room_id (0 is the global feed)")
	pf.StringVar(&rt.logLevel, "log-level", "", "debug | info | warn | error")

	root.AddCommand(
		newSignupCmd(rt),
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newWhoamiCmd(rt),
		newHistoryCmd(rt),
		newSendCmd(rt),
		newRoomsCmd(rt),
		newChatCmd(rt),
	)
	return root
}

// Execute runs the command tree and reports errors on stderr.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func (rt *runtime) setup(cmd *cobra.Command) error {
	cfg, err := rt.loadConfig(cmd)
	if err != nil {
		return err
	}
	rt.cfg = cfg

	rt.level.Set(cfg.Client.Level())
	rt.logTo(cmd.ErrOrStderr())
	slog.Debug("config loaded",
		"server_url", cfg.Client.ServerURL,
		"room_id", cfg.Client.RoomID,
		"session_path", cfg.Client.SessionPath)

	store, err := session.OpenSQLite(cfg.Client.SessionPath)
	if err != nil {
		return err
	}
	rt.store = store

	rt.session, err = session.New(store)
	if err != nil {
		return err
	}
	rt.api, err = api.New(cfg.Client, rt.session)
	return err
}

func (rt *runtime) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(rt.cfgPath)
	} else {
		rt.cfgPath = config.DefaultPath()
		cfg, err = config.LoadOrDefault(rt.cfgPath)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Client.ServerURL = rt.server
	}
	if flags.Changed("room") {
		cfg.Client.RoomID = rt.room
	}
	if flags.Changed("log-level") {
		cfg.Client.LogLevel = rt.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logTo installs the JSON handler writing to w as the default logger.
func (rt *runtime) logTo(w io.Writer) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: &rt.level})))
}

func (rt *runtime) close() error {
	if rt.store == nil {
		return nil
	}
	err := rt.store.Close()
	rt.store = nil
	return err
}
