package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sectools/secrules/internal/server"
	"github.com/sectools/secrules/internal/version"
)

func main() {
	// Setup logger
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:     "secrulesd",
		Short:   "SecRules rule store server",
		Version: version.Detailed(),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := &server.Config{
				HTTP: server.HTTPConfig{
					Addr:     viper.GetString("bind"),
					CertFile: viper.GetString("cert"),
					KeyFile:  viper.GetString("key"),
				},
				Control: server.ControlConfig{
					Socket: viper.GetString("socket"),
				},
				Store: server.StoreConfig{
					MaxRules:  viper.GetInt("max_rules"),
					ExportCap: viper.GetInt("export_cap"),
				},
				DBPath: viper.GetString("db"),
			}

			s, err := server.New(config)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			defer slog.Info("Bye!")
			return s.Start(cmd.Context())
		},
	}

	flags := rootCmd.Flags()
	flags.SortFlags = false
	flags.StringP("bind", "b", server.DefaultAddr, "Address to bind the HTTP server")
	flags.StringP("socket", "s", server.DefaultSocket, "Path of the control socket")
	flags.StringP("db", "d", ":memory:", "Path of the audit database")
	flags.String("cert", "", "Path to the certificate file")
	flags.String("key", "", "Path to the key file")
	flags.Int("max-rules", 0, "Global rule capacity (0 for default)")
	flags.Int("export-cap", 0, "Export size cap in bytes (0 for default)")

	viper.SetEnvPrefix("secrules")
	viper.AutomaticEnv()
	viper.BindPFlag("bind", flags.Lookup("bind"))
	viper.BindPFlag("socket", flags.Lookup("socket"))
	viper.BindPFlag("db", flags.Lookup("db"))
	viper.BindPFlag("cert", flags.Lookup("cert"))
	viper.BindPFlag("key", flags.Lookup("key"))
	viper.BindPFlag("max_rules", flags.Lookup("max-rules"))
	viper.BindPFlag("export_cap", flags.Lookup("export-cap"))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
