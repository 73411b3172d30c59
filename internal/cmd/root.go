package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/db/sqlite"
	"github.com/evolutecode/leaddesk/internal/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCheckCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(initConfigCmd)
}

var rootCmd = &cobra.Command{
	Use:   "leaddesk",
	Short: "leaddesk collects contact requests and gives staff a panel to follow them up",
	Run: func(cmd *cobra.Command, args []string) {
		server.RunServer()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the web server (the default)",
	Run: func(cmd *cobra.Command, args []string) {
		server.RunServer()
	},
}

// openStore reads configuration and opens the database for the offline commands. The caller closes the store.
func openStore() (*sqlite.SQLite, error) {
	err := config.Init()
	var fileNotFoundError viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &fileNotFoundError) {
		return nil, err
	}

	database, err := sqlite.NewSQLiteFromConfig()
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	return database, nil
}

func openVerifier() (*account.Verifier, *sqlite.SQLite, error) {
	database, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return account.NewVerifierFromConfig(database), database, nil
}

func closeStore(database *sqlite.SQLite) {
	if err := database.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing database")
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		os.Exit(1)
	}
}
