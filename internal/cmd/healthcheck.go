package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evolutecode/leaddesk/internal/config"
	"github.com/evolutecode/leaddesk/internal/healthcheck"
)

var (
	host           string
	useConfig      bool
	timeoutSeconds int
	ignoreBadTLS   bool
)

func init() {
	healthCheckCmd.Flags().StringVar(&host, "host", "", "base URL of the instance to check")
	healthCheckCmd.Flags().BoolVarP(&useConfig, "useconfig", "c", false, "build the URL from the config file")
	healthCheckCmd.Flags().IntVarP(&timeoutSeconds, "timeout", "t", 3, "timeout (in seconds)")
	healthCheckCmd.Flags().BoolVar(&ignoreBadTLS, "ignore-bad-tls", false, "ignore bad certificates for HTTPS")
}

// hostFromConfig builds the local URL the server listens on.
func hostFromConfig() string {
	config.Lock.RLock()
	defer config.Lock.RUnlock()

	scheme := "http"
	if viper.GetBool(config.KeyTLSEnabled) {
		scheme = "https"
	}

	if viper.GetBool(config.KeyHealthcheckIgnoreBadTLS) {
		ignoreBadTLS = true
	}

	port := viper.GetInt(config.KeyServerPort)
	if port == 0 {
		port = config.DefaultPort
	}

	return fmt.Sprintf("%s://localhost:%d", scheme, port)
}

var healthCheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "checks the health of leaddesk",
	Long: "checks the health of a running leaddesk instance by asking for its API banner. This is best used as a " +
		"defined healthcheck inside a docker container",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !useConfig && host == "" {
			return errors.New("leaddesk: healthcheck: one of --useconfig or --host must be specified")
		}

		hostToCheck := host
		if useConfig {
			if err := config.Init(); err != nil {
				log.Error().Err(err).Msg("could not read config")
			}
			hostToCheck = hostFromConfig()
		}

		err := healthcheck.CheckHealth(cmd.Context(), hostToCheck, healthcheck.Options{
			Timeout:      time.Duration(timeoutSeconds) * time.Second,
			IgnoreBadTLS: ignoreBadTLS,
		})
		if err != nil {
			log.Error().Err(err).Str("host", hostToCheck).Msg("health check failed")
			return err
		}

		log.Info().Str("host", hostToCheck).Msg("health check ok")
		return nil
	},
}
