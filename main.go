package main

import (
	"github.com/rs/zerolog/log"

	"github.com/evolutecode/leaddesk/internal/ainit"
	"github.com/evolutecode/leaddesk/internal/cmd"
)

func main() {
	log.Info().Bool("loaded", ainit.Loaded()).Msg("initializing services")
	cmd.Execute()
}
