package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clinic",
	Short: "Clinic backend",
	Long: `Clinic backend for appointment booking and patient records.

Functions:
- Serve the HTTP API for users, doctor schedules, appointments and lab results
- Run the background worker that confirms booked appointments
- Seed the database with a superadmin and demo data`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
