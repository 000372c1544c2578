// Regenerar docs: swag init -g cmd/api/main.go -o docs
//
// @title Consent Records API
// @version 1.0
// @description Historia clínica compartida por consentimiento del paciente.
// @BasePath /api
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "consent-records",
		Short:        "Historia clínica compartida por consentimiento",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
