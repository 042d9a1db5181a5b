package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "account"

var rootCmd = &cobra.Command{
	Use:   "ms-account",
	Short: "Web account service",
	Long:  `A web account service providing registration, login, email confirmation and password reset over HTTP, with a gRPC health endpoint.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
