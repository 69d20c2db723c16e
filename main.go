package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"library-backend/internal/platform/config"
)

// @title       Library API
// @version     1.0
// @description Catalog, users and borrowing for a single-branch library.
// @BasePath    /
// @securityDefinitions.apikey BearerAuth
// @in          header
// @name        Authorization

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "library-backend",
		Short:         "Library management backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newCreateLibrarianCmd(&configPath),
	)
	return root
}
