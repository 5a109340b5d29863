package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/valet/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the valet version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("valet version %s\n", version.Get())
	},
}
