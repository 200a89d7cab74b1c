package cmd

import (
	"fmt"

	"github.com/reqdrop/reqdrop/internal/version"
	"github.com/spf13/cobra"
)

func NewVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.GetVersionInfo()
			fmt.Printf("reqdrop %s (%s) %s %s/%s\n",
				info.Version, info.CommitSHA, info.GoVersion, info.Os, info.Arch)
		},
	}
}
