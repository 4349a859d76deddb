package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dIRC/cmd/bench"
	"github.com/ValentinKolb/dIRC/cmd/serve"
	cmdUtil "github.com/ValentinKolb/dIRC/cmd/util"
	"github.com/ValentinKolb/dIRC/irc/server"
	"github.com/spf13/cobra"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dirc",
		Short: "IRC server",
		Long: fmt.Sprintf(`dIRC (%s)

A small IRC server written in Go. Channels and nicknames live in
prefix trees guarded by a global lock plus one lock per entry, so
operations on different channels run in parallel.`, server.Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dIRC",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(server.Version)
		},
	}
)

// initConfig loads .env files and environment variables before any command runs
var initConfig = cmdUtil.InitConfig

func init() {
	// initialize viper (once for every subcommand)
	cobra.OnInitialize(func() { initConfig() })

	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
