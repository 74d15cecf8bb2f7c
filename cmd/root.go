package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/BioHazard786/pastedrop/internal/logging"
	"github.com/BioHazard786/pastedrop/internal/ui"
	"github.com/BioHazard786/pastedrop/internal/version"
	"github.com/spf13/cobra"
)

var flagDebug bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pastedrop",
	Short: "Serverless peer-to-peer file transfer over WebRTC with copy-paste signaling",
	Long: `pastedrop sends files directly between two machines over a WebRTC data channel.
There is no signaling server: each side copies its session description to the
other by hand (chat, email, anything), then files stream peer to peer.`,
	Version: version.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(flagDebug)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}
