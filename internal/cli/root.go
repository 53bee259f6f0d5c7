package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vc",
	Short: "Multi-party video conference client over a signaling relay",
	Long: `vc joins a named conference room on a signaling server and negotiates
direct media sessions with every other participant using WebRTC. The server
only relays negotiation payloads; media flows peer to peer.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
