package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/clonectl/internal/consts"
)

var rootCmd = &cobra.Command{
	Use:   "clonectl",
	Short: "Snapshot and clone iLO server configuration.",
	Long: `clonectl captures the configuration of an HPE iLO management controller
into a portable document and reconciles other controllers to it.`,
	SilenceUsage: true,
}

var verboseCount int

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// PTerm output to Stderr (to keep Stdout clean for piping)
	pterm.SetDefaultOutput(os.Stderr)
	pterm.Success.Writer = os.Stderr
	pterm.Info.Writer = os.Stderr
	pterm.Error.Writer = os.Stderr
	pterm.Warning.Writer = os.Stderr
	pterm.DefaultHeader.Writer = os.Stderr

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", consts.ConfigFileName, "config file path")
	flags.CountVarP(&verboseCount, "verbose", "v", "Increase verbosity level (-v, -vv, -vvv)")

	// Bağlantı ayarları; boş bırakılırsa yapılandırma ve CLONECTL_* değişkenleri kullanılır.
	flags.String("address", "", "controller address (host or https URL)")
	flags.StringP("username", "u", "", "controller user")
	flags.StringP("password", "p", "", "controller password")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	flags.String("metrics-file", "", "write Prometheus textfile metrics to this path")
}
