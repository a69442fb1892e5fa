package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deerun/internal/infrastructure/config"
	"github.com/YoshitsuguKoike/deerun/internal/infrastructure/di"
	"github.com/YoshitsuguKoike/deerun/internal/interface/cli/common"
)

// container and logBuf live for one command invocation
var (
	container *di.Container
	logBuf    *common.LogBuffer
)

// NewRoot builds the deerun command tree
func NewRoot() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "deerun",
		Short:         "deerun orchestrates AI coding-agent jobs against isolated working copies",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsContainer(cmd.Name()) {
				return nil
			}

			logBuf = common.NewLogBuffer()

			cfg, err := config.Load(configPath)
			if err != nil {
				logBuf.Flush(os.Stderr, common.LogLevelInfo)
				return err
			}

			c, err := di.NewContainer(cfg, logBuf)
			if err != nil {
				logBuf.Flush(os.Stderr, common.LogLevelInfo)
				return err
			}
			container = c
			logBuf.Flush(os.Stderr, common.ParseLogLevel(cfg.StderrLevel))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if container == nil {
				return nil
			}
			err := container.Close()
			container = nil
			return err
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to deerun.yaml")

	cmd.AddCommand(newTriggerCmd())
	cmd.AddCommand(newApproveCmd())
	cmd.AddCommand(newRejectCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newInputCmd())
	cmd.AddCommand(newLogCmd())
	cmd.AddCommand(newRecoverCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// skipsContainer lists commands that run without the full object graph
func skipsContainer(name string) bool {
	switch name {
	case "version", "help", "completion":
		return true
	}
	return false
}
