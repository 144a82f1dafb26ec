package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dreschagin/fastqc-analyzer/pkg/config"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// Handler собирает команды CLI
type Handler struct {
	version  string
	logLevel string

	cfg     *config.Config
	logger  *logger.Logger
	rootCmd *cobra.Command
}

// New создает CLI с командами analyze и version
func New(version string) *Handler {
	h := &Handler{version: version}
	h.setupCommands()
	return h
}

func (h *Handler) setupCommands() {
	h.rootCmd = &cobra.Command{
		Use:           "fastqc-analyze",
		Short:         "Extract and aggregate FastQC/MultiQC quality metrics",
		Long:          "Parses FastQC and MultiQC reports and prints an aggregated quality summary",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return h.loadConfig()
		},
	}

	h.rootCmd.PersistentFlags().StringVar(&h.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	h.rootCmd.AddCommand(h.analyzeCmd())
	h.rootCmd.AddCommand(h.versionCmd())
}

func (h *Handler) loadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	h.cfg = cfg

	level := h.logLevel
	if level == "" {
		// stdout занят результатом, поэтому по умолчанию логируем только ошибки
		level = "error"
	}
	h.logger = logger.New(level)
	return nil
}

// Command возвращает корневую команду
func (h *Handler) Command() *cobra.Command {
	return h.rootCmd
}

// Execute запускает CLI
func (h *Handler) Execute() error {
	return h.rootCmd.Execute()
}

// Run - точка входа для main
func Run(version string) {
	if err := New(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
