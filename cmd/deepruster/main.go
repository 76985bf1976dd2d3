package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OmBiradar/deepruster/config"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// run flags
	task          string
	project       int
	modelName     string
	backend       string
	baseURL       string
	toolchainName string
	maxIterations int
	modelTimeout  time.Duration
	outputDir     string

	// init flags
	force bool
)

var rootCmd = &cobra.Command{
	Use:   "deepruster",
	Short: "Generate a program with a local model and fix it until it compiles",
	Long: `deepruster asks a language model for a program, compiles it, and feeds
the compiler errors back to the model until the program compiles cleanly.

Every iteration is kept as generated_code/main_<n>.rs and the run is logged
to deepruster.log.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runCmd runs the correction loop.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate and correct a program until it compiles",
	Long: `Runs the generate, compile and correct loop for one task.

Examples:
  deepruster run
  deepruster run --project 4
  deepruster run --task "a program that prints prime numbers below 100" --max-iterations 5
  deepruster run --backend openai --base-url http://localhost:11434 --model qwen2.5-coder`,
	Args: cobra.NoArgs,
	RunE: runLoop,
}

// probeCmd prints the detected environment.
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Detect the machine, architecture and compiler version",
	Args:  cobra.NoArgs,
	RunE:  runProbe,
}

// projectsCmd lists the built-in task ideas.
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the built-in project ideas",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for i, p := range config.Projects {
			marker := " "
			if i == config.DefaultProject {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %2d  %s\n", marker, i, p)
		}
	},
}

// initCmd writes a starter config file.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the config file",
	Long: `Writes the built-in defaults to the path given by --config so they can
be edited. --toolchain is honoured.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "mirror the log to stderr")
	rootCmd.PersistentFlags().StringVar(&toolchainName, "toolchain", "", "compiler toolchain (rustc, gcc, go)")

	runCmd.Flags().StringVarP(&task, "task", "t", "", "free-text task, overrides --project")
	runCmd.Flags().IntVarP(&project, "project", "p", config.DefaultProject, "index of a built-in project (see 'deepruster projects')")
	runCmd.Flags().StringVarP(&modelName, "model", "m", "", "model name")
	runCmd.Flags().StringVar(&backend, "backend", "", "model backend (gollm, langchain, openai)")
	runCmd.Flags().StringVar(&baseURL, "base-url", "", "model server URL")
	runCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "stop after this many failed compiles, 0 for no limit")
	runCmd.Flags().DurationVar(&modelTimeout, "timeout", 0, "per-request model timeout, 0 for none")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for generated sources")

	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	rootCmd.AddCommand(runCmd, probeCmd, projectsCmd, initCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
