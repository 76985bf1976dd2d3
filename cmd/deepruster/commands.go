package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/OmBiradar/deepruster/app"
	"github.com/OmBiradar/deepruster/config"
)

// loadConfig reads the config file and environment, then applies the
// flags the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if verbose {
		cfg.Logging.Console = true
		cfg.Logging.Level = "debug"
	}
	if changed("toolchain") {
		cfg.Toolchain.Name = toolchainName
	}
	if changed("task") {
		cfg.Loop.Task = task
	}
	if changed("project") {
		cfg.Loop.Project = project
		// An explicit project beats a task from the file or environment.
		if !changed("task") {
			cfg.Loop.Task = ""
		}
	}
	if changed("model") {
		cfg.Model.Name = modelName
	}
	if changed("backend") {
		cfg.Model.Backend = backend
	}
	if changed("base-url") {
		cfg.Model.BaseURL = baseURL
	}
	if changed("max-iterations") {
		cfg.Loop.MaxIterations = maxIterations
	}
	if changed("timeout") {
		cfg.Model.Timeout = modelTimeout.String()
	}
	if changed("output") {
		cfg.Output.Dir = outputDir
	}
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Compiled after %d iteration(s): %s\n", summary.Iterations, summary.SourcePath)
	for _, line := range summary.Lines() {
		fmt.Fprintln(out, line)
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	// Start from defaults, not the existing file, so --force resets it.
	cfg := config.DefaultConfig()
	applyFlags(cmd, cfg)
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	profile, details, err := a.Probe(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Machine          : %s\n", details.Machine)
	fmt.Fprintf(out, "Architecture     : %s\n", details.Architecture)
	fmt.Fprintf(out, "Operating system : %s\n", details.OSName)
	fmt.Fprintf(out, "OS version       : %s\n", details.OSVersion)
	fmt.Fprintf(out, "Compiler         : %s (%s)\n", profile.ID(), details.CompilerPath)
	fmt.Fprintf(out, "Compiler version : %s\n", details.CompilerVersion)
	return nil
}
