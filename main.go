package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jshufro/componentgen/codegen"
	"github.com/jshufro/componentgen/config"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/project"
	"github.com/jshufro/componentgen/script"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = zap.NewNop()
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "componentgen",
	Short:         "Generate Go components from YAML manifests",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}

		zc := zap.NewProductionConfig()
		if cfg.Verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the artifacts and scripts of every component in the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := assembler(false)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			return a.Watch(ctx, cfg.ScriptNetwork(), project.DefaultDebounce)
		}
		return a.Run(ctx, cfg.ScriptNetwork())
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <manifest>...",
	Short: "Check manifests by running every generator without writing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := assembler(true)
		if err != nil {
			return err
		}
		failed := 0
		for _, path := range args {
			c, err := manifest.Load(path)
			if err == nil {
				_, err = a.GenerateComponent(c, cfg.ScriptNetwork())
			}
			if err != nil {
				failed++
				logger.Error("invalid manifest", zap.String("path", path), zap.Error(err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d manifests are invalid", failed, len(args))
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "component-info <manifest>",
	Short: "Describe a component",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := assembler(true)
		if err != nil {
			return err
		}
		c, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		g, err := a.Generator(c)
		if err != nil {
			return err
		}
		if err := g.Validate(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderInfo(c, g))
		return nil
	},
}

var scriptCmd = &cobra.Command{
	Use:   "script <manifest>",
	Short: "Print the deployment script of a component",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := assembler(true)
		if err != nil {
			return err
		}
		c, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		out, err := a.GenerateComponent(c, cfg.ScriptNetwork())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out.Script)
		return nil
	},
}

var setupArgsCmd = &cobra.Command{
	Use:   "setup-args <manifest>",
	Short: "Print the encoded setup argument of a component as hex",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := assembler(true)
		if err != nil {
			return err
		}
		c, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		encoded, err := a.SetupArgs(c, cfg.ScriptNetwork())
		if err != nil {
			return err
		}
		if encoded == nil {
			logger.Info("component has no setup", zap.String("label", c.Meta().Label))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(encoded))
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema [kind]",
	Short: "Print the manifest schema of a component kind, or write every schema with --out",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out != "" {
			if err := project.WriteSchemas(out, manifest.Kinds...); err != nil {
				return err
			}
			logger.Info("wrote schemas", zap.String("dir", out))
			return nil
		}
		if len(args) == 0 {
			for _, kind := range manifest.Kinds {
				fmt.Fprintln(cmd.OutOrStdout(), kind)
			}
			return nil
		}
		data, err := manifest.Schema(manifest.Kind(args[0]))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// assembler opens the configured project. Outside a project only generate
// fails; the other commands work on single manifests.
func assembler(standalone bool) (*project.Assembler, error) {
	oracles, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	dir, err := filepath.Abs(cfg.Project)
	if err != nil {
		return nil, err
	}
	opts := []project.Option{
		project.WithLogger(logger),
		project.WithParallelism(cfg.Parallelism),
		project.WithCacheSize(cfg.CacheSize),
		project.WithCodegenOptions(codegen.WithOracles(oracles)),
	}
	if standalone {
		return project.OpenDir(dir, opts...)
	}
	return project.NewAssembler(dir, opts...)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./componentgen.yaml)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.StringP("project", "p", ".", "project directory")
	flags.StringP("network", "n", string(script.NetworkLocal), "network to generate scripts for (local or ic)")
	flags.Int("parallelism", 0, "components generated at once (default is the number of CPUs)")
	for _, name := range []string{"verbose", "project", "network", "parallelism"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	generateCmd.Flags().BoolP("watch", "w", false, "regenerate when manifests or interfaces change")
	schemaCmd.Flags().StringP("out", "o", "", "directory to write every schema to")

	rootCmd.AddCommand(generateCmd, validateCmd, infoCmd, scriptCmd, setupArgsCmd, schemaCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
