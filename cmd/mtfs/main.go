package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"mtfs/internal/compare"
	"mtfs/internal/config"
	"mtfs/internal/hash"
	"mtfs/internal/logging"
	"mtfs/internal/progress"
	"mtfs/internal/tree"
	"mtfs/internal/walker"
)

const (
	optionNameConfig    = "config"
	optionNameChunkSize = "chunk-size"
	optionNameAlgorithm = "algorithm"
	optionNameWorkers   = "workers"
	optionNameVerbosity = "verbosity"
	optionNameOutput    = "output"
)

const version = "1.0.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mtfs",
		Short:         "Content-addressed Merkle tree indexing for directory trees",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.StringP(optionNameConfig, "c", "config.yaml", "config file path")
	flags.Int64(optionNameChunkSize, 0, "bytes per content chunk")
	flags.String(optionNameAlgorithm, "", "digest algorithm (sha256, sha512, blake2b256)")
	flags.IntP(optionNameWorkers, "w", 0, "number of concurrent file readers")
	flags.StringP(optionNameVerbosity, "v", "warning", "log verbosity (error, warning, info, debug)")

	root.AddCommand(
		newBuildCommand(),
		newStatsCommand(),
		newVerifyCommand(),
		newExportCommand(),
		newFindCommand(),
		newCompareCommand(),
	)
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString(optionNameConfig)
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.Changed(optionNameChunkSize) {
		cfg.ChunkSize, _ = flags.GetInt64(optionNameChunkSize)
	}
	if flags.Changed(optionNameAlgorithm) {
		cfg.Algorithm, _ = flags.GetString(optionNameAlgorithm)
	}
	if flags.Changed(optionNameWorkers) {
		cfg.Workers, _ = flags.GetInt(optionNameWorkers)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) logging.Logger {
	verbosity, _ := cmd.Flags().GetString(optionNameVerbosity)
	level := logrus.WarnLevel
	switch verbosity {
	case "error":
		level = logrus.ErrorLevel
	case "info":
		level = logrus.InfoLevel
	case "debug":
		level = logrus.DebugLevel
	}
	return logging.New(os.Stderr, level)
}

// buildTree scans the directory for progress totals, then builds its Merkle
// tree with a progress bar on stderr.
func buildTree(cmd *cobra.Command, directory string) (*tree.Tree, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	scan, err := walker.Scan(afero.NewOsFs(), absDirectory, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	bar := progress.New(int64(scan.Entries()))

	hasher, err := hash.New(hash.Algorithm(cfg.Algorithm))
	if err != nil {
		return nil, err
	}
	t, err := tree.New(tree.Options{
		Hasher:    hasher,
		Logger:    newLogger(cmd),
		ChunkSize: cfg.ChunkSize,
		Workers:   cfg.Workers,
		Exclude:   cfg.Exclude,
		OnEntry:   bar.Increment,
	})
	if err != nil {
		return nil, err
	}

	if _, err := t.Build(absDirectory); err != nil {
		return nil, err
	}
	bar.Finish()

	if warnings := t.Warnings(); len(warnings) > 0 {
		fmt.Fprintf(os.Stderr, "⚠ Skipped %d entries due to errors\n", len(warnings))
	}
	return t, nil
}

func printStats(t *tree.Tree) {
	stats := t.Stats()
	fmt.Printf("Total files: %d\n", stats.Files)
	fmt.Printf("Total directories: %d\n", stats.Directories)
	fmt.Printf("Total size: %s\n", humanSize(stats.TotalSize))
	fmt.Printf("Tree depth: %d\n", stats.Depth)
	fmt.Printf("Root hash: %s\n", stats.RootHash)
}

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <directory>",
		Short: "Build a Merkle tree from a directory and save it as a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := buildTree(cmd, args[0])
			if err != nil {
				return err
			}

			outputPath, _ := cmd.Flags().GetString(optionNameOutput)
			if outputPath == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				outputPath = cfg.OutputFile
			}
			if outputPath == "" {
				outputPath = filepath.Join("output", t.Stats().RootHash+".json")
			}
			if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			if err := t.Save(outputPath); err != nil {
				return err
			}

			fmt.Println("✓ Merkle tree built successfully")
			printStats(t)
			fmt.Printf("Snapshot: %s\n", outputPath)
			return nil
		},
	}
	cmd.Flags().StringP(optionNameOutput, "o", "", "snapshot output path")
	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <directory>",
		Short: "Build a Merkle tree and print its statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := buildTree(cmd, args[0])
			if err != nil {
				return err
			}
			printStats(t)
			return nil
		},
	}
}

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <snapshot.json>",
		Short: "Verify the internal hash consistency of a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tree.Load(nil, args[0])
			if err != nil {
				return err
			}
			if !t.Verify() {
				fmt.Println("Tree integrity check FAILED")
				os.Exit(1)
			}
			fmt.Println("Tree integrity verified: OK")
			return nil
		},
	}
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <directory>",
		Short: "Build a Merkle tree and print its structural JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := buildTree(cmd, args[0])
			if err != nil {
				return err
			}
			out, err := t.ExportJSON()
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func newFindCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "find <directory> <name>",
		Short: "Build a Merkle tree and look up an entry by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := buildTree(cmd, args[0])
			if err != nil {
				return err
			}
			node := t.FindNode(args[1])
			if node == nil {
				return fmt.Errorf("no entry named %q", args[1])
			}
			fmt.Printf("Name: %s\n", node.Name)
			fmt.Printf("Type: %s\n", node.Kind)
			fmt.Printf("Hash: %s\n", node.Hash)
			if node.Kind == tree.File {
				fmt.Printf("Size: %s\n", humanSize(node.Size))
				fmt.Printf("Chunks: %d\n", node.ChunkCount())
				fmt.Printf("Content hash: %s\n", node.ContentHash)
				if node.ChunkRoot != "" {
					fmt.Printf("Chunk root: %s\n", node.ChunkRoot)
				}
			} else {
				fmt.Printf("Children: %d\n", len(node.Children))
				fmt.Printf("Size: %s\n", humanSize(node.TotalSize()))
			}
			return nil
		},
	}
}

func newCompareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <snapshot.json> <directory>",
		Short: "Compare a saved snapshot against the current directory contents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := tree.Load(nil, args[0])
			if err != nil {
				return err
			}

			// Rebuild with the snapshot's algorithm and chunk size so the
			// hashes are comparable.
			cmd.Flags().Set(optionNameAlgorithm, string(saved.Algorithm()))
			cmd.Flags().Set(optionNameChunkSize, fmt.Sprint(saved.ChunkSize()))
			t, err := buildTree(cmd, args[1])
			if err != nil {
				return err
			}

			result := compare.Trees(saved, t)
			fmt.Println(compare.FormatReport(result))

			if len(t.Warnings()) > 0 {
				os.Exit(2)
			}
			if result.HasChanges() {
				os.Exit(1)
			}
			return nil
		},
	}
}

func humanSize(bytes int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
