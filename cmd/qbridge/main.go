package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jward/qbridge"
)

func main() {
	root := newRootCmd(newConfig("."))
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// app carries the state shared by every command of one invocation.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	a := &app{v: v}
	root := &cobra.Command{
		Use:   "qbridge",
		Short: "Generate cxx-qt property code from bridge declarations",
		Long: `qbridge indexes #[cxx_qt::bridge] modules with tree-sitter and Risor
scripts, generates the getter, setter and notify signal code for every
#[qproperty], and stores the result in a SQLite database for queries.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfig(v); err != nil {
				return err
			}
			if err := validateFormat(v.GetString(formatKey)); err != nil {
				return err
			}
			a.logger = configureLogger(v)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("db", "", "database path (default: .qbridge/index.db relative to repo root)")
	bindFlag(v, pf.Lookup("db"), dbKey)
	pf.String("format", defaultFormat, "output format: json|text|yaml")
	bindFlag(v, pf.Lookup("format"), formatKey)
	pf.String("scripts-dir", "", "load scripts from disk path instead of embedded")
	bindFlag(v, pf.Lookup("scripts-dir"), scriptsDirKey)
	pf.BoolP("verbose", "v", false, "log at debug level")
	bindFlag(v, pf.Lookup("verbose"), logVerboseKey)

	root.AddCommand(
		a.generateCmd(),
		a.objectsCmd(),
		a.propertiesCmd(),
		a.signalsCmd(),
		a.sourceCmd(),
		a.qualifyCmd(),
	)
	return root
}

// output writes result to the command's stdout in the configured format.
func (a *app) output(cmd *cobra.Command, result CLIResult) error {
	return writeResult(cmd.OutOrStdout(), a.v.GetString(formatKey), result)
}

func (a *app) generateCmd() *cobra.Command {
	var force, clean bool
	cmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Index bridge files and generate property code",
		Long: `Extracts every cxx-qt bridge under path (default: current directory) and
generates the code of objects whose declarations changed since the last run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd, args, force, clean)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "regenerate every object even when its inputs are unchanged")
	cmd.Flags().BoolVar(&clean, "clean", false, "delete the database and index from scratch")
	cmd.Flags().Int("parallelism", 0, "number of concurrent workers (default: number of CPUs)")
	bindFlag(a.v, cmd.Flags().Lookup("parallelism"), parallelismKey)
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, args []string, force, clean bool) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	dbPath := a.resolveDBPath(findRepoRoot(targetDir))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	existed := fileExists(dbPath)
	if clean && existed {
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("removing database for --clean: %w", err)
		}
		existed = false
	}

	opts := []qbridge.Option{
		qbridge.WithLogger(a.logger),
		qbridge.WithForce(force),
		qbridge.WithParallelism(a.v.GetInt(parallelismKey)),
	}
	engine, err := qbridge.New(dbPath, a.v.GetString(scriptsDirKey), opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	// Extraction results of other scripts are not reusable.
	if existed && engine.ScriptsChanged() {
		a.logger.Info("scripts changed, reindexing", "db", dbPath)
		engine.Close()
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("removing stale database: %w", err)
		}
		if engine, err = qbridge.New(dbPath, a.v.GetString(scriptsDirKey), opts...); err != nil {
			return fmt.Errorf("creating engine: %w", err)
		}
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.IndexDirectory(ctx, targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	stats, err := engine.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generating: %w", err)
	}
	files, err := engine.Store().Files()
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Generated %s in %s\n", targetDir, time.Since(start).Round(time.Millisecond))
	return a.output(cmd, CLIResult{
		Command: "generate",
		Results: CLIGenerate{
			Root:      targetDir,
			Database:  dbPath,
			Files:     len(files),
			Objects:   stats.Objects,
			Generated: stats.Generated,
			Skipped:   stats.Skipped,
		},
	})
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the configured database path or the default under
// repoRoot.
func (a *app) resolveDBPath(repoRoot string) string {
	if db := a.v.GetString(dbKey); db != "" {
		if filepath.IsAbs(db) {
			return db
		}
		return filepath.Join(repoRoot, db)
	}
	return filepath.Join(repoRoot, ".qbridge", "index.db")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
