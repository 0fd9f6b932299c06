package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/qbridge"
	"github.com/jward/qbridge/internal/cxxtype"
	"github.com/jward/qbridge/internal/parser"
	"github.com/jward/qbridge/internal/syntax"
)

// openEngine opens the existing database for the current repository.
func (a *app) openEngine() (*qbridge.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := a.resolveDBPath(findRepoRoot(cwd))
	if !fileExists(dbPath) {
		return nil, fmt.Errorf("database not found: %s (run 'qbridge generate' first)", dbPath)
	}
	return qbridge.New(dbPath, a.v.GetString(scriptsDirKey), qbridge.WithLogger(a.logger))
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

func parseSort(field, order string) (qbridge.Sort, error) {
	s := qbridge.Sort{Field: qbridge.SortField(field), Order: qbridge.SortOrder(order)}
	switch s.Field {
	case "", qbridge.SortByName, qbridge.SortByFile, qbridge.SortByPropertyCount:
	default:
		return s, fmt.Errorf("invalid sort %q: must be name, file or property_count", field)
	}
	switch s.Order {
	case "", qbridge.Asc, qbridge.Desc:
	default:
		return s, fmt.Errorf("invalid order %q: must be asc or desc", order)
	}
	return s, nil
}

func toCLIObject(r qbridge.QObjectResult) CLIObject {
	return CLIObject{
		ID:            r.ID,
		Name:          r.Name,
		RustStruct:    r.RustStruct,
		Module:        r.Module,
		Namespace:     r.Namespace,
		File:          r.FilePath,
		Line:          r.Line,
		PropertyCount: r.PropertyCount,
		Generated:     r.Generated,
	}
}

func (a *app) objectsCmd() *cobra.Command {
	var name, module, path, sortField, order string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List indexed QObjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sort, err := parseSort(sortField, order)
			if err != nil {
				return err
			}
			var filter qbridge.QObjectFilter
			if name != "" {
				filter.Name = &name
			}
			if module != "" {
				filter.Module = &module
			}
			if path != "" {
				abs, err := resolveFilePath(path)
				if err != nil {
					return err
				}
				filter.PathPrefix = &abs
			}

			engine, err := a.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			res, err := engine.Query().QObjects(filter, sort, qbridge.Pagination{Offset: offset, Limit: limit})
			if err != nil {
				return err
			}
			objs := make([]CLIObject, len(res.Items))
			for i, r := range res.Items {
				objs[i] = toCLIObject(r)
			}
			total := res.TotalCount
			return a.output(cmd, CLIResult{Command: "objects", Results: objs, TotalCount: &total})
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "only objects with this name")
	f.StringVar(&module, "module", "", "only objects of this bridge module")
	f.StringVar(&path, "path", "", "only objects in files under this path")
	f.StringVar(&sortField, "sort", "", "sort field: name|file|property_count")
	f.StringVar(&order, "order", "asc", "sort order: asc|desc")
	f.IntVar(&limit, "limit", 50, "pagination limit (max 500)")
	f.IntVar(&offset, "offset", 0, "pagination offset")
	return cmd
}

// findObject resolves an object name to its detail. file narrows the
// search when the name is declared in more than one file.
func findObject(engine *qbridge.Engine, name, file string) (*qbridge.QObjectDetail, error) {
	q := engine.Query()
	objs, err := q.QObjectByName(name)
	if err != nil {
		return nil, err
	}

	var matches []*qbridge.QObjectDetail
	for _, o := range objs {
		d, err := q.QObjectDetail(o.ID)
		if err != nil {
			return nil, err
		}
		if d == nil || (file != "" && d.QObject.FilePath != file) {
			continue
		}
		matches = append(matches, d)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("qobject %q not found", name)
	case 1:
		return matches[0], nil
	}
	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = m.QObject.FilePath
	}
	return nil, fmt.Errorf("qobject %q is declared in %s; use --file", name, strings.Join(files, ", "))
}

// objectCmd builds a command taking one object name.
func (a *app) objectCmd(use, short string, run func(cmd *cobra.Command, engine *qbridge.Engine, d *qbridge.QObjectDetail) error) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   use + " <object>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				abs, err := resolveFilePath(file)
				if err != nil {
					return err
				}
				file = abs
			}
			engine, err := a.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			d, err := findObject(engine, args[0], file)
			if err != nil {
				return err
			}
			return run(cmd, engine, d)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file declaring the object")
	return cmd
}

func (a *app) propertiesCmd() *cobra.Command {
	return a.objectCmd("properties", "List the properties of a QObject and their derived names",
		func(cmd *cobra.Command, _ *qbridge.Engine, d *qbridge.QObjectDetail) error {
			props := make([]CLIProperty, len(d.Properties))
			for i, p := range d.Properties {
				ty, err := parser.ParseType(cmd.Context(), p.TypeExpr)
				if err != nil {
					return fmt.Errorf("property %s: %w", p.Name, err)
				}
				props[i] = CLIProperty{
					Name:   p.Name,
					Type:   p.TypeExpr,
					Getter: p.Names.Getter.Cpp,
					Setter: p.Names.Setter.Cpp,
					Notify: p.Names.Notify.Cpp,
					Unsafe: cxxtype.IsUnsafe(ty),
					Line:   p.Line,
				}
			}
			return a.output(cmd, CLIResult{Command: "properties", Results: props})
		})
}

func (a *app) signalsCmd() *cobra.Command {
	return a.objectCmd("signals", "List the generated signals of a QObject",
		func(cmd *cobra.Command, _ *qbridge.Engine, d *qbridge.QObjectDetail) error {
			if !d.QObject.Generated {
				return fmt.Errorf("%s: %w", d.QObject.Name, qbridge.ErrNotGenerated)
			}
			signals := make([]CLISignal, len(d.Signals))
			for i, s := range d.Signals {
				signals[i] = CLISignal{RustName: s.RustName, CppName: s.CppName, Origin: s.Origin}
			}
			return a.output(cmd, CLIResult{Command: "signals", Results: signals})
		})
}

func (a *app) sourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "source <file>",
		Short: "Print the generated bridge code of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveFilePath(args[0])
			if err != nil {
				return err
			}
			engine, err := a.openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			src, err := engine.Query().BridgeSource(path)
			if err != nil {
				return err
			}
			if src == "" {
				return fmt.Errorf("no bridge indexed in %s", path)
			}
			return a.output(cmd, CLIResult{Command: "source", Results: CLISource{File: path, Source: src}})
		},
	}
}

func (a *app) qualifyCmd() *cobra.Command {
	var module string
	var objects []string
	cmd := &cobra.Command{
		Use:   "qualify <type>",
		Short: "Qualify a type for use outside the bridge module",
		Long: `Prints the type expression as generated code outside the bridge module
spells it, and whether declarations carrying it must be unsafe.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ty, err := parser.ParseType(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			mappings := make(cxxtype.QualifiedMappings, len(objects))
			for _, o := range objects {
				mappings[o] = syntax.NewPath(module, o)
			}
			return a.output(cmd, CLIResult{
				Command: "qualify",
				Results: CLIQualified{
					Input:     args[0],
					Qualified: cxxtype.Qualify(ty, mappings).String(),
					Unsafe:    cxxtype.IsUnsafe(ty),
				},
			})
		},
	}
	cmd.Flags().StringVar(&module, "module", "qobject", "bridge module of the objects given with --object")
	cmd.Flags().StringSliceVar(&objects, "object", nil, "QObject declared in the bridge module (repeatable)")
	return cmd
}
