package qbridge

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jward/qbridge/internal/cxxtype"
	"github.com/jward/qbridge/internal/generator"
	"github.com/jward/qbridge/internal/naming"
	"github.com/jward/qbridge/internal/store"
	"github.com/jward/qbridge/internal/syntax"
)

// GenerateStats summarizes one Generate pass.
type GenerateStats struct {
	Objects   int `json:"objects" yaml:"objects"`
	Generated int `json:"generated" yaml:"generated"`
	Skipped   int `json:"skipped" yaml:"skipped"`
}

// generateJob is the extracted input of one object.
type generateJob struct {
	bridge   *store.Bridge
	object   *store.QObject
	siblings []*store.QObject
	props    []*store.Property
	signals  []*store.DeclaredSignal
	hash     string
}

// Generate runs the property generators for every indexed QObject whose
// inputs changed since its output was last stored. Objects are generated
// concurrently; their output is committed in one transaction, so a failed
// pass leaves every object's previous output in place.
func (e *Engine) Generate(ctx context.Context) (GenerateStats, error) {
	var stats GenerateStats

	jobs, err := e.generateJobs()
	if err != nil {
		return stats, err
	}
	stats.Objects = len(jobs)

	var pending []*generateJob
	for _, job := range jobs {
		if !e.force && job.object.GeneratedHash == job.hash {
			stats.Skipped++
			continue
		}
		pending = append(pending, job)
	}

	gens := make([]*store.Generated, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, job := range pending {
		g.Go(func() error {
			gen, err := e.generateObject(gctx, job)
			if err != nil {
				return err
			}
			gens[i] = gen
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if len(gens) > 0 {
		if err := e.store.CommitGenerated(gens); err != nil {
			return stats, fmt.Errorf("qbridge: %w", err)
		}
	}
	stats.Generated = len(gens)
	e.storeScriptsHash()

	e.logger.Info("generated", "objects", stats.Objects, "generated", stats.Generated, "skipped", stats.Skipped)
	return stats, nil
}

// generateJobs loads the extracted input of every object.
func (e *Engine) generateJobs() ([]*generateJob, error) {
	objs, err := e.store.QObjects()
	if err != nil {
		return nil, fmt.Errorf("qbridge: list qobjects: %w", err)
	}

	bridges := make(map[int64]*store.Bridge)
	siblings := make(map[int64][]*store.QObject)
	jobs := make([]*generateJob, 0, len(objs))
	for _, obj := range objs {
		br, ok := bridges[obj.BridgeID]
		if !ok {
			if br, err = e.store.BridgeByID(obj.BridgeID); err != nil {
				return nil, fmt.Errorf("qbridge: bridge of %s: %w", obj.Name, err)
			}
			if br == nil {
				return nil, fmt.Errorf("qbridge: bridge %d of %s not found", obj.BridgeID, obj.Name)
			}
			bridges[obj.BridgeID] = br
			if siblings[br.ID], err = e.store.QObjectsByBridge(br.ID); err != nil {
				return nil, fmt.Errorf("qbridge: objects of bridge %s: %w", br.Module, err)
			}
		}

		props, err := e.store.PropertiesByQObject(obj.ID)
		if err != nil {
			return nil, fmt.Errorf("qbridge: properties of %s: %w", obj.Name, err)
		}
		signals, err := e.store.DeclaredSignalsByQObject(obj.ID)
		if err != nil {
			return nil, fmt.Errorf("qbridge: signals of %s: %w", obj.Name, err)
		}

		jobs = append(jobs, &generateJob{
			bridge:   br,
			object:   obj,
			siblings: siblings[br.ID],
			props:    props,
			signals:  signals,
			hash:     store.ComputeSignatureHash(br, obj, props, signals),
		})
	}
	return jobs, nil
}

// ObjectError reports a failure to generate one object.
type ObjectError struct {
	Object string
	Err    error
}

func (e *ObjectError) Error() string {
	return "qbridge: generate " + e.Object + ": " + e.Err.Error()
}

func (e *ObjectError) Unwrap() error { return e.Err }

// mappings names every object of the job's bridge from outside the bridge
// module.
func (job *generateJob) mappings() cxxtype.QualifiedMappings {
	m := make(cxxtype.QualifiedMappings, len(job.siblings))
	for _, o := range job.siblings {
		m[o.Name] = syntax.NewPath(job.bridge.Module, o.Name)
	}
	return m
}

// generateObject validates one object's input and runs the generators over
// it. A generator panic is a defect and is returned as an error.
func (e *Engine) generateObject(ctx context.Context, job *generateJob) (gen *store.Generated, err error) {
	obj := job.object
	defer func() {
		if r := recover(); r != nil {
			var de *generator.DefectError
			if rerr, ok := r.(error); ok && errors.As(rerr, &de) {
				err = &ObjectError{Object: obj.Name, Err: de}
				return
			}
			err = &ObjectError{Object: obj.Name, Err: fmt.Errorf("defect: %v", r)}
		}
	}()

	names := make([]naming.PropertyName, len(job.props))
	props := make([]generator.Property, len(job.props))
	for i, p := range job.props {
		ty, err := e.types.ParseType(ctx, p.TypeExpr)
		if err != nil {
			return nil, &ObjectError{Object: obj.Name, Err: fmt.Errorf("property %s: %w", p.Name, err)}
		}
		names[i] = naming.NewPropertyName(p.Name)
		props[i] = generator.Property{Name: names[i], Type: ty}
	}
	if err := naming.CheckCollisions(names); err != nil {
		return nil, &ObjectError{Object: obj.Name, Err: err}
	}

	objName := naming.NewObjectName(obj.Name, obj.RustStruct)
	declared := make([]generator.Signal, len(job.signals))
	for i, ds := range job.signals {
		params := make([]syntax.FnArg, len(ds.Params))
		for j, sp := range ds.Params {
			ty, err := e.types.ParseType(ctx, sp.TypeExpr)
			if err != nil {
				return nil, &ObjectError{Object: obj.Name, Err: fmt.Errorf("signal %s parameter %s: %w", ds.Name, sp.Name, err)}
			}
			params[j] = syntax.FnArg{Name: sp.Name, Type: ty}
		}
		declared[i] = generator.NewDeclaredSignal(objName, ds.Name, ds.CxxName, params)
	}

	out := generator.GenerateProperties(objName, props, declared, job.mappings())
	return collectOutput(job, out), nil
}

// collectOutput flattens generator output into store records, attributing
// each fragment and signal to the property it came from.
func collectOutput(job *generateJob, out generator.Output) *store.Generated {
	gen := &store.Generated{QObjectID: job.object.ID, Hash: job.hash}
	propIDs := make(map[string]int64, len(job.props))
	var bridgeOrd, implOrd int

	for i, blocks := range out.Properties {
		id := job.props[i].ID
		propIDs[job.props[i].Name] = id
		for _, src := range blocks.Bridge {
			gen.Fragments = append(gen.Fragments, store.Fragment{
				PropertyID: &id, Section: store.SectionBridge, Ordinal: bridgeOrd, Source: src,
			})
			bridgeOrd++
		}
		for _, src := range blocks.Implementation {
			gen.Fragments = append(gen.Fragments, store.Fragment{
				PropertyID: &id, Section: store.SectionImplementation, Ordinal: implOrd, Source: src,
			})
			implOrd++
		}
	}

	for i, sig := range out.Signals {
		var propID *int64
		if sig.Origin == generator.SignalFromProperty {
			id := propIDs[sig.Property]
			propID = &id
		}
		decl := out.Declarations[i]
		gen.Fragments = append(gen.Fragments, store.Fragment{
			PropertyID: propID, Section: store.SectionBridge, Ordinal: bridgeOrd, Source: decl,
		})
		bridgeOrd++
		gen.Signals = append(gen.Signals, store.Signal{
			PropertyID:  propID,
			RustName:    sig.Ident.Rust,
			CppName:     sig.Ident.Cpp,
			Origin:      sig.Origin.String(),
			Declaration: decl,
			Ordinal:     i,
		})
	}
	return gen
}
