package pipeline

import (
	"context"
	"fmt"

	"tmdbtsv/internal/config"
	"tmdbtsv/internal/jsondoc"
	"tmdbtsv/internal/logging"
	"tmdbtsv/internal/table"
)

// SourceResult describes one loaded input file.
type SourceResult struct {
	Name    string
	Path    string
	Records int
}

// Output is one relation computed in memory.
type Output struct {
	Relation config.Relation
	// RowsIn counts rows before deduplication.
	RowsIn int
	Table  *table.Table
}

// Plan is the full output set of a run before anything is written.
type Plan struct {
	Sources []SourceResult
	Outputs []Output
}

// Build loads and flattens every source and assembles each configured
// relation. It writes nothing.
func (p *Pipeline) Build(ctx context.Context) (Plan, error) {
	var plan Plan
	parts := make(map[string]*table.Table)

	for _, src := range p.cfg.Sources {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		srcCtx := logging.WithSource(ctx, src.Name)
		logger := logging.WithContext(srcCtx, p.logger)

		records, err := jsondoc.Load(src.Path)
		if err != nil {
			return Plan{}, fmt.Errorf("load %s: %w", src.Name, err)
		}
		res, err := p.flattener.Flatten(src.Name, records, src.Lists)
		if err != nil {
			return Plan{}, fmt.Errorf("flatten %s: %w", src.Name, err)
		}

		parts[config.Part{Source: src.Name}.Ref()] = res.Parent
		for _, child := range res.Children {
			parts[child.Name] = child
		}
		plan.Sources = append(plan.Sources, SourceResult{Name: src.Name, Path: src.Path, Records: len(records)})
		logger.Debug("source flattened",
			logging.Int("records", len(records)),
			logging.Int("columns", len(res.Parent.Columns)),
			logging.Int("relations", len(res.Children)+1),
		)
	}

	for _, rel := range p.cfg.Relations() {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		inputs := make([]*table.Table, 0, len(rel.Parts))
		for _, part := range rel.Parts {
			t, ok := parts[part.Ref()]
			if !ok {
				return Plan{}, fmt.Errorf("relation %s: no table for %s", rel.Name, part.Ref())
			}
			inputs = append(inputs, t)
		}
		merged, err := table.MergeAll(rel.Name, inputs...)
		if err != nil {
			return Plan{}, fmt.Errorf("merge %s: %w", rel.Name, err)
		}
		plan.Outputs = append(plan.Outputs, Output{
			Relation: rel,
			RowsIn:   merged.Len(),
			Table:    table.Deduplicate(merged),
		})
	}
	return plan, nil
}
