package mapping

import (
	"context"
	"fmt"
	"sort"
)

/*
 * Three-tier configuration resolution.
 *
 * For one processing unit the effective config is assembled most to least
 * specific:
 *   1. an explicit default record stored for (company, doc type, item
 *      type) - its linked template's config, if any, with the record's
 *      config_override merged on top
 *   2. otherwise the best-matching template for the item type, scored by
 *      specificity: +2 for an exact company match, +1 for a wildcard,
 *      same for doc type; a set-but-different scope excludes the template
 *      outright; ties resolve to the lowest template id
 *   3. the per-item override, merged on top of whichever base was found
 * The fully merged tree is validated before it is returned; a shape
 * violation surfaces here, not at matching time. Nothing to resolve at
 * all yields nil, which is a valid outcome.
 */

// MappingTemplate is one stored, reusable configuration template.
// CompanyID and DocTypeID scope the template; nil means "any".
type MappingTemplate struct {
	ID        int64
	Name      string
	CompanyID *int64
	DocTypeID *int64
	ItemType  string
	Config    map[string]any
}

// MappingDefault is one stored default record binding a scope to a
// template and/or a config override.
type MappingDefault struct {
	CompanyID      int64
	DocTypeID      int64
	ItemType       string
	TemplateID     *int64
	ConfigOverride map[string]any
}

// Store supplies stored templates and default records.
// Implementations return (nil, nil) for absent rows.
type Store interface {
	MappingDefault(ctx context.Context, companyID, docTypeID int64, itemType string) (*MappingDefault, error)
	MappingTemplates(ctx context.Context, itemType string) ([]MappingTemplate, error)
	MappingTemplateByID(ctx context.Context, id int64) (*MappingTemplate, error)
}

// Provenance labels for ResolvedMappingConfig.Source.
const (
	SourceDefaultRecord = "default_record"
	SourceTemplate      = "template"
	SourceItemOverride  = "item_override"
)

// ResolvedMappingConfig is the effective configuration for one unit.
// Raw keeps the merged tree the validated Config was decoded from, for
// diffing and persistence as an override.
type ResolvedMappingConfig struct {
	Config     MappingConfig
	Raw        map[string]any
	TemplateID *int64
	Source     string
}

// Resolver assembles effective mapping configurations from a Store.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve computes the effective configuration for one unit. current is
// the per-item override, nil when the item carries none. Returns nil when
// there is no default record, no matching template and no current config.
// Resolution is computed fresh per unit; results must not be cached
// across units because overrides are item specific.
func (r *Resolver) Resolve(ctx context.Context, companyID, docTypeID int64, itemType string, current map[string]any) (*ResolvedMappingConfig, error) {
	base := map[string]any{}
	var templateID *int64
	source := ""

	def, err := r.store.MappingDefault(ctx, companyID, docTypeID, itemType)
	if err != nil {
		return nil, fmt.Errorf("loading mapping default: %w", err)
	}

	switch {
	case def != nil:
		source = SourceDefaultRecord
		templateID = def.TemplateID
		if def.TemplateID != nil {
			tpl, err := r.store.MappingTemplateByID(ctx, *def.TemplateID)
			if err != nil {
				return nil, fmt.Errorf("loading template %d: %w", *def.TemplateID, err)
			}
			if tpl != nil {
				base = Merge(base, tpl.Config)
			}
		}
		base = Merge(base, def.ConfigOverride)

	default:
		templates, err := r.store.MappingTemplates(ctx, itemType)
		if err != nil {
			return nil, fmt.Errorf("listing templates: %w", err)
		}
		if tpl := bestTemplate(templates, companyID, docTypeID); tpl != nil {
			source = SourceTemplate
			templateID = &tpl.ID
			base = Merge(base, tpl.Config)
		}
	}

	merged := Merge(base, current)
	if source == "" {
		if len(current) == 0 {
			// Nothing to resolve at any tier
			return nil, nil
		}
		source = SourceItemOverride
	}

	cfg, err := ParseConfig(merged)
	if err != nil {
		return nil, err
	}

	return &ResolvedMappingConfig{
		Config:     cfg,
		Raw:        merged,
		TemplateID: templateID,
		Source:     source,
	}, nil
}

// bestTemplate scores candidates by scope specificity and returns the
// winner, nil when every candidate is excluded.
func bestTemplate(templates []MappingTemplate, companyID, docTypeID int64) *MappingTemplate {
	type scored struct {
		tpl   MappingTemplate
		score int
	}
	var candidates []scored
	for _, tpl := range templates {
		score := 0
		if s, ok := scopeScore(tpl.CompanyID, companyID); ok {
			score += s
		} else {
			continue
		}
		if s, ok := scopeScore(tpl.DocTypeID, docTypeID); ok {
			score += s
		} else {
			continue
		}
		candidates = append(candidates, scored{tpl: tpl, score: score})
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].tpl.ID < candidates[j].tpl.ID
	})
	winner := candidates[0].tpl
	return &winner
}

// scopeScore scores one scope field: +2 for an exact match, +1 for a
// wildcard, excluded when set but different.
func scopeScore(scope *int64, request int64) (int, bool) {
	if scope == nil {
		return 1, true
	}
	if *scope == request {
		return 2, true
	}
	return 0, false
}
