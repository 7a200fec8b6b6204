package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/folio-labs/matchbook/internal/mapping"
	"github.com/folio-labs/matchbook/internal/tabular"
	"github.com/folio-labs/matchbook/internal/types"
	"github.com/jmoiron/sqlx"
)

/*
 * Configuration store.
 *
 * Backs the mapping resolver and the template generator with the
 * templates / mapping_templates / mapping_defaults tables. Config and
 * template payloads are stored as JSON text and decoded into their
 * validated shapes on load; output templates additionally compile their
 * computed expressions at load time.
 */

// Store reads and writes engine configuration. Implements mapping.Store.
type Store struct {
	q *Queries
}

// NewStore loads the embedded queries and wraps the connection.
func NewStore(db *sqlx.DB) (*Store, error) {
	q, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{q: q}, nil
}

type mappingDefaultRow struct {
	CompanyID      int64          `db:"company_id"`
	DocTypeID      int64          `db:"doc_type_id"`
	ItemType       string         `db:"item_type"`
	TemplateID     sql.NullInt64  `db:"template_id"`
	ConfigOverride sql.NullString `db:"config_override"`
}

type mappingTemplateRow struct {
	ID        int64         `db:"id"`
	Name      string        `db:"name"`
	CompanyID sql.NullInt64 `db:"company_id"`
	DocTypeID sql.NullInt64 `db:"doc_type_id"`
	ItemType  string        `db:"item_type"`
	Config    string        `db:"config"`
}

type templateRow struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	Version    int64  `db:"version"`
	Definition string `db:"definition"`
}

// MappingDefault returns the stored default for the scope, nil when none
// exists.
func (s *Store) MappingDefault(ctx context.Context, companyID, docTypeID int64, itemType string) (*mapping.MappingDefault, error) {
	var row mappingDefaultRow
	err := s.q.GetContext(ctx, "get-mapping-default", &row, companyID, docTypeID, itemType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	def := &mapping.MappingDefault{
		CompanyID: row.CompanyID,
		DocTypeID: row.DocTypeID,
		ItemType:  row.ItemType,
	}
	if row.TemplateID.Valid {
		id := row.TemplateID.Int64
		def.TemplateID = &id
	}
	if row.ConfigOverride.Valid && row.ConfigOverride.String != "" {
		if err := json.Unmarshal([]byte(row.ConfigOverride.String), &def.ConfigOverride); err != nil {
			return nil, fmt.Errorf("config_override for (%d, %d, %s): %w", companyID, docTypeID, itemType, err)
		}
	}
	return def, nil
}

// MappingTemplates returns every stored template for the item type,
// ordered by id.
func (s *Store) MappingTemplates(ctx context.Context, itemType string) ([]mapping.MappingTemplate, error) {
	var rows []mappingTemplateRow
	if err := s.q.SelectContext(ctx, "list-mapping-templates", &rows, itemType); err != nil {
		return nil, err
	}

	out := make([]mapping.MappingTemplate, 0, len(rows))
	for _, row := range rows {
		tpl, err := row.toTemplate()
		if err != nil {
			return nil, err
		}
		out = append(out, *tpl)
	}
	return out, nil
}

// MappingTemplateByID returns one stored template, nil when absent.
func (s *Store) MappingTemplateByID(ctx context.Context, id int64) (*mapping.MappingTemplate, error) {
	var row mappingTemplateRow
	err := s.q.GetContext(ctx, "get-mapping-template", &row, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toTemplate()
}

func (r mappingTemplateRow) toTemplate() (*mapping.MappingTemplate, error) {
	tpl := &mapping.MappingTemplate{
		ID:       r.ID,
		Name:     r.Name,
		ItemType: r.ItemType,
	}
	if r.CompanyID.Valid {
		id := r.CompanyID.Int64
		tpl.CompanyID = &id
	}
	if r.DocTypeID.Valid {
		id := r.DocTypeID.Int64
		tpl.DocTypeID = &id
	}
	if err := json.Unmarshal([]byte(r.Config), &tpl.Config); err != nil {
		return nil, fmt.Errorf("config for mapping template %d: %w", r.ID, err)
	}
	return tpl, nil
}

// CreateMappingTemplate stores one mapping template.
func (s *Store) CreateMappingTemplate(ctx context.Context, tpl mapping.MappingTemplate) error {
	payload, err := json.Marshal(tpl.Config)
	if err != nil {
		return err
	}
	var companyID, docTypeID any
	if tpl.CompanyID != nil {
		companyID = *tpl.CompanyID
	}
	if tpl.DocTypeID != nil {
		docTypeID = *tpl.DocTypeID
	}
	_, err = s.q.ExecContext(ctx, "create-mapping-template", tpl.Name, companyID, docTypeID, tpl.ItemType, string(payload))
	return err
}

// UpsertMappingDefault stores or replaces the default for a scope.
func (s *Store) UpsertMappingDefault(ctx context.Context, def mapping.MappingDefault) error {
	var templateID any
	if def.TemplateID != nil {
		templateID = *def.TemplateID
	}
	var override any
	if def.ConfigOverride != nil {
		payload, err := json.Marshal(def.ConfigOverride)
		if err != nil {
			return err
		}
		override = string(payload)
	}
	_, err := s.q.ExecContext(ctx, "upsert-mapping-default", def.CompanyID, def.DocTypeID, def.ItemType, templateID, override)
	return err
}

// Template loads the newest version of a named output template, with its
// computed expressions compiled. Returns ErrNoSuchTemplate when the name
// is unknown.
func (s *Store) Template(ctx context.Context, name string, maxExprLength int) (*tabular.Template, error) {
	var row templateRow
	err := s.q.GetContext(ctx, "get-template", &row, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", types.ErrNoSuchTemplate, name)
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(row.Definition), &raw); err != nil {
		return nil, fmt.Errorf("definition for template %q: %w", name, err)
	}
	raw["name"] = row.Name
	raw["version"] = fmt.Sprintf("%d", row.Version)
	return tabular.ParseTemplate(raw, maxExprLength)
}

// CreateTemplate stores one output template version. The definition is
// validated and compiled before anything is written.
func (s *Store) CreateTemplate(ctx context.Context, name string, version int64, definition map[string]any) error {
	probe := make(map[string]any, len(definition)+2)
	for k, v := range definition {
		probe[k] = v
	}
	probe["name"] = name
	probe["version"] = fmt.Sprintf("%d", version)
	if _, err := tabular.ParseTemplate(probe, 0); err != nil {
		return err
	}

	payload, err := json.Marshal(definition)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, "create-template", name, version, string(payload))
	return err
}
