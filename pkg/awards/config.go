package awards

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/folioworks/folio/pkg/model"
)

// BadgeDefinition is one badge in a definitions file.
type BadgeDefinition struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	CorpusID    *int64                 `yaml:"corpus_id"`
	Public      bool                   `yaml:"public"`
	AutoAward   bool                   `yaml:"auto_award"`
	Criteria    map[string]interface{} `yaml:"criteria"`
}

// DefinitionsFile is the top-level shape of a badge definitions file.
type DefinitionsFile struct {
	Badges []BadgeDefinition `yaml:"badges"`
}

// LoadDefinitions parses and validates a badge definitions file. Every
// definition's criteria must validate against the registry before any
// of them are accepted.
func (s *Service) LoadDefinitions(path string) ([]BadgeDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read badge definitions: %w", err)
	}

	var file DefinitionsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse badge definitions: %w", err)
	}

	for i, def := range file.Badges {
		if def.Name == "" {
			return nil, model.ValidationError("badge definition %d has no name", i)
		}
		if def.AutoAward {
			criteriaType, config := splitCriteria(def.Criteria)
			if err := s.registry.Validate(criteriaType, config); err != nil {
				return nil, fmt.Errorf("badge %q: %w", def.Name, err)
			}
		}
	}
	return file.Badges, nil
}

// SyncDefinitions upserts badge definitions by name. Existing badges
// are updated in place; new ones are created owned by the system
// profile.
func (s *Service) SyncDefinitions(ctx context.Context, systemProfileID int64, defs []BadgeDefinition) error {
	for _, def := range defs {
		criteriaType, config := splitCriteria(def.Criteria)
		configJSON, err := marshalCriteriaConfig(config)
		if err != nil {
			return fmt.Errorf("badge %q: %w", def.Name, err)
		}

		var id int64
		err = s.db.QueryRowContext(ctx, `SELECT id FROM badges WHERE name = $1`, def.Name).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			insert := `
				INSERT INTO badges (name, description, creator_id, corpus_id, is_public, auto_award, criteria_type, criteria_config, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
			`
			if _, err := s.db.ExecContext(ctx, insert,
				def.Name, def.Description, systemProfileID, def.CorpusID, def.Public, def.AutoAward, criteriaType, configJSON,
			); err != nil {
				return fmt.Errorf("failed to create badge %q: %w", def.Name, err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up badge %q: %w", def.Name, err)
		default:
			update := `
				UPDATE badges
				SET description = $1, corpus_id = $2, is_public = $3, auto_award = $4, criteria_type = $5, criteria_config = $6
				WHERE id = $7
			`
			if _, err := s.db.ExecContext(ctx, update,
				def.Description, def.CorpusID, def.Public, def.AutoAward, criteriaType, configJSON, id,
			); err != nil {
				return fmt.Errorf("failed to update badge %q: %w", def.Name, err)
			}
		}
	}

	if s.logger != nil {
		s.logger.WithField("badges", len(defs)).Info("badge definitions synced")
	}
	return nil
}

// marshalCriteriaConfig serializes the config the way the badge store
// does, NULL when empty.
func marshalCriteriaConfig(config map[string]interface{}) (interface{}, error) {
	if len(config) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal criteria config: %w", err)
	}
	return string(raw), nil
}

// splitCriteria separates the "type" key from the rest of the criteria
// block.
func splitCriteria(criteria map[string]interface{}) (string, map[string]interface{}) {
	if criteria == nil {
		return "", nil
	}
	criteriaType, _ := criteria["type"].(string)
	config := make(map[string]interface{}, len(criteria))
	for k, v := range criteria {
		if k == "type" {
			continue
		}
		config[k] = v
	}
	return criteriaType, config
}
