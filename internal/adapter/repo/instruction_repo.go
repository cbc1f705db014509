package repo

import (
	"context"
	"fmt"

	"server/internal/domain"
)

// InstructionRepositoryPG implements domain.InstructionRepository.
type InstructionRepositoryPG struct {
	db DBTX
}

// NewInstructionRepository creates an instruction template repository.
func NewInstructionRepository(db DBTX) *InstructionRepositoryPG {
	return &InstructionRepositoryPG{db: db}
}

// Upsert saves a template; an existing name has its content replaced.
func (r *InstructionRepositoryPG) Upsert(ctx context.Context, tpl *domain.InstructionTemplate) (*domain.InstructionTemplate, error) {
	query := `
INSERT INTO instruction_templates (id, name, content)
VALUES (gen_random_uuid(), $1, $2)
ON CONFLICT (name) DO UPDATE SET content = EXCLUDED.content
RETURNING id, name, content;
`
	var saved domain.InstructionTemplate
	if err := r.db.QueryRow(ctx, query, tpl.Name, tpl.Content).
		Scan(&saved.ID, &saved.Name, &saved.Content); err != nil {
		return nil, fmt.Errorf("upsert instruction template: %w", err)
	}
	return &saved, nil
}

// List returns all templates ordered by name.
func (r *InstructionRepositoryPG) List(ctx context.Context) ([]domain.InstructionTemplate, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, content FROM instruction_templates ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("list instruction templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.InstructionTemplate
	for rows.Next() {
		var tpl domain.InstructionTemplate
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Content); err != nil {
			return nil, fmt.Errorf("scan instruction template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// Delete removes a template by id.
func (r *InstructionRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM instruction_templates WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete instruction template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.InstructionRepository = (*InstructionRepositoryPG)(nil)
