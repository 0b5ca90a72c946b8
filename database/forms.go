package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mbolis/quick-forms/model"
	"github.com/pkg/errors"
)

type FormFilter struct {
	Owner         string
	PublishedOnly bool
}

// CreateForm stores a new form at version 1, filling in missing ids.
func (s *Store) CreateForm(ctx context.Context, form *model.Form) error {
	form.AssignIDs()
	if form.ID == "" {
		form.ID = model.NewID()
	}
	now := time.Now().UTC()
	form.Version = 1
	form.CreatedAt = now
	form.UpdatedAt = now

	cover, err := json.Marshal(form.Cover)
	if err != nil {
		return errors.Wrap(err, "encode cover")
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO form (id, version, title, description, cover, published, owner, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		form.ID,
		form.Version,
		form.Title,
		form.Description,
		string(cover),
		form.Published,
		form.Owner,
		form.CreatedAt,
		form.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert form")
	}

	err = insertSections(ctx, tx, form.ID, form.Sections)
	if err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func insertSections(ctx context.Context, tx *sql.Tx, formID string, sections []model.FormSection) error {
	sectionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO form_section (form_id, id, position, title, description, is_open, conditional_logic)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare sections")
	}
	defer sectionStmt.Close()

	questionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question (
			form_id, section_id, id, position, type, title, options, required,
			allow_attachments, rating_scale, rating_icon, score_config, conditional_logic
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare questions")
	}
	defer questionStmt.Close()

	position := 0
	for i, section := range sections {
		logic, err := encodeRules(section.ConditionalLogic)
		if err != nil {
			return errors.Wrapf(err, "section %s", section.ID)
		}
		_, err = sectionStmt.ExecContext(ctx, formID, section.ID, i, section.Title, section.Description, section.IsOpen, logic)
		if err != nil {
			return errors.Wrapf(err, "insert section %s", section.ID)
		}

		for _, q := range section.Questions {
			var options, scoreConfig string
			if q.Options != nil {
				b, err := json.Marshal(q.Options)
				if err != nil {
					return errors.Wrapf(err, "question %s options", q.ID)
				}
				options = string(b)
			}
			if q.ScoreConfig != nil {
				b, err := json.Marshal(q.ScoreConfig)
				if err != nil {
					return errors.Wrapf(err, "question %s score config", q.ID)
				}
				scoreConfig = string(b)
			}
			logic, err := encodeRules(q.ConditionalLogic)
			if err != nil {
				return errors.Wrapf(err, "question %s", q.ID)
			}

			_, err = questionStmt.ExecContext(ctx,
				formID, section.ID, q.ID, position, q.Type, q.Title, options, q.Required,
				q.AllowAttachments, q.RatingScale, q.RatingIcon, scoreConfig, logic,
			)
			if err != nil {
				return errors.Wrapf(err, "insert question %s", q.ID)
			}
			position++
		}
	}
	return nil
}

func encodeRules(rules []model.Rule) (string, error) {
	if rules == nil {
		rules = []model.Rule{}
	}
	b, err := json.Marshal(rules)
	if err != nil {
		return "", errors.Wrap(err, "encode rules")
	}
	return string(b), nil
}

// ListForms returns form headers, without sections, newest first.
func (s *Store) ListForms(ctx context.Context, filter FormFilter) ([]model.Form, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, version, title, description, cover, published, owner, created_at, updated_at
		FROM form
		WHERE (? = '' OR owner = ?)
			AND (? = 0 OR published = 1)
		ORDER BY created_at DESC`,
		filter.Owner,
		filter.Owner,
		filter.PublishedOnly,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query forms")
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, errors.Wrap(rows.Err(), "scan forms")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanForm(row scanner) (f model.Form, err error) {
	var cover string
	err = row.Scan(&f.ID, &f.Version, &f.Title, &f.Description, &cover, &f.Published, &f.Owner, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return f, ErrNotFound
	}
	if err != nil {
		return f, errors.Wrap(err, "scan form")
	}
	if cover != "" {
		err = json.Unmarshal([]byte(cover), &f.Cover)
		if err != nil {
			return f, errors.Wrapf(err, "form %s cover", f.ID)
		}
	}
	return f, nil
}

// GetForm loads a form with its sections and questions in order.
func (s *Store) GetForm(ctx context.Context, id string) (model.Form, error) {
	form, err := scanForm(s.QueryRowContext(ctx, `
		SELECT id, version, title, description, cover, published, owner, created_at, updated_at
		FROM form
		WHERE id = ?`,
		id,
	))
	if err != nil {
		return form, err
	}

	rows, err := s.QueryContext(ctx, `
		SELECT id, title, description, is_open, conditional_logic
		FROM form_section
		WHERE form_id = ?
		ORDER BY position`,
		id,
	)
	if err != nil {
		return form, errors.Wrap(err, "query sections")
	}
	defer rows.Close()

	index := map[string]int{}
	for rows.Next() {
		section := model.FormSection{Questions: []model.Question{}}
		var logic string
		err = rows.Scan(&section.ID, &section.Title, &section.Description, &section.IsOpen, &logic)
		if err != nil {
			return form, errors.Wrap(err, "scan section")
		}
		err = json.Unmarshal([]byte(logic), &section.ConditionalLogic)
		if err != nil {
			return form, errors.Wrapf(err, "section %s logic", section.ID)
		}
		index[section.ID] = len(form.Sections)
		form.Sections = append(form.Sections, section)
	}
	if err = rows.Err(); err != nil {
		return form, errors.Wrap(err, "scan sections")
	}

	qrows, err := s.QueryContext(ctx, `
		SELECT
			section_id, id, type, title, options, required,
			allow_attachments, rating_scale, rating_icon, score_config, conditional_logic
		FROM question
		WHERE form_id = ?
		ORDER BY position`,
		id,
	)
	if err != nil {
		return form, errors.Wrap(err, "query questions")
	}
	defer qrows.Close()

	for qrows.Next() {
		q := model.Question{}
		var sectionID, options, scoreConfig, logic string
		err = qrows.Scan(
			&sectionID, &q.ID, &q.Type, &q.Title, &options, &q.Required,
			&q.AllowAttachments, &q.RatingScale, &q.RatingIcon, &scoreConfig, &logic,
		)
		if err != nil {
			return form, errors.Wrap(err, "scan question")
		}
		if options != "" {
			if err = json.Unmarshal([]byte(options), &q.Options); err != nil {
				return form, errors.Wrapf(err, "question %s options", q.ID)
			}
		}
		if scoreConfig != "" {
			q.ScoreConfig = &model.ScoreConfig{}
			if err = json.Unmarshal([]byte(scoreConfig), q.ScoreConfig); err != nil {
				return form, errors.Wrapf(err, "question %s score config", q.ID)
			}
		}
		if err = json.Unmarshal([]byte(logic), &q.ConditionalLogic); err != nil {
			return form, errors.Wrapf(err, "question %s logic", q.ID)
		}

		i, ok := index[sectionID]
		if !ok {
			return form, errors.Errorf("question %s: orphan section %s", q.ID, sectionID)
		}
		form.Sections[i].Questions = append(form.Sections[i].Questions, q)
	}
	return form, errors.Wrap(qrows.Err(), "scan questions")
}

// UpdateForm replaces the form content when form.Version matches the
// stored one, and bumps the version. Sections and questions are replaced
// wholesale.
func (s *Store) UpdateForm(ctx context.Context, form *model.Form) error {
	form.AssignIDs()
	cover, err := json.Marshal(form.Cover)
	if err != nil {
		return errors.Wrap(err, "encode cover")
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE form
		SET
			title = ?,
			description = ?,
			cover = ?,
			version = version+1,
			updated_at = ?
		WHERE id = ?
			AND version = ?`,
		form.Title,
		form.Description,
		string(cover),
		now,
		form.ID,
		form.Version,
	)
	if err != nil {
		return errors.Wrap(err, "update form")
	}
	// optimistic lock
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update form: verify")
	}
	if n < 1 {
		var exists bool
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM form WHERE id = ?`, form.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "update form: exists")
		}
		return ErrConflict
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM question WHERE form_id = ?`, form.ID)
	if err != nil {
		return errors.Wrap(err, "delete questions")
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM form_section WHERE form_id = ?`, form.ID)
	if err != nil {
		return errors.Wrap(err, "delete sections")
	}
	err = insertSections(ctx, tx, form.ID, form.Sections)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "commit")
	}
	form.Version++
	form.UpdatedAt = now
	return nil
}

// DeleteForm removes a form with its questions and responses.
func (s *Store) DeleteForm(ctx context.Context, id string) error {
	res, err := s.ExecContext(ctx, `DELETE FROM form WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete form")
	}
	return affected(res)
}

func (s *Store) SetPublished(ctx context.Context, id string, published bool) error {
	res, err := s.ExecContext(ctx, `
		UPDATE form
		SET published = ?, updated_at = ?
		WHERE id = ?`,
		published,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return errors.Wrap(err, "publish form")
	}
	return affected(res)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}
