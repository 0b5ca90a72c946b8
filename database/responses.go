package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mbolis/quick-forms/model"
	"github.com/pkg/errors"
)

// InsertResponse stores the response row, then its answers in order, then
// its attachment references, in one transaction.
func (s *Store) InsertResponse(ctx context.Context, resp *model.Response) error {
	if resp.ID == "" {
		resp.ID = model.NewID()
	}
	if resp.SubmittedAt.IsZero() {
		resp.SubmittedAt = time.Now().UTC()
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO response (id, form_id, submitted_at, ip) VALUES (?, ?, ?, ?)`,
		resp.ID,
		resp.FormID,
		resp.SubmittedAt,
		resp.IP,
	)
	if err != nil {
		return errors.Wrap(err, "insert response")
	}

	err = insertAnswers(ctx, tx, *resp)
	if err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func insertAnswers(ctx context.Context, tx *sql.Tx, resp model.Response) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO response_answer (response_id, question_id, position, value)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare answers")
	}
	defer stmt.Close()

	for i, a := range resp.Answers {
		value, err := json.Marshal(a.Answer)
		if err != nil {
			return errors.Wrapf(err, "encode answer %s", a.QuestionID)
		}
		_, err = stmt.ExecContext(ctx, resp.ID, a.QuestionID, i, string(value))
		if err != nil {
			return errors.Wrapf(err, "insert answer %s", a.QuestionID)
		}
	}

	for questionID, reference := range resp.Attachments {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO response_attachment (response_id, question_id, reference)
			VALUES (?, ?, ?)`,
			resp.ID,
			questionID,
			reference,
		)
		if err != nil {
			return errors.Wrapf(err, "insert attachment %s", questionID)
		}
	}
	return nil
}

// ListResponses returns the responses to a form, oldest first. A missing
// form yields ErrNotFound.
func (s *Store) ListResponses(ctx context.Context, formID string) ([]model.Response, error) {
	var exists bool
	err := s.QueryRowContext(ctx, `SELECT 1 FROM form WHERE id = ?`, formID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "form exists")
	}

	rows, err := s.QueryContext(ctx, `
		SELECT id, form_id, submitted_at, ip
		FROM response
		WHERE form_id = ?
		ORDER BY submitted_at, id`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query responses")
	}
	defer rows.Close()

	responses := []model.Response{}
	index := map[string]int{}
	for rows.Next() {
		r := model.Response{Answers: []model.ResponseAnswer{}}
		err = rows.Scan(&r.ID, &r.FormID, &r.SubmittedAt, &r.IP)
		if err != nil {
			return nil, errors.Wrap(err, "scan response")
		}
		index[r.ID] = len(responses)
		responses = append(responses, r)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "scan responses")
	}

	err = s.loadAnswers(ctx, `
		SELECT a.response_id, a.question_id, a.value
		FROM response_answer a
		INNER JOIN response r ON (r.id = a.response_id)
		WHERE r.form_id = ?
		ORDER BY a.response_id, a.position`,
		formID, responses, index,
	)
	if err != nil {
		return nil, err
	}

	err = s.loadAttachments(ctx, `
		SELECT a.response_id, a.question_id, a.reference
		FROM response_attachment a
		INNER JOIN response r ON (r.id = a.response_id)
		WHERE r.form_id = ?`,
		formID, responses, index,
	)
	return responses, err
}

func (s *Store) GetResponse(ctx context.Context, id string) (model.Response, error) {
	r := model.Response{Answers: []model.ResponseAnswer{}}
	err := s.QueryRowContext(ctx, `
		SELECT id, form_id, submitted_at, ip
		FROM response
		WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.FormID, &r.SubmittedAt, &r.IP)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, errors.Wrap(err, "scan response")
	}

	responses := []model.Response{r}
	index := map[string]int{r.ID: 0}
	err = s.loadAnswers(ctx, `
		SELECT response_id, question_id, value
		FROM response_answer
		WHERE response_id = ?
		ORDER BY position`,
		id, responses, index,
	)
	if err != nil {
		return r, err
	}
	err = s.loadAttachments(ctx, `
		SELECT response_id, question_id, reference
		FROM response_attachment
		WHERE response_id = ?`,
		id, responses, index,
	)
	return responses[0], err
}

func (s *Store) loadAnswers(ctx context.Context, query string, arg string, responses []model.Response, index map[string]int) error {
	rows, err := s.QueryContext(ctx, query, arg)
	if err != nil {
		return errors.Wrap(err, "query answers")
	}
	defer rows.Close()

	for rows.Next() {
		var responseID, value string
		a := model.ResponseAnswer{}
		err = rows.Scan(&responseID, &a.QuestionID, &value)
		if err != nil {
			return errors.Wrap(err, "scan answer")
		}
		err = json.Unmarshal([]byte(value), &a.Answer)
		if err != nil {
			return errors.Wrapf(err, "answer %s/%s", responseID, a.QuestionID)
		}
		if i, ok := index[responseID]; ok {
			responses[i].Answers = append(responses[i].Answers, a)
		}
	}
	return errors.Wrap(rows.Err(), "scan answers")
}

func (s *Store) loadAttachments(ctx context.Context, query string, arg string, responses []model.Response, index map[string]int) error {
	rows, err := s.QueryContext(ctx, query, arg)
	if err != nil {
		return errors.Wrap(err, "query attachments")
	}
	defer rows.Close()

	for rows.Next() {
		var responseID, questionID, reference string
		err = rows.Scan(&responseID, &questionID, &reference)
		if err != nil {
			return errors.Wrap(err, "scan attachment")
		}
		i, ok := index[responseID]
		if !ok {
			continue
		}
		if responses[i].Attachments == nil {
			responses[i].Attachments = map[string]string{}
		}
		responses[i].Attachments[questionID] = reference
	}
	return errors.Wrap(rows.Err(), "scan attachments")
}

// ReplaceResponse swaps the answers and attachments of a stored response.
func (s *Store) ReplaceResponse(ctx context.Context, resp model.Response) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM response WHERE id = ?`, resp.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "response exists")
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM response_answer WHERE response_id = ?`, resp.ID)
	if err != nil {
		return errors.Wrap(err, "delete answers")
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM response_attachment WHERE response_id = ?`, resp.ID)
	if err != nil {
		return errors.Wrap(err, "delete attachments")
	}

	err = insertAnswers(ctx, tx, resp)
	if err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (s *Store) DeleteResponse(ctx context.Context, id string) error {
	res, err := s.ExecContext(ctx, `DELETE FROM response WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete response")
	}
	return affected(res)
}

// HasResponseFrom reports whether ip already answered the form.
func (s *Store) HasResponseFrom(ctx context.Context, formID, ip string) (bool, error) {
	var found bool
	err := s.QueryRowContext(ctx, `
		SELECT 1 FROM response
		WHERE form_id = ?
			AND ip = ?
		LIMIT 1`,
		formID,
		ip,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return found, errors.Wrap(err, "response by ip")
}
