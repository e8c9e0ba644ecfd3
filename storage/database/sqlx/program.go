package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/remshq/rems/core/program"
)

type programRepository struct {
	db *sqlx.DB
}

var _ program.Repository = (*programRepository)(nil)

func NewProgramRepository(db *sqlx.DB) *programRepository {
	return &programRepository{db: db}
}

type dbTrack struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   null.Time `db:"created_at"`
	UpdatedAt   null.Time `db:"updated_at"`
}

type dbModule struct {
	ID        string    `db:"id"`
	TrackID   string    `db:"track_id"`
	Title     string    `db:"title"`
	Week      int       `db:"week"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

type dbSession struct {
	ID        string    `db:"id"`
	ModuleID  string    `db:"module_id"`
	Title     string    `db:"title"`
	Day       int       `db:"day"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

type dbContent struct {
	ID        string `db:"id"`
	SessionID string `db:"session_id"`
	Title     string `db:"title"`
	URL       string `db:"url"`
	Ord       int    `db:"ord"`
}

type dbAssignment struct {
	ID          string    `db:"id"`
	SessionID   string    `db:"session_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     null.Time `db:"due_date"`
	Ord         int       `db:"ord"`
}

type dbTest struct {
	ID        string    `db:"id"`
	ModuleID  string    `db:"module_id"`
	Title     string    `db:"title"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

type dbQuestion struct {
	ID     string `db:"id"`
	TestID string `db:"test_id"`
	Text   string `db:"text"`
	Ord    int    `db:"ord"`
}

type dbChoice struct {
	ID         string `db:"id"`
	QuestionID string `db:"question_id"`
	Text       string `db:"text"`
	IsCorrect  bool   `db:"is_correct"`
	Ord        int    `db:"ord"`
}

type dbTestResult struct {
	ID        string    `db:"id"`
	TraineeID string    `db:"trainee_id"`
	ModuleID  string    `db:"module_id"`
	Phase     string    `db:"phase"`
	Score     float64   `db:"score"`
	Total     float64   `db:"total"`
	TakenAt   time.Time `db:"taken_at"`
}

// --- Tracks ---

func (repo programRepository) CreateTrack(ctx context.Context, track program.Track) (program.Track, error) {
	track.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO track (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		track.ID, track.Name, track.Description, track.CreatedAt.UTC(), track.UpdatedAt.UTC())
	if err != nil {
		return program.Track{}, errors.Wrap(err, "inserting track")
	}
	return track, nil
}

func (repo programRepository) QueryTracks(ctx context.Context) ([]program.Track, error) {
	var rows []dbTrack
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM track ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying tracks")
	}
	tracks := make([]program.Track, 0, len(rows))
	for _, row := range rows {
		track, err := repo.assembleTrack(ctx, row)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func (repo programRepository) GetTrackByID(ctx context.Context, id string) (program.Track, error) {
	var row dbTrack
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM track WHERE id = $1`, id)
	if err != nil {
		return program.Track{}, trapNoRowsErr(err, program.ErrTrackNotFound, "getting track")
	}
	return repo.assembleTrack(ctx, row)
}

func (repo programRepository) assembleTrack(ctx context.Context, row dbTrack) (program.Track, error) {
	track := program.Track{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
	var modRows []dbModule
	err := repo.db.SelectContext(ctx, &modRows, `
		SELECT * FROM module WHERE track_id = $1 ORDER BY week`, row.ID)
	if err != nil {
		return program.Track{}, errors.Wrap(err, "querying track modules")
	}
	for _, modRow := range modRows {
		mod, err := repo.assembleModule(ctx, modRow)
		if err != nil {
			return program.Track{}, err
		}
		track.Modules = append(track.Modules, mod)
	}
	return track, nil
}

func (repo programRepository) UpdateTrack(ctx context.Context, track program.Track) (program.Track, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE track SET name = $2, description = $3, updated_at = $4 WHERE id = $1`,
		track.ID, track.Name, track.Description, track.UpdatedAt.UTC())
	if err != nil {
		return program.Track{}, errors.Wrap(err, "updating track")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return program.Track{}, program.ErrTrackNotFound
	}
	return repo.GetTrackByID(ctx, track.ID)
}

func (repo programRepository) DeleteTrack(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM track WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting track")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return program.ErrTrackNotFound
	}
	return nil
}

// --- Modules ---

func (repo programRepository) CreateModule(ctx context.Context, mod program.Module) (program.Module, error) {
	mod.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO module (id, track_id, title, week, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		mod.ID, mod.TrackID, mod.Title, mod.Week, mod.CreatedAt.UTC(), mod.UpdatedAt.UTC())
	if err != nil {
		return program.Module{}, errors.Wrap(err, "inserting module")
	}
	return mod, nil
}

func (repo programRepository) GetModuleByID(ctx context.Context, id string) (program.Module, error) {
	var row dbModule
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM module WHERE id = $1`, id)
	if err != nil {
		return program.Module{}, trapNoRowsErr(err, program.ErrModuleNotFound, "getting module")
	}
	return repo.assembleModule(ctx, row)
}

func (repo programRepository) assembleModule(ctx context.Context, row dbModule) (program.Module, error) {
	mod := program.Module{
		ID:        row.ID,
		TrackID:   row.TrackID,
		Title:     row.Title,
		Week:      row.Week,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
	var sessRows []dbSession
	err := repo.db.SelectContext(ctx, &sessRows, `
		SELECT * FROM session WHERE module_id = $1 ORDER BY day`, row.ID)
	if err != nil {
		return program.Module{}, errors.Wrap(err, "querying module sessions")
	}
	for _, sessRow := range sessRows {
		sess, err := repo.assembleSession(ctx, sessRow)
		if err != nil {
			return program.Module{}, err
		}
		mod.Sessions = append(mod.Sessions, sess)
	}
	if test, err := repo.GetTestByModuleID(ctx, row.ID); err == nil {
		mod.Test = &test
	} else if errors.Cause(err) != program.ErrTestNotFound {
		return program.Module{}, err
	}
	return mod, nil
}

func (repo programRepository) UpdateModule(ctx context.Context, mod program.Module) (program.Module, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE module SET title = $2, week = $3, updated_at = $4 WHERE id = $1`,
		mod.ID, mod.Title, mod.Week, mod.UpdatedAt.UTC())
	if err != nil {
		return program.Module{}, errors.Wrap(err, "updating module")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return program.Module{}, program.ErrModuleNotFound
	}
	return repo.GetModuleByID(ctx, mod.ID)
}

func (repo programRepository) DeleteModule(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM module WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting module")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return program.ErrModuleNotFound
	}
	return nil
}

// --- Sessions ---

func (repo programRepository) CreateSession(ctx context.Context, sess program.Session) (program.Session, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return program.Session{}, errors.Wrap(err, "beginning session tx")
	}
	defer func() { _ = tx.Rollback() }()

	sess.ID = uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO session (id, module_id, title, day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, sess.ModuleID, sess.Title, sess.Day, sess.CreatedAt.UTC(), sess.UpdatedAt.UTC())
	if err != nil {
		return program.Session{}, errors.Wrap(err, "inserting session")
	}
	if err = repo.insertSessionChildren(ctx, tx, &sess); err != nil {
		return program.Session{}, err
	}
	if err = tx.Commit(); err != nil {
		return program.Session{}, errors.Wrap(err, "committing session tx")
	}
	return sess, nil
}

func (repo programRepository) insertSessionChildren(ctx context.Context, tx *sqlx.Tx, sess *program.Session) error {
	for i := range sess.Content {
		item := &sess.Content[i]
		item.ID = uuid.New().String()
		item.SessionID = sess.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_content (id, session_id, title, url, ord)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, sess.ID, item.Title, item.URL, item.Order)
		if err != nil {
			return errors.Wrap(err, "inserting session content")
		}
	}
	for i := range sess.Assignments {
		asg := &sess.Assignments[i]
		asg.ID = uuid.New().String()
		asg.SessionID = sess.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_assignment (id, session_id, title, description, due_date, ord)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			asg.ID, sess.ID, asg.Title, asg.Description,
			null.NewTime(asg.DueDate.UTC(), !asg.DueDate.IsZero()), asg.Order)
		if err != nil {
			return errors.Wrap(err, "inserting session assignment")
		}
	}
	return nil
}

func (repo programRepository) GetSessionByID(ctx context.Context, id string) (program.Session, error) {
	var row dbSession
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM session WHERE id = $1`, id)
	if err != nil {
		return program.Session{}, trapNoRowsErr(err, program.ErrSessionNotFound, "getting session")
	}
	return repo.assembleSession(ctx, row)
}

func (repo programRepository) assembleSession(ctx context.Context, row dbSession) (program.Session, error) {
	sess := program.Session{
		ID:        row.ID,
		ModuleID:  row.ModuleID,
		Title:     row.Title,
		Day:       row.Day,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
	var contentRows []dbContent
	err := repo.db.SelectContext(ctx, &contentRows, `
		SELECT * FROM session_content WHERE session_id = $1 ORDER BY ord`, row.ID)
	if err != nil {
		return program.Session{}, errors.Wrap(err, "querying session content")
	}
	for _, item := range contentRows {
		sess.Content = append(sess.Content, program.ContentItem{
			ID: item.ID, SessionID: item.SessionID, Title: item.Title, URL: item.URL, Order: item.Ord,
		})
	}
	var asgRows []dbAssignment
	err = repo.db.SelectContext(ctx, &asgRows, `
		SELECT * FROM session_assignment WHERE session_id = $1 ORDER BY ord`, row.ID)
	if err != nil {
		return program.Session{}, errors.Wrap(err, "querying session assignments")
	}
	for _, asg := range asgRows {
		sess.Assignments = append(sess.Assignments, program.Assignment{
			ID: asg.ID, SessionID: asg.SessionID, Title: asg.Title,
			Description: asg.Description, DueDate: asg.DueDate.Time, Order: asg.Ord,
		})
	}
	return sess, nil
}

func (repo programRepository) UpdateSession(ctx context.Context, sess program.Session) (program.Session, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return program.Session{}, errors.Wrap(err, "beginning session tx")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE session SET title = $2, day = $3, updated_at = $4 WHERE id = $1`,
		sess.ID, sess.Title, sess.Day, sess.UpdatedAt.UTC())
	if err != nil {
		return program.Session{}, errors.Wrap(err, "updating session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return program.Session{}, program.ErrSessionNotFound
	}

	// content and assignments are replaced wholesale
	if _, err = tx.ExecContext(ctx, `DELETE FROM session_content WHERE session_id = $1`, sess.ID); err != nil {
		return program.Session{}, errors.Wrap(err, "clearing session content")
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM session_assignment WHERE session_id = $1`, sess.ID); err != nil {
		return program.Session{}, errors.Wrap(err, "clearing session assignments")
	}
	if err = repo.insertSessionChildren(ctx, tx, &sess); err != nil {
		return program.Session{}, err
	}

	if err = tx.Commit(); err != nil {
		return program.Session{}, errors.Wrap(err, "committing session tx")
	}
	return sess, nil
}

func (repo programRepository) DeleteSession(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM session WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return program.ErrSessionNotFound
	}
	return nil
}

// --- Module tests ---

func (repo programRepository) GetTestByModuleID(ctx context.Context, moduleID string) (program.ModuleTest, error) {
	var row dbTest
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM module_test WHERE module_id = $1`, moduleID)
	if err != nil {
		return program.ModuleTest{}, trapNoRowsErr(err, program.ErrTestNotFound, "getting module test")
	}

	test := program.ModuleTest{
		ID:        row.ID,
		ModuleID:  row.ModuleID,
		Title:     row.Title,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}

	var qRows []dbQuestion
	err = repo.db.SelectContext(ctx, &qRows, `
		SELECT * FROM test_question WHERE test_id = $1 ORDER BY ord`, row.ID)
	if err != nil {
		return program.ModuleTest{}, errors.Wrap(err, "querying test questions")
	}
	qIDs := make([]string, 0, len(qRows))
	for _, q := range qRows {
		qIDs = append(qIDs, q.ID)
	}

	choicesByQ := make(map[string][]program.Choice)
	if len(qIDs) > 0 {
		var cRows []dbChoice
		err = repo.db.SelectContext(ctx, &cRows, `
			SELECT * FROM test_choice WHERE question_id = ANY($1) ORDER BY ord`, pq.Array(qIDs))
		if err != nil {
			return program.ModuleTest{}, errors.Wrap(err, "querying test choices")
		}
		for _, c := range cRows {
			choicesByQ[c.QuestionID] = append(choicesByQ[c.QuestionID], program.Choice{
				ID: c.ID, Text: c.Text, IsCorrect: c.IsCorrect, Order: c.Ord,
			})
		}
	}

	for _, q := range qRows {
		test.Questions = append(test.Questions, program.Question{
			ID: q.ID, Text: q.Text, Order: q.Ord, Choices: choicesByQ[q.ID],
		})
	}
	return test, nil
}

func (repo programRepository) SaveTest(ctx context.Context, test program.ModuleTest) (program.ModuleTest, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return program.ModuleTest{}, errors.Wrap(err, "beginning test tx")
	}
	defer func() { _ = tx.Rollback() }()

	var existingID string
	err = tx.GetContext(ctx, &existingID, `SELECT id FROM module_test WHERE module_id = $1`, test.ModuleID)
	switch {
	case err == nil:
		test.ID = existingID
		_, err = tx.ExecContext(ctx, `
			UPDATE module_test SET title = $2, updated_at = $3 WHERE id = $1`,
			test.ID, test.Title, test.UpdatedAt.UTC())
		if err != nil {
			return program.ModuleTest{}, errors.Wrap(err, "updating module test")
		}
		// replacing the question list cascades to choices
		if _, err = tx.ExecContext(ctx, `DELETE FROM test_question WHERE test_id = $1`, test.ID); err != nil {
			return program.ModuleTest{}, errors.Wrap(err, "clearing test questions")
		}
	case errors.Cause(err) == sql.ErrNoRows:
		test.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO module_test (id, module_id, title, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)`,
			test.ID, test.ModuleID, test.Title, test.CreatedAt.UTC(), test.UpdatedAt.UTC())
		if err != nil {
			return program.ModuleTest{}, errors.Wrap(err, "inserting module test")
		}
	default:
		return program.ModuleTest{}, errors.Wrap(err, "looking up module test")
	}

	for i := range test.Questions {
		q := &test.Questions[i]
		q.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO test_question (id, test_id, text, ord) VALUES ($1, $2, $3, $4)`,
			q.ID, test.ID, q.Text, q.Order)
		if err != nil {
			return program.ModuleTest{}, errors.Wrap(err, "inserting test question")
		}
		for j := range q.Choices {
			c := &q.Choices[j]
			c.ID = uuid.New().String()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO test_choice (id, question_id, text, is_correct, ord)
				VALUES ($1, $2, $3, $4, $5)`,
				c.ID, q.ID, c.Text, c.IsCorrect, c.Order)
			if err != nil {
				return program.ModuleTest{}, errors.Wrap(err, "inserting test choice")
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return program.ModuleTest{}, errors.Wrap(err, "committing test tx")
	}
	return test, nil
}

// --- Test results ---

func (repo programRepository) CreateTestResult(ctx context.Context, res program.TestResult) (program.TestResult, error) {
	res.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO test_result (id, trainee_id, module_id, phase, score, total, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.ID, res.TraineeID, res.ModuleID, string(res.Phase), res.Score, res.Total, res.TakenAt.UTC())
	if err != nil {
		return program.TestResult{}, errors.Wrap(err, "inserting test result")
	}
	return res, nil
}

func (repo programRepository) QueryTestResults(ctx context.Context, traineeIDs ...string) ([]program.TestResult, error) {
	query := `SELECT * FROM test_result ORDER BY taken_at`
	args := []interface{}{}
	if len(traineeIDs) > 0 {
		query = `SELECT * FROM test_result WHERE trainee_id = ANY($1) ORDER BY taken_at`
		args = append(args, pq.Array(traineeIDs))
	}
	var rows []dbTestResult
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying test results")
	}
	results := make([]program.TestResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, program.TestResult{
			ID:        row.ID,
			TraineeID: row.TraineeID,
			ModuleID:  row.ModuleID,
			Phase:     program.TestPhase(row.Phase),
			Score:     row.Score,
			Total:     row.Total,
			TakenAt:   row.TakenAt,
		})
	}
	return results, nil
}
