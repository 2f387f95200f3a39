package course

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, ownerID, title string, price int64) (Course, error) {
	c := Course{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Price:     price,
		CreatedAt: time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id,owner_id,title,published,price,created_at) VALUES ($1,$2,$3,0,$4,$5)`,
		c.ID, c.OwnerID, c.Title, c.Price, c.CreatedAt)
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

func (s *SQLStore) GetCourse(id string) (Course, error) {
	row := s.db.QueryRow(`SELECT id,owner_id,title,published,price,created_at FROM courses WHERE id=$1`, id)
	var c Course
	var published int
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &published, &c.Price, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, ErrNotFound
		}
		return Course{}, err
	}
	c.Published = published != 0

	rows, err := s.db.Query(`SELECT id,course_id,position,title,quiz_json FROM chapters WHERE course_id=$1 ORDER BY position`, id)
	if err != nil {
		return Course{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ch Chapter
		var qjson string
		if err := rows.Scan(&ch.ID, &ch.CourseID, &ch.Position, &ch.Title, &qjson); err != nil {
			return Course{}, err
		}
		if err := json.Unmarshal([]byte(qjson), &ch.Quiz); err != nil {
			ch.Quiz = nil
		}
		c.Chapters = append(c.Chapters, ch)
	}
	return c, rows.Err()
}

func (s *SQLStore) GetChapter(id string) (Chapter, error) {
	row := s.db.QueryRow(`SELECT id,course_id,position,title,quiz_json FROM chapters WHERE id=$1`, id)
	var ch Chapter
	var qjson string
	if err := row.Scan(&ch.ID, &ch.CourseID, &ch.Position, &ch.Title, &qjson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Chapter{}, ErrChapterNotFound
		}
		return Chapter{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &ch.Quiz); err != nil {
		ch.Quiz = nil
	}
	return ch, nil
}

func (s *SQLStore) AddChapter(ctx context.Context, courseID, title string, quiz []QuizQuestion) (Chapter, error) {
	if _, err := s.GetCourse(courseID); err != nil {
		return Chapter{}, err
	}
	var pos int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position),0)+1 FROM chapters WHERE course_id=$1`, courseID).Scan(&pos); err != nil {
		return Chapter{}, err
	}
	if quiz == nil {
		quiz = []QuizQuestion{}
	}
	qj, err := json.Marshal(quiz)
	if err != nil {
		return Chapter{}, err
	}
	ch := Chapter{ID: uuid.NewString(), CourseID: courseID, Position: pos, Title: title, Quiz: quiz}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chapters (id,course_id,position,title,quiz_json) VALUES ($1,$2,$3,$4,$5)`,
		ch.ID, ch.CourseID, ch.Position, ch.Title, string(qj))
	if err != nil {
		return Chapter{}, err
	}
	return ch, nil
}

func (s *SQLStore) SetPublished(ctx context.Context, courseID string, published bool) error {
	p := 0
	if published {
		p = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE courses SET published=$1 WHERE id=$2`, p, courseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) GetExamConfig(courseID string) (ExamConfig, bool, error) {
	row := s.db.QueryRow(
		`SELECT course_id,enabled,questions_json,passing_score,max_attempts,time_limit_sec,text_policy,text_min_length
		   FROM exam_configs WHERE course_id=$1`, courseID)
	var cfg ExamConfig
	var enabled int
	var qjson string
	if err := row.Scan(&cfg.CourseID, &enabled, &qjson, &cfg.PassingScore, &cfg.MaxAttempts,
		&cfg.TimeLimitSec, &cfg.TextPolicy, &cfg.TextMinLength); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ExamConfig{}, false, nil
		}
		return ExamConfig{}, false, err
	}
	cfg.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(qjson), &cfg.Questions); err != nil {
		return ExamConfig{}, false, err
	}
	return cfg, true, nil
}

func (s *SQLStore) SetExamConfig(ctx context.Context, cfg ExamConfig) error {
	if _, err := s.GetCourse(cfg.CourseID); err != nil {
		return err
	}
	if cfg.Questions == nil {
		cfg.Questions = []ExamQuestion{}
	}
	qj, err := json.Marshal(cfg.Questions)
	if err != nil {
		return err
	}
	enabled := 0
	if cfg.Enabled {
		enabled = 1
	}
	if cfg.TextPolicy == "" {
		cfg.TextPolicy = TextPolicyNonEmpty
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exam_configs (course_id,enabled,questions_json,passing_score,max_attempts,time_limit_sec,text_policy,text_min_length)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (course_id) DO UPDATE SET
		   enabled=EXCLUDED.enabled, questions_json=EXCLUDED.questions_json,
		   passing_score=EXCLUDED.passing_score, max_attempts=EXCLUDED.max_attempts,
		   time_limit_sec=EXCLUDED.time_limit_sec, text_policy=EXCLUDED.text_policy,
		   text_min_length=EXCLUDED.text_min_length`,
		cfg.CourseID, enabled, string(qj), cfg.PassingScore, cfg.MaxAttempts,
		cfg.TimeLimitSec, cfg.TextPolicy, cfg.TextMinLength)
	return err
}

// Delete removes a course; chapters, quiz results, exam data, enrollments and
// certificates go with it via ON DELETE CASCADE.
func (s *SQLStore) Delete(ctx context.Context, courseID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id=$1`, courseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
