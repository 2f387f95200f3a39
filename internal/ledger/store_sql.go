package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// isUniqueViolation matches both the modernc sqlite and postgres wordings;
// database/sql exposes no portable error code for constraint violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}

func (s *SQLStore) GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,course_id,via,progress,created_at FROM enrollments WHERE user_id=$1 AND course_id=$2`,
		userID, courseID)
	var e Enrollment
	if err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Via, &e.Progress, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Enrollment{}, false, nil
		}
		return Enrollment{}, false, err
	}
	return e, true, nil
}

func (s *SQLStore) CreateEnrollment(ctx context.Context, e Enrollment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollments (id,user_id,course_id,via,progress,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.UserID, e.CourseID, e.Via, e.Progress, e.CreatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyEnrolled
	}
	return err
}

func (s *SQLStore) UpdateProgress(ctx context.Context, userID, courseID string, progress float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE enrollments SET progress=$1 WHERE user_id=$2 AND course_id=$3`,
		progress, userID, courseID)
	return err
}

func (s *SQLStore) InsertAccessKeys(ctx context.Context, keys []AccessKey) error {
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO access_keys (course_id,code,is_used,created_at) VALUES ($1,$2,0,$3)`,
			k.CourseID, k.Code, k.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) GetAccessKey(ctx context.Context, courseID, code string) (AccessKey, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT course_id,code,is_used,COALESCE(used_by,''),COALESCE(used_at,0),created_at
		   FROM access_keys WHERE course_id=$1 AND code=$2`, courseID, code)
	var k AccessKey
	var used int
	if err := row.Scan(&k.CourseID, &k.Code, &used, &k.UsedBy, &k.UsedAt, &k.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AccessKey{}, false, nil
		}
		return AccessKey{}, false, err
	}
	k.IsUsed = used != 0
	return k, true, nil
}

// ConsumeAccessKey is the atomic winner-picker: two concurrent redemptions of
// the same key see exactly one row affected between them.
func (s *SQLStore) ConsumeAccessKey(ctx context.Context, courseID, code, userID string, now int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE access_keys SET is_used=1, used_by=$1, used_at=$2
		  WHERE course_id=$3 AND code=$4 AND is_used=0`,
		userID, now, courseID, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *SQLStore) InsertToken(ctx context.Context, t EnrollmentToken) error {
	var uid any
	if t.UserID != "" {
		uid = t.UserID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollment_tokens (value,course_id,user_id,is_used,expires_at,created_at)
		 VALUES ($1,$2,$3,0,$4,$5)`,
		t.Value, t.CourseID, uid, t.ExpiresAt, t.CreatedAt)
	return err
}

func (s *SQLStore) GetToken(ctx context.Context, value string) (EnrollmentToken, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value,course_id,COALESCE(user_id,''),is_used,COALESCE(used_by,''),expires_at,created_at
		   FROM enrollment_tokens WHERE value=$1`, value)
	var t EnrollmentToken
	var used int
	if err := row.Scan(&t.Value, &t.CourseID, &t.UserID, &used, &t.UsedBy, &t.ExpiresAt, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return EnrollmentToken{}, false, nil
		}
		return EnrollmentToken{}, false, err
	}
	t.IsUsed = used != 0
	return t, true, nil
}

func (s *SQLStore) ConsumeToken(ctx context.Context, value, userID string, now int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE enrollment_tokens SET is_used=1, used_by=$1
		  WHERE value=$2 AND is_used=0 AND expires_at >= $3`,
		userID, value, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *SQLStore) InsertQuizResult(ctx context.Context, r QuizResult) error {
	bj, err := json.Marshal(r.Breakdown)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quiz_results (id,user_id,course_id,chapter_id,score,total,breakdown_json,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		r.ID, r.UserID, r.CourseID, r.ChapterID, r.Score, r.Total, string(bj), r.CreatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyAttempted
	}
	return err
}

func (s *SQLStore) GetQuizResult(ctx context.Context, userID, chapterID string) (QuizResult, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,course_id,chapter_id,score,total,breakdown_json,created_at
		   FROM quiz_results WHERE user_id=$1 AND chapter_id=$2`, userID, chapterID)
	var r QuizResult
	var bj string
	if err := row.Scan(&r.ID, &r.UserID, &r.CourseID, &r.ChapterID, &r.Score, &r.Total, &bj, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuizResult{}, false, nil
		}
		return QuizResult{}, false, err
	}
	if err := json.Unmarshal([]byte(bj), &r.Breakdown); err != nil {
		r.Breakdown = nil
	}
	return r, true, nil
}

func (s *SQLStore) CountCompletedChapters(ctx context.Context, userID, courseID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT chapter_id) FROM quiz_results WHERE user_id=$1 AND course_id=$2`,
		userID, courseID).Scan(&n)
	return n, err
}

func (s *SQLStore) InsertExamResult(ctx context.Context, r ExamResult) error {
	bj, err := json.Marshal(r.Breakdown)
	if err != nil {
		return err
	}
	passed := 0
	if r.Passed {
		passed = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exam_results
		   (id,user_id,course_id,attempt,score,total,percentage,passed,malpractice_count,credibility_score,breakdown_json,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID, r.UserID, r.CourseID, r.Attempt, r.Score, r.Total, r.Percentage, passed,
		r.MalpracticeCount, r.CredibilityScore, string(bj), r.CreatedAt)
	return err
}

func (s *SQLStore) ListExamResults(ctx context.Context, userID, courseID string) ([]ExamResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,user_id,course_id,attempt,score,total,percentage,passed,malpractice_count,credibility_score,breakdown_json,created_at
		   FROM exam_results WHERE user_id=$1 AND course_id=$2 ORDER BY attempt`, userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ExamResult{}
	for rows.Next() {
		var r ExamResult
		var passed int
		var bj string
		if err := rows.Scan(&r.ID, &r.UserID, &r.CourseID, &r.Attempt, &r.Score, &r.Total, &r.Percentage,
			&passed, &r.MalpracticeCount, &r.CredibilityScore, &bj, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Passed = passed != 0
		if err := json.Unmarshal([]byte(bj), &r.Breakdown); err != nil {
			r.Breakdown = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) InsertCertificate(ctx context.Context, c Certificate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO certificates (id,user_id,course_id,issued_at) VALUES ($1,$2,$3,$4)`,
		c.ID, c.UserID, c.CourseID, c.IssuedAt)
	return err
}

func (s *SQLStore) GetCertificate(ctx context.Context, userID, courseID string) (Certificate, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,course_id,issued_at FROM certificates WHERE user_id=$1 AND course_id=$2`,
		userID, courseID)
	return scanCertificate(row)
}

func (s *SQLStore) GetCertificateByID(ctx context.Context, id string) (Certificate, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,course_id,issued_at FROM certificates WHERE id=$1`, id)
	return scanCertificate(row)
}

func scanCertificate(row *sql.Row) (Certificate, bool, error) {
	var c Certificate
	if err := row.Scan(&c.ID, &c.UserID, &c.CourseID, &c.IssuedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Certificate{}, false, nil
		}
		return Certificate{}, false, err
	}
	return c, true, nil
}

func (s *SQLStore) AppendEvent(ctx context.Context, typ, key string, data any) error {
	dj, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(dj), time.Now().Unix())
	return err
}
