package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classquest/internal/domain"
)

// Catalog implements app.QuizCatalog on Postgres. Each quiz is one row with
// the full document (questions included) as JSONB; class and title are lifted
// into columns for filtering and the uniqueness constraint.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO quizzes (id, class_id, title, created_at, data) VALUES ($1, $2, $3, $4, $5)`,
		quiz.ID, quiz.ClassID, quiz.Title, quiz.CreatedAt, data)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (c *Catalog) GetQuiz(ctx context.Context, quizID int) (domain.Quiz, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return unmarshalQuiz(raw)
}

func (c *Catalog) QuizzesByClass(ctx context.Context, classID int) ([]domain.Quiz, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT data FROM quizzes WHERE class_id=$1 ORDER BY created_at`, classID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quiz, err := unmarshalQuiz(raw)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (c *Catalog) LatestForClass(ctx context.Context, classID int) (domain.Quiz, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx,
		`SELECT data FROM quizzes WHERE class_id=$1 ORDER BY created_at DESC LIMIT 1`, classID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load latest quiz: %w", err)
	}
	return unmarshalQuiz(raw)
}

func (c *Catalog) TitleExists(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := c.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quizzes WHERE title=$1)`, title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check title: %w", err)
	}
	return exists, nil
}

func unmarshalQuiz(raw []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}
