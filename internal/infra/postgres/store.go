package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"quiz-webapp/internal/domain"
	"quiz-webapp/internal/infra/feed"
)

// notifyChannel is raised by the quizzes_changed trigger on every catalog write.
const notifyChannel = "quizzes_changed"

const loadTimeout = 5 * time.Second

// Store keeps quizzes and questions in Postgres and turns LISTEN/NOTIFY into a
// live catalog subscription.
type Store struct {
	pool   *pgxpool.Pool
	newID  func() string
	logger *zap.Logger
	loader *feed.Loader
}

func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{pool: pool, newID: domain.NewID, loader: feed.NewLoader(loadTimeout), logger: logger.Named("postgres")}
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.QuizSummary) (domain.QuizSummary, error) {
	quiz.ID = s.newID()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, title, subject) VALUES ($1, $2, $3)`,
		quiz.ID, quiz.Title, quiz.Subject)
	if err != nil {
		return domain.QuizSummary{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.QuizSummary, error) {
	quiz := domain.QuizSummary{ID: quizID}
	err := s.pool.QueryRow(ctx,
		`SELECT title, subject FROM quizzes WHERE id = $1`, quizID).
		Scan(&quiz.Title, &quiz.Subject)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSummary{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizSummary{}, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, question_text, options, correct_answer_index
		FROM questions WHERE quiz_id = $1 ORDER BY position`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q := domain.Question{QuizID: quizID}
		var options []string
		if err := rows.Scan(&q.ID, &q.Text, &options, &q.CorrectIndex); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if len(options) != domain.OptionCount {
			return nil, fmt.Errorf("question %s: %w: %d options stored", q.ID, domain.ErrInvalidQuestion, len(options))
		}
		copy(q.Options[:], options)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// DeleteQuiz removes the quiz row. Question rows are left as they are.
func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

func (s *Store) AddQuestion(ctx context.Context, quizID string, question domain.Question) (domain.Question, error) {
	if err := question.Validate(); err != nil {
		return domain.Question{}, err
	}
	question.ID = s.newID()
	question.QuizID = quizID
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO questions (id, quiz_id, question_text, options, correct_answer_index)
		SELECT $1::text, $2::text, $3::text, $4::text[], $5::smallint
		WHERE EXISTS (SELECT 1 FROM quizzes WHERE id = $2::text)`,
		question.ID, quizID, question.Text, question.Options[:], question.CorrectIndex)
	if err != nil {
		return domain.Question{}, fmt.Errorf("add question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Question{}, domain.ErrQuizNotFound
	}
	return question, nil
}

// Subscribe holds one pooled connection in LISTEN mode for the lifetime of the
// subscription and reloads the catalog on every notification.
func (s *Store) Subscribe(ctx context.Context, query domain.CatalogQuery) (<-chan domain.Snapshot, func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe catalog: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, nil, fmt.Errorf("subscribe catalog: %w", err)
	}

	subCtx, cancelCtx := context.WithCancel(ctx)
	out := make(chan domain.Snapshot, feed.Buffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		defer s.release(conn)

		feed.Deliver(out, s.snapshot(subCtx, query))
		for {
			if _, err := conn.Conn().WaitForNotification(subCtx); err != nil {
				if subCtx.Err() != nil {
					return
				}
				s.logger.Error("wait for catalog notification failed", zap.Error(err))
				feed.Deliver(out, domain.Snapshot{Err: err})
				return
			}
			s.loader.Changed()
			feed.Deliver(out, s.snapshot(subCtx, query))
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelCtx()
			<-done
		})
	}
	return out, cancel, nil
}

func (s *Store) release(conn *pgxpool.Conn) {
	if !conn.Conn().IsClosed() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if _, err := conn.Exec(ctx, "UNLISTEN "+notifyChannel); err != nil {
			s.logger.Warn("unlisten failed", zap.Error(err))
		}
		cancel()
	}
	conn.Release()
}

func (s *Store) snapshot(ctx context.Context, query domain.CatalogQuery) domain.Snapshot {
	return s.loader.Snapshot(ctx, query, s.listQuizzes)
}

func (s *Store) listQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, subject FROM quizzes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := []domain.QuizSummary{}
	for rows.Next() {
		var q domain.QuizSummary
		if err := rows.Scan(&q.ID, &q.Title, &q.Subject); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}
