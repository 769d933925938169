package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-webapp/internal/domain"
	"quiz-webapp/internal/infra/feed"
)

// Store keeps the quizzes collection in Redis.
// Layout:
//
//	quiz:catalog            LIST of quiz ids in creation order
//	quiz:{id}               HASH title, subject
//	quiz:{id}:questions     LIST of JSON question documents
//
// Writes to the catalog publish on quiz:catalog:changed; subscribers reload the
// full catalog on every message.
type Store struct {
	client *redis.Client
	newID  func() string
	loader *feed.Loader
}

const (
	catalogKey     = "quiz:catalog"
	catalogChannel = "quiz:catalog:changed"
	loadTimeout    = 5 * time.Second
)

func NewStore(client *redis.Client) *Store {
	return &Store{client: client, newID: domain.NewID, loader: feed.NewLoader(loadTimeout)}
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.QuizSummary) (domain.QuizSummary, error) {
	quiz.ID = s.newID()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, quizKey(quiz.ID), "title", quiz.Title, "subject", quiz.Subject)
		pipe.RPush(ctx, catalogKey, quiz.ID)
		return nil
	})
	if err != nil {
		return domain.QuizSummary{}, fmt.Errorf("create quiz: %w", err)
	}
	s.notify(ctx)
	return quiz, nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.QuizSummary, error) {
	fields, err := s.client.HGetAll(ctx, quizKey(quizID)).Result()
	if err != nil {
		return domain.QuizSummary{}, fmt.Errorf("get quiz: %w", err)
	}
	if len(fields) == 0 {
		return domain.QuizSummary{}, domain.ErrQuizNotFound
	}
	return summaryFromHash(quizID, fields), nil
}

func (s *Store) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	raw, err := s.client.LRange(ctx, questionsKey(quizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	questions := make([]domain.Question, 0, len(raw))
	for _, doc := range raw {
		var q domain.Question
		if err := json.Unmarshal([]byte(doc), &q); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// DeleteQuiz removes the quiz hash and its catalog entry. The questions list is
// not touched.
func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, quizKey(quizID))
		pipe.LRem(ctx, catalogKey, 0, quizID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.notify(ctx)
	return nil
}

func (s *Store) AddQuestion(ctx context.Context, quizID string, question domain.Question) (domain.Question, error) {
	if err := question.Validate(); err != nil {
		return domain.Question{}, err
	}
	exists, err := s.client.Exists(ctx, quizKey(quizID)).Result()
	if err != nil {
		return domain.Question{}, fmt.Errorf("add question: %w", err)
	}
	if exists == 0 {
		return domain.Question{}, domain.ErrQuizNotFound
	}
	question.ID = s.newID()
	question.QuizID = quizID
	doc, err := json.Marshal(question)
	if err != nil {
		return domain.Question{}, fmt.Errorf("encode question: %w", err)
	}
	if err := s.client.RPush(ctx, questionsKey(quizID), doc).Err(); err != nil {
		return domain.Question{}, fmt.Errorf("add question: %w", err)
	}
	return question, nil
}

// Subscribe delivers the catalog now and after every change notification.
func (s *Store) Subscribe(ctx context.Context, query domain.CatalogQuery) (<-chan domain.Snapshot, func(), error) {
	pubsub := s.client.Subscribe(ctx, catalogChannel)
	// Wait for the subscription to be confirmed so no change is missed between
	// the initial load and the first message.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe catalog: %w", err)
	}

	subCtx, cancelCtx := context.WithCancel(ctx)
	out := make(chan domain.Snapshot, feed.Buffer)
	done := make(chan struct{})
	messages := pubsub.Channel()

	go func() {
		defer close(done)
		defer close(out)
		feed.Deliver(out, s.snapshot(subCtx, query))
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				s.loader.Changed()
				feed.Deliver(out, s.snapshot(subCtx, query))
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelCtx()
			_ = pubsub.Close()
			<-done
		})
	}
	return out, cancel, nil
}

func (s *Store) snapshot(ctx context.Context, query domain.CatalogQuery) domain.Snapshot {
	return s.loader.Snapshot(ctx, query, s.listQuizzes)
}

func (s *Store) listQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	ids, err := s.client.LRange(ctx, catalogKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, quizKey(id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}
	quizzes := make([]domain.QuizSummary, 0, len(ids))
	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		quizzes = append(quizzes, summaryFromHash(id, fields))
	}
	return quizzes, nil
}

// notify is best effort; a lost message only delays the next snapshot.
func (s *Store) notify(ctx context.Context) {
	_ = s.client.Publish(ctx, catalogChannel, "changed").Err()
}

func summaryFromHash(id string, fields map[string]string) domain.QuizSummary {
	return domain.QuizSummary{ID: id, Title: fields["title"], Subject: fields["subject"]}
}

func quizKey(quizID string) string {
	return "quiz:" + quizID
}

func questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}
