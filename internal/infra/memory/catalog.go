package memory

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"classquest/internal/app"
	"classquest/internal/domain"
)

// Catalog is an in-memory implementation of app.QuizCatalog.
type Catalog struct {
	mu      sync.RWMutex
	quizzes map[int]domain.Quiz
}

func NewCatalog() *Catalog {
	return &Catalog{quizzes: make(map[int]domain.Quiz)}
}

func (c *Catalog) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quizzes[quiz.ID] = quiz
	return nil
}

func (c *Catalog) GetQuiz(_ context.Context, quizID int) (domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	quiz, ok := c.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (c *Catalog) QuizzesByClass(_ context.Context, classID int) ([]domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var quizzes []domain.Quiz
	for _, quiz := range c.quizzes {
		if quiz.ClassID == classID {
			quizzes = append(quizzes, quiz)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.Before(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

func (c *Catalog) LatestForClass(ctx context.Context, classID int) (domain.Quiz, error) {
	quizzes, err := c.QuizzesByClass(ctx, classID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if len(quizzes) == 0 {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quizzes[len(quizzes)-1], nil
}

func (c *Catalog) TitleExists(_ context.Context, title string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, quiz := range c.quizzes {
		if quiz.Title == title {
			return true, nil
		}
	}
	return false, nil
}

// CatalogCache decorates a QuizCatalog with a TTL read cache so repeated
// attempt reads avoid hitting the backing store. Lookups for the same quiz
// collapse through singleflight; expirations are spread with up to 10% jitter.
type CatalogCache struct {
	app.QuizCatalog

	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[int]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewCatalogCache(inner app.QuizCatalog, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		QuizCatalog: inner,
		ttl:         ttl,
		clock:       time.Now,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:       make(map[int]cachedQuiz),
	}
}

func (c *CatalogCache) GetQuiz(ctx context.Context, quizID int) (domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.quiz, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(strconv.Itoa(quizID), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.quiz, nil
		}
		c.mu.RUnlock()

		quiz, err := c.QuizCatalog.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedQuiz{quiz: quiz, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// SaveQuiz writes through and primes the cache; quizzes are immutable after
// creation so there is nothing to invalidate.
func (c *CatalogCache) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := c.QuizCatalog.SaveQuiz(ctx, quiz); err != nil {
		return err
	}
	c.mu.Lock()
	c.cache[quiz.ID] = cachedQuiz{quiz: quiz, expiresAt: c.clock().Add(c.ttlWithJitter())}
	c.mu.Unlock()
	return nil
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
