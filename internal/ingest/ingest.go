// Package ingest runs one refresh cycle: crawl every observed forum, score
// each post and persist forums, threads, authors and posts by natural key.
package ingest

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/TobiSchelling/hltvscan/internal/classify"
	"github.com/TobiSchelling/hltvscan/internal/crawl"
	"github.com/TobiSchelling/hltvscan/internal/database"
)

// Fetcher lists a forum's threads and loads a thread's posts.
type Fetcher interface {
	ListThreads(ctx context.Context, forumKey string) ([]crawl.ThreadRow, int64, error)
	LoadThread(ctx context.Context, threadKey string) (*crawl.ThreadPage, int64, error)
}

// Scorer rates one text.
type Scorer interface {
	Score(ctx context.Context, text string) (classify.Scores, error)
}

// CycleResult summarizes one refresh cycle.
type CycleResult struct {
	Forums      int
	Threads     int
	Posts       int
	ScoreErrors int
	Bytes       int64
	Started     time.Time
	Finished    time.Time
}

// MB returns the downloaded volume in megabytes.
func (r *CycleResult) MB() float64 {
	return float64(r.Bytes) / 1e6
}

// Orchestrator drives refresh cycles. It is not safe for concurrent use; the
// crawl is sequential to respect the source site's limits.
type Orchestrator struct {
	db      *database.DB
	fetcher Fetcher
	scorer  Scorer

	// Delay plus a uniform random share of Jitter is slept between threads.
	Delay  time.Duration
	Jitter time.Duration

	sleep func(time.Duration)
	now   func() time.Time
}

// New creates an orchestrator.
func New(db *database.DB, fetcher Fetcher, scorer Scorer, delay, jitter time.Duration) *Orchestrator {
	return &Orchestrator{
		db:      db,
		fetcher: fetcher,
		scorer:  scorer,
		Delay:   delay,
		Jitter:  jitter,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

// RegisterForums upserts the configured forums so they become observed.
func (o *Orchestrator) RegisterForums(forums []database.Forum) error {
	return o.db.InTx(func(tx *database.Tx) error {
		for i := range forums {
			if _, err := tx.UpsertForum(&forums[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunCycle performs one full pass over all observed forums. A fetch or
// persistence error aborts the cycle; the returned result still reports the
// work committed so far. Classifier errors only zero the affected post's
// scores.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleResult, error) {
	r := &CycleResult{Started: o.now()}
	defer func() { r.Finished = o.now() }()

	forums, err := o.db.ObservedForums()
	if err != nil {
		return r, err
	}

	for i, forum := range forums {
		log.Printf("Updating forum %d/%d: %s", i+1, len(forums), forum.Name)
		if err := o.syncForum(ctx, forum, r); err != nil {
			return r, fmt.Errorf("forum %s: %w", forum.Key, err)
		}
		r.Forums++
	}

	log.Printf("Update complete: %d threads, %d posts, %.2f MB downloaded", r.Threads, r.Posts, r.MB())
	return r, nil
}

func (o *Orchestrator) syncForum(ctx context.Context, forum database.Forum, r *CycleResult) error {
	rows, n, err := o.fetcher.ListThreads(ctx, forum.Key)
	r.Bytes += n
	if err != nil {
		return err
	}

	for i, row := range rows {
		posts, err := o.syncThread(ctx, forum, row, r)
		if err != nil {
			return fmt.Errorf("thread %s: %w", row.Key, err)
		}
		r.Threads++
		log.Printf("\tThread %d/%d: %s (%d replies)", i+1, len(rows), row.Title, posts-1)

		o.pause()
	}
	return nil
}

// syncThread loads, scores and persists one thread, returning the number of
// posts collected.
func (o *Orchestrator) syncThread(ctx context.Context, forum database.Forum, row crawl.ThreadRow, r *CycleResult) (int, error) {
	page, n, err := o.fetcher.LoadThread(ctx, row.Key)
	r.Bytes += n
	if err != nil {
		return 0, err
	}

	posts := make([]database.Post, len(page.Posts))
	authors := make([]database.Author, len(page.Posts))
	for i, item := range page.Posts {
		scores := o.score(ctx, item.Key(row.Key), item, r)
		authors[i] = database.Author{Key: item.AuthorKey, Name: item.AuthorName}
		posts[i] = database.Post{
			Key:        item.Key(row.Key),
			ReplyNum:   item.ReplyNum,
			Content:    item.Content,
			Time:       item.Time,
			HateRating: scores.Hate,
			OffRating:  scores.Offensive,
		}
	}

	thread := database.Thread{
		Key:          row.Key,
		ForumID:      forum.ID,
		Title:        row.Title,
		NumResponses: len(posts),
		Time:         page.Time,
	}
	threadAuthor := database.Author{Key: row.AuthorKey, Name: row.AuthorName}

	// The thread and its author commit before any post references them.
	err = o.db.InTx(func(tx *database.Tx) error {
		if _, err := tx.UpsertAuthor(&threadAuthor); err != nil {
			return err
		}
		thread.AuthorID = threadAuthor.ID
		_, err := tx.UpsertThread(&thread)
		return err
	})
	if err != nil {
		return 0, err
	}

	for i := range posts {
		p := &posts[i]
		a := &authors[i]
		p.ThreadID = thread.ID
		err := o.db.InTx(func(tx *database.Tx) error {
			if _, err := tx.UpsertAuthor(a); err != nil {
				return err
			}
			p.AuthorID = a.ID
			_, err := tx.UpsertPost(p)
			return err
		})
		if err != nil {
			return 0, err
		}
		r.Posts++
	}
	return len(posts), nil
}

// score rates a post as "<author>: <content>". Underscores in the author name
// become spaces so the classifier sees separate tokens; the stored name is
// unchanged.
func (o *Orchestrator) score(ctx context.Context, key string, item crawl.PostItem, r *CycleResult) classify.Scores {
	s, err := o.scorer.Score(ctx, ScoringText(item.AuthorName, item.Content))
	if err != nil {
		r.ScoreErrors++
		log.Printf("Scoring failed for %s, storing zero scores: %v", key, err)
		return classify.Scores{}
	}
	return s
}

// ScoringText builds the classifier input for a post.
func ScoringText(authorName, content string) string {
	return strings.ReplaceAll(authorName, "_", " ") + ": " + content
}

func (o *Orchestrator) pause() {
	d := o.Delay
	if o.Jitter > 0 {
		d += rand.N(o.Jitter)
	}
	if d > 0 {
		o.sleep(d)
	}
}
