// Package chat stores messages from observed chat channels as posts in the
// forum schema. Each channel is a thread under a placeholder forum whose key
// has no "/", so the forum scraper never crawls it.
package chat

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TobiSchelling/hltvscan/internal/classify"
	"github.com/TobiSchelling/hltvscan/internal/config"
	"github.com/TobiSchelling/hltvscan/internal/database"
	"github.com/TobiSchelling/hltvscan/internal/ingest"
)

// SystemAuthor owns the channel threads.
var SystemAuthor = database.Author{Key: "-1", Name: "Discord"}

// ReplyNum marks chat messages, which have no position in a thread.
const ReplyNum = -1

// Message is one chat message.
type Message struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Content    string
	CreatedAt  time.Time
}

// PostKey returns the natural key of a chat message.
func (m Message) PostKey() string {
	return m.ChannelID + "#" + m.ID
}

// Ingester persists chat messages from observed channels. Handle is safe for
// concurrent use; writes are serialized.
type Ingester struct {
	db      *database.DB
	scorer  ingest.Scorer
	threads map[string]int64 // channel ID -> ThreadID
	mu      sync.Mutex

	Stored      atomic.Int64
	ScoreErrors atomic.Int64
}

// NewIngester registers the placeholder forum, the system author and one
// thread per channel. Existing channel threads keep their creation time and
// response count.
func NewIngester(db *database.DB, scorer ingest.Scorer, forum config.Forum, channels []config.Channel) (*Ingester, error) {
	in := &Ingester{db: db, scorer: scorer, threads: make(map[string]int64)}

	err := db.InTx(func(tx *database.Tx) error {
		f := database.Forum{Key: forum.ID, Name: forum.Name}
		if _, err := tx.UpsertForum(&f); err != nil {
			return err
		}
		author := SystemAuthor
		if _, err := tx.UpsertAuthor(&author); err != nil {
			return err
		}
		for _, ch := range channels {
			th := database.Thread{Key: ch.ID, ForumID: f.ID, AuthorID: author.ID, Title: ch.Name}
			if _, err := tx.SeedThread(&th); err != nil {
				return err
			}
			in.threads[ch.ID] = th.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

// Observes reports whether messages from the channel are stored.
func (in *Ingester) Observes(channelID string) bool {
	_, ok := in.threads[channelID]
	return ok
}

// Handle scores and stores one message. Messages from other channels are
// ignored. A classifier failure stores zero scores.
//
// The author name is scored as posted; unlike forum posts, chat names keep
// their underscores.
func (in *Ingester) Handle(ctx context.Context, m Message) error {
	threadID, ok := in.threads[m.ChannelID]
	if !ok {
		return nil
	}

	scores, err := in.scorer.Score(ctx, m.AuthorName+": "+m.Content)
	if err != nil {
		in.ScoreErrors.Add(1)
		scores = classify.Scores{}
		log.Printf("Scoring failed for message %s, storing zero scores: %v", m.PostKey(), err)
	}

	author := database.Author{Key: m.AuthorID, Name: m.AuthorName}
	post := database.Post{
		Key:        m.PostKey(),
		ThreadID:   threadID,
		ReplyNum:   ReplyNum,
		Content:    m.Content,
		Time:       m.CreatedAt,
		HateRating: scores.Hate,
		OffRating:  scores.Offensive,
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	err = in.db.InTx(func(tx *database.Tx) error {
		if _, err := tx.UpsertAuthor(&author); err != nil {
			return err
		}
		post.AuthorID = author.ID
		_, err := tx.UpsertPost(&post)
		return err
	})
	if err != nil {
		return err
	}
	in.Stored.Add(1)
	return nil
}
