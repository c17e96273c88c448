package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// RunDiscord connects with a bot token and feeds channel messages to the
// ingester until ctx is done.
func RunDiscord(ctx context.Context, token string, in *Ingester) error {
	if token == "" {
		return fmt.Errorf("discord token not configured")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	// One message at a time, in gateway order.
	dg.SyncEvents = true

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as %s", r.User.Username)
	})
	dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || !in.Observes(m.ChannelID) {
			return
		}
		msg := Message{
			ID:         m.ID,
			ChannelID:  m.ChannelID,
			AuthorID:   m.Author.ID,
			AuthorName: m.Author.Username,
			Content:    m.ContentWithMentionsReplaced(),
			CreatedAt:  m.Timestamp,
		}
		if err := in.Handle(ctx, msg); err != nil {
			log.Printf("Storing message %s failed: %v", msg.PostKey(), err)
		}
	})

	if err := dg.Open(); err != nil {
		return fmt.Errorf("opening discord connection: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Printf("Disconnecting, %d message(s) stored", in.Stored.Load())
	return nil
}
