// Package seed provides helpers to create demo data for the application
// store. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"pointchat/internal/directory"
	"pointchat/internal/messaging"
	"pointchat/internal/models"
	"pointchat/internal/store"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// demoPassword is the login password of every seeded account.
const demoPassword = "Demo$Passw0rd123"

// demoEmailDomain marks seeded accounts; Seed is idempotent per email.
const demoEmailDomain = "demo.pointchat.dev"

// Options control how much demo data Seed generates.
type Options struct {
	Users           int
	MessagesPerChat int
}

// DefaultOptions returns a small but lively demo dataset shape.
func DefaultOptions() Options {
	return Options{Users: 8, MessagesPerChat: 12}
}

// Seeder populates the store with demo users, chats, and message history.
type Seeder struct {
	store     store.Store
	directory *directory.Service
	messages  *messaging.Service
	rand      *rand.Rand
}

// NewSeeder creates a seeder over the given store.
func NewSeeder(st store.Store) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		store:     st,
		directory: directory.NewService(st),
		messages:  messaging.NewService(st, nil),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed creates the demo dataset: users, a chat between each adjacent pair,
// and a short message history per chat. Re-running against a seeded store
// reuses the existing demo accounts instead of duplicating them.
func (s *Seeder) Seed(ctx context.Context, opts Options) error {
	if opts.Users < 2 {
		opts = DefaultOptions()
	}

	users, err := s.DemoUsers(ctx, opts.Users)
	if err != nil {
		return err
	}

	for i := 0; i+1 < len(users); i++ {
		a, b := users[i], users[i+1]
		chat, cerr := s.directory.FindOrCreateChat(ctx, a.ID, b.ID)
		if cerr != nil {
			return fmt.Errorf("seed chat %s/%s: %w", a.Username, b.Username, cerr)
		}
		if err := s.seedConversation(ctx, chat.ID, a.ID, b.ID, opts.MessagesPerChat); err != nil {
			return err
		}
	}

	log.Printf("Seeded %d demo users (password %q)", len(users), demoPassword)
	return nil
}

// DemoUsers ensures n demo accounts exist and returns them. Accounts are
// keyed by deterministic demo emails, so repeat runs find rather than create.
func (s *Seeder) DemoUsers(ctx context.Context, n int) ([]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("demo%d@%s", i+1, demoEmailDomain)

		existing, qerr := s.store.Query(ctx, store.UsersCollection,
			store.Query{}.Where("email", store.OpEqual, email))
		if qerr != nil {
			return nil, fmt.Errorf("query demo user: %w", qerr)
		}
		if len(existing) > 0 {
			if u, derr := models.UserFromDoc(existing[0]); derr == nil {
				users = append(users, u)
			}
			continue
		}

		now := time.Now().UTC()
		doc, cerr := s.store.Create(ctx, store.UsersCollection, map[string]any{
			"username":     fmt.Sprintf("demo_%s%d", gofakeit.NounAbstract(), i+1),
			"email":        email,
			"passwordHash": string(hash),
			"avatar":       fmt.Sprintf("https://picsum.photos/seed/%s/200/200", gofakeit.UUID()),
			"bio":          gofakeit.Quote(),
			"isOnline":     false,
			"lastSeen":     now,
			"createdAt":    now,
		})
		if cerr != nil {
			return nil, fmt.Errorf("create demo user: %w", cerr)
		}

		u, derr := models.UserFromDoc(doc)
		if derr != nil {
			return nil, fmt.Errorf("decode demo user: %w", derr)
		}
		users = append(users, u)
	}
	return users, nil
}

// ClearAll removes every user and chat document. Demo data only; there is no
// selective cleanup of hand-created accounts.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if _, err := s.store.DeleteCollection(ctx, store.ChatsCollection); err != nil {
		return fmt.Errorf("clear chats: %w", err)
	}
	if _, err := s.store.DeleteCollection(ctx, store.UsersCollection); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	return nil
}

// seedConversation alternates messages between the two participants, with an
// occasional image message so chat lists show the placeholder preview.
func (s *Seeder) seedConversation(ctx context.Context, chatID, userA, userB string, count int) error {
	// Skip chats that already have history so reseeding stays idempotent.
	existing, err := s.messages.ListMessages(ctx, chatID, 1)
	if err != nil {
		return fmt.Errorf("check chat history: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	sender, other := userA, userB
	for i := 0; i < count; i++ {
		in := messaging.PostMessageInput{Text: gofakeit.Sentence(s.rand.Intn(8) + 3)}
		if s.rand.Intn(6) == 0 {
			in = messaging.PostMessageInput{
				Type:     models.MessageTypeImage,
				MediaURL: fmt.Sprintf("https://picsum.photos/seed/%s/300/200", gofakeit.UUID()),
			}
		}

		if _, err := s.messages.PostMessage(ctx, chatID, sender, in); err != nil {
			return fmt.Errorf("seed message: %w", err)
		}

		if s.rand.Intn(3) > 0 {
			sender, other = other, sender
		}
	}
	return nil
}
