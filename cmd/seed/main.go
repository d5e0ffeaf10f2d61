// Command main runs the demo data seeder for Pointchat.
package main

import (
	"context"
	"flag"
	"log"

	"pointchat/internal/bootstrap"
	"pointchat/internal/config"
	"pointchat/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 8, "Number of demo users to create")
	messagesPerChat := flag.Int("messages", 12, "Messages per seeded chat")
	shouldClean := flag.Bool("clean", false, "Clear all data before seeding")
	flag.Parse()

	log.Println("🌱 Demo Data Seeder")
	log.Println("===================")
	log.Printf("Target: %d users, %d messages/chat, clean=%v\n", *numUsers, *messagesPerChat, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	st, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = st.Close() }()

	s := seed.NewSeeder(st)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if err := s.Seed(ctx, seed.Options{Users: *numUsers, MessagesPerChat: *messagesPerChat}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✅ Seeding complete")
}
