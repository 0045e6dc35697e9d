// Command main populates the configured store with demo users, posts,
// comments and likes.
package main

import (
	"context"
	"flag"
	"log"

	"socialgraph/internal/config"
	"socialgraph/internal/database"
	"socialgraph/internal/seed"
	"socialgraph/internal/service"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	postsPerUser := flag.Int("posts-per-user", defaults.PostsPerUser, "Posts written by each user")
	commentsPerPost := flag.Int("comments", defaults.CommentsPerPost, "Comments on each post")
	likeChance := flag.Float64("like-chance", defaults.LikeChance, "Probability that a user likes a given post")
	rngSeed := flag.Int64("seed", defaults.Seed, "Random seed for generated data")
	shouldClean := flag.Bool("clean", false, "Remove every document before seeding")
	preset := flag.String("preset", "", "Apply a YAML preset file instead of generated data")
	flag.Parse()

	log.Println("Social graph seeder")
	if *preset != "" {
		log.Printf("Applying preset: %s (ignoring generator flags)", *preset)
	} else {
		log.Printf("Target: %d users, %d posts each, %d comments per post, clean=%v",
			*numUsers, *postsPerUser, *commentsPerPost, *shouldClean)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	handle, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer func() {
		if err := handle.Close(ctx); err != nil {
			log.Printf("Failed to close store: %v", err)
		}
	}()

	g := service.NewGraph(handle.Backend, service.Options{
		Transactions: cfg.CascadeTransactions,
		Parallel:     cfg.GatherParallelism,
	}, nil, nil)

	if *shouldClean {
		if err := seed.Clear(ctx, handle.Backend); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var sum *seed.Summary
	if *preset != "" {
		p, err := seed.LoadPresetFile(*preset)
		if err != nil {
			log.Fatalf("Failed to load preset: %v", err)
		}
		sum, err = p.Apply(ctx, g)
		if err != nil {
			log.Fatalf("Preset seeding failed: %v", err)
		}
	} else {
		sum, err = seed.Seed(ctx, g, seed.Options{
			NumUsers:        *numUsers,
			PostsPerUser:    *postsPerUser,
			CommentsPerPost: *commentsPerPost,
			LikeChance:      *likeChance,
			Seed:            *rngSeed,
		})
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("Done: %d users, %d posts, %d comments, %d likes", sum.Users, sum.Posts, sum.Comments, sum.Likes)
}
