package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/kizunalabs/kizuna-backend/internal/app"
	"github.com/kizunalabs/kizuna-backend/internal/clients/openai"
	"github.com/kizunalabs/kizuna-backend/internal/db"
	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/repos"
	"github.com/kizunalabs/kizuna-backend/internal/types"
)

// Backfills embeddings for posts written before embedding was introduced or
// whose stored vector is unusable. Safe to re-run; posts that already decode
// cleanly are skipped unless -force is set.
func main() {
	var force bool
	var limit int
	var concurrency int
	flag.BoolVar(&force, "force", false, "re-embed posts that already have a usable embedding")
	flag.IntVar(&limit, "limit", 0, "limit number of posts processed")
	flag.IntVar(&concurrency, "concurrency", 4, "parallel embedding requests")
	flag.Parse()

	log, err := logger.New("production")
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := app.LoadConfig(log)

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	postRepo := repos.NewPostRepo(postgresService.DB(), log)

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	posts, err := postRepo.GetAll(ctx, nil)
	if err != nil {
		log.Error("Load posts failed", "error", err)
		os.Exit(1)
	}

	pending := make([]*types.Post, 0, len(posts))
	for _, p := range posts {
		if !force {
			if vec, decErr := repos.DecodeEmbedding(p.Embedding, cfg.Profile.EmbedDim); decErr == nil && vec != nil {
				continue
			}
		}
		pending = append(pending, p)
	}
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	log.Info("Re-embedding posts", "total", len(posts), "pending", len(pending))

	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, p := range pending {
		post := p
		g.Go(func() error {
			vectors, eErr := openaiClient.Embed(gctx, []string{post.Content})
			if eErr != nil {
				return fmt.Errorf("embed post %s: %w", post.ID, eErr)
			}
			if len(vectors) == 0 || len(vectors[0]) == 0 {
				log.Warn("Empty embedding for post", "post_id", post.ID)
				return nil
			}
			encoded, encErr := repos.EncodeEmbedding(vectors[0])
			if encErr != nil {
				return fmt.Errorf("encode post %s: %w", post.ID, encErr)
			}
			if uErr := postRepo.UpdateEmbedding(gctx, nil, post.ID, encoded); uErr != nil {
				return fmt.Errorf("update post %s: %w", post.ID, uErr)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("Re-embed run failed", "error", err)
		os.Exit(1)
	}
	log.Info("Re-embed run complete", "processed", len(pending))
}
