package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/database"
	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/repository"
	"github.com/qs3c/chathub_go_server/internal/service"
)

var (
	dryRun       = flag.Bool("dry-run", true, "Dry run mode, don't actually modify data")
	staleMinutes = flag.Int("stale-minutes", 10, "Minutes before a collecting turn is considered stale")
	reapTurns    = flag.Bool("reap-turns", true, "Settle stale collecting turns")
	expireSubs   = flag.Bool("expire-subs", true, "Expire outdated subscriptions")
	resetQuotas  = flag.Bool("reset-quotas", false, "Force reset all monthly quotas")
)

// 一次性维护工具，和常驻的 cron 服务覆盖同样的动作，用于手工补救
func main() {
	flag.Parse()

	log.Println("Starting maintenance task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	turnRepo := repository.NewTurnRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	tierService := service.NewTierService(cfg)
	subscriptionService := service.NewSubscriptionService(subRepo, userRepo, tierService, cfg)

	if *reapTurns {
		olderThan := time.Now().Add(-time.Duration(*staleMinutes) * time.Minute)
		turns, err := turnRepo.ListStaleCollecting(olderThan)
		if err != nil {
			log.Fatalf("Failed to query stale turns: %v", err)
		}
		log.Printf("Found %d stale collecting turns (older than %d minutes)", len(turns), *staleMinutes)

		if !*dryRun {
			reaped := 0
			for _, turn := range turns {
				if err := turnRepo.CancelPendingResponses(turn.ID, "响应超时"); err != nil {
					log.Printf("  turn %d: failed to settle: %v", turn.ID, err)
					continue
				}
				if moved, _ := turnRepo.TransitionStatus(turn.ID, model.TurnCollecting, model.TurnComplete); moved {
					reaped++
				}
			}
			log.Printf("Reaped %d turns", reaped)
		}
	}

	if *expireSubs {
		if *dryRun {
			log.Println("Would expire outdated subscriptions")
		} else {
			affected, err := subscriptionService.ExpireOutdated()
			if err != nil {
				log.Fatalf("Failed to expire subscriptions: %v", err)
			}
			log.Printf("Expired %d subscriptions", affected)
		}
	}

	if *resetQuotas {
		if *dryRun {
			log.Println("Would reset all monthly quotas")
		} else {
			if err := userRepo.ResetAllQuotas(time.Now()); err != nil {
				log.Fatalf("Failed to reset quotas: %v", err)
			}
			log.Println("All monthly quotas reset")
		}
	}

	if *dryRun {
		log.Println("DRY RUN MODE - no data was modified, run with -dry-run=false to apply")
	} else {
		log.Println("Maintenance completed")
	}
}
