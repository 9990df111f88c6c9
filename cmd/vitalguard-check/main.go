// vitalguard-check prints what the profile store and the Redis mirror hold
// for one patient.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"vitalguard/internal/cache"
	"vitalguard/internal/config"
	"vitalguard/internal/database"
	"vitalguard/internal/models"
	"vitalguard/internal/repository"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	patientID := cfg.Patient.ID
	if len(os.Args) > 1 {
		patientID = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Printf("=== Checking patient %s ===\n", patientID)

	// 1. profile store
	if cfg.Backends.DatabaseEnabled {
		checkProfileStore(ctx, cfg, patientID)
	} else {
		fmt.Println("\nProfile store: DB_HOST not set, skipped")
	}

	// 2. realtime mirror
	if cfg.Backends.RedisEnabled {
		checkMirror(ctx, cfg, patientID)
	} else {
		fmt.Println("\nRedis mirror: REDIS_ADDR not set, skipped")
	}
}

func checkProfileStore(ctx context.Context, cfg *config.Config, patientID string) {
	fmt.Println("\nProfile store:")
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		fmt.Printf("  ❌ %v\n", err)
		return
	}
	defer db.Close()

	logger := zap.NewNop()
	p := repository.NewPersistence(
		repository.NewProfileRepository(db, logger),
		repository.NewEmergencyLogRepository(db, logger),
		logger,
	)
	state, err := p.Load(ctx, patientID, 10)
	if err != nil {
		fmt.Printf("  ❌ %v\n", err)
		return
	}

	fmt.Printf("  ✅ %s, age %d\n", state.Profile.Name, state.Profile.Age)
	fmt.Printf("  location: %s\n", state.Location.Address)

	fmt.Printf("  medications (%d):\n", len(state.Medications))
	for _, m := range state.Medications {
		fmt.Printf("    %s %s %s at %s taken=%v reminder_sent=%v\n",
			m.ID, m.Name, m.Dosage, m.Time, m.Taken, m.ReminderSent)
		if _, err := m.DueMinutes(); err != nil {
			fmt.Printf("      ❌ %v\n", err)
		}
	}

	fmt.Printf("  contacts (%d):\n", len(state.Contacts))
	for _, c := range state.Contacts {
		fmt.Printf("    %s %s (%s) %s primary=%v\n", c.ID, c.Name, c.Relation, c.Phone, c.IsPrimary)
	}
	if _, ok := models.PrimaryContact(state.Contacts); !ok {
		fmt.Println("    ❌ no contacts, caregiver alerts cannot be delivered")
	}

	fmt.Printf("  recent emergency log (%d):\n", len(state.Logs))
	printLogs(state.Logs)
}

func checkMirror(ctx context.Context, cfg *config.Config, patientID string) {
	fmt.Println("\nRedis mirror:")
	client, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		fmt.Printf("  ❌ %v\n", err)
		return
	}
	defer client.Close()

	mirror := cache.NewMirror(client, cfg.Cache.KeyPrefix, time.Duration(cfg.Cache.SnapshotTTL)*time.Second, zap.NewNop())
	state, err := mirror.GetSnapshot(ctx, patientID)
	if err != nil {
		fmt.Printf("  ❌ %v (engine not running or snapshot expired)\n", err)
		return
	}

	v := state.Vitals
	fmt.Printf("  ✅ status %s\n", state.Status)
	fmt.Printf("  vitals: HR %.0f, BP %.0f/%.0f, temp %.1f\n", v.HeartRate, v.Systolic, v.Diastolic, v.Temperature)
	if s := state.Session; s != nil {
		fmt.Printf("  session: reason=%s test=%v countdown=%d\n", s.Reason, s.TestMode, s.Countdown)
	}
	if in := state.Insight; in != nil {
		fmt.Printf("  insight (%s): %s\n", in.Category, in.Content)
	}

	n, err := client.XLen(ctx, mirror.LogStream(patientID)).Result()
	if err != nil {
		fmt.Printf("  ❌ emergency log stream: %v\n", err)
		return
	}
	fmt.Printf("  emergency log stream: %d messages\n", n)
}

func printLogs(entries []models.EmergencyLogEntry) {
	for _, e := range entries {
		mark := "open"
		if e.Resolved {
			mark = "resolved"
		}
		fmt.Printf("    %s [%s] %s (%s): %s\n",
			e.Timestamp.Format("2006-01-02 15:04"), mark, e.Type, e.ID, e.Notes)
	}
}
