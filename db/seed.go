// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"

	"github.com/bankass-awards/server/auth"
	"github.com/bankass-awards/server/models"
)

// Seed is the YAML document used to populate an empty database.
type Seed struct {
	Categories []SeedCategory `yaml:"categories"`
}

type SeedCategory struct {
	Name              string          `yaml:"name"`
	Subtitle          string          `yaml:"subtitle"`
	Special           bool            `yaml:"special"`
	IsLeadershipPrize bool            `yaml:"leadershipPrize"`
	PreAssignedWinner string          `yaml:"preAssignedWinner"`
	Candidates        []SeedCandidate `yaml:"candidates"`
}

type SeedCandidate struct {
	Name          string   `yaml:"name"`
	Alias         string   `yaml:"alias"`
	Image         string   `yaml:"image"`
	Bio           string   `yaml:"bio"`
	Achievements  []string `yaml:"achievements"`
	SongCount     int      `yaml:"songCount"`
	CandidateSong string   `yaml:"candidateSong"`
	AudioFile     string   `yaml:"audioFile"`
}

// ParseSeed decodes a seed document. Unknown keys are rejected so typos
// in hand-edited files surface at startup.
func ParseSeed(r io.Reader) (Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Seed{}, fmt.Errorf("failed to parse seed: %w", err)
	}
	for i, c := range s.Categories {
		if c.Name == "" {
			return Seed{}, fmt.Errorf("seed category %d: name is required", i)
		}
		for j, cand := range c.Candidates {
			if cand.Name == "" {
				return Seed{}, fmt.Errorf("seed category %q candidate %d: name is required", c.Name, j)
			}
		}
	}
	return s, nil
}

// LoadSeedFile applies the seed file at path if the categories table is empty.
// It returns the number of categories inserted.
func LoadSeedFile(ctx context.Context, db *sqlx.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	s, err := ParseSeed(f)
	if err != nil {
		return 0, err
	}
	return ApplySeed(ctx, db, s)
}

// ApplySeed inserts the seed in a single transaction. It is a no-op when
// any category already exists, so restarts never duplicate data.
func ApplySeed(ctx context.Context, db *sqlx.DB, s Seed) (int, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.GetContext(ctx, &existing, "SELECT COUNT(*) FROM categories"); err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	if existing > 0 {
		slog.Info("seed skipped, categories already present", "count", existing)
		return 0, nil
	}

	// Creation timestamps are staggered so list order follows the file.
	base := time.Now().UTC()
	for i, c := range s.Categories {
		cat := models.Category{
			ID:                auth.GenerateID(),
			Name:              c.Name,
			Subtitle:          c.Subtitle,
			Special:           c.Special,
			IsLeadershipPrize: c.IsLeadershipPrize,
			CreatedAt:         base.Add(time.Duration(i) * time.Millisecond),
		}
		if c.PreAssignedWinner != "" {
			winner := c.PreAssignedWinner
			cat.PreAssignedWinner = &winner
		}
		if _, err := tx.NamedExecContext(ctx, InsertCategorySQL, cat); err != nil {
			return 0, fmt.Errorf("failed to insert category %q: %w", c.Name, err)
		}

		for j, sc := range c.Candidates {
			cand := models.Candidate{
				ID:            auth.GenerateID(),
				CategoryID:    cat.ID,
				Name:          sc.Name,
				Alias:         sc.Alias,
				Image:         sc.Image,
				Bio:           sc.Bio,
				Achievements:  models.StringList(sc.Achievements),
				SongCount:     sc.SongCount,
				CandidateSong: sc.CandidateSong,
				AudioFile:     sc.AudioFile,
				CreatedAt:     cat.CreatedAt.Add(time.Duration(j) * time.Microsecond),
			}
			if _, err := tx.NamedExecContext(ctx, InsertCandidateSQL, cand); err != nil {
				return 0, fmt.Errorf("failed to insert candidate %q: %w", sc.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}

	slog.Info("seed applied", "categories", len(s.Categories))
	return len(s.Categories), nil
}

// EnsureAdmin creates a SUPER_ADMIN account for email unless one with that
// email already exists. It reports whether an account was created.
func EnsureAdmin(ctx context.Context, db *sqlx.DB, email, password string) (bool, error) {
	email = auth.NormalizeEmail(email)
	if !auth.ValidEmail(email) {
		return false, fmt.Errorf("invalid admin email %q", email)
	}

	var exists bool
	err := db.GetContext(ctx, &exists, db.Rebind(`
		SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)
	`), email)
	if err != nil {
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}
	if exists {
		return false, nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}

	admin := models.User{
		ID:           auth.GenerateID(),
		Name:         "Administrateur",
		Email:        &email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := db.NamedExecContext(ctx, InsertUserSQL, admin); err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("bootstrap admin created", "user_id", admin.ID)
	return true, nil
}
