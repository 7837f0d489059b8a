package devserver

import (
	"context"
	"fmt"

	"xydo.org/internal/auth"
)

// Demo accounts created by Seed. All share SeedPassword.
const (
	SeedCoachEmail  = "coach@xydo.dev"
	SeedPlayerEmail = "player@xydo.dev"
	SeedAdminEmail  = "admin@xydo.dev"
	SeedPassword    = "password"
)

// Seed fills an empty directory with demo accounts, a team and two weeks of
// content.
func Seed(ctx context.Context, d *Directory) error {
	users := []NewUser{
		{Name: "Demo Coach", Email: SeedCoachEmail, Role: auth.RoleCoach, Team: "XY-DO Elite"},
		{Name: "Demo Player", Email: SeedPlayerEmail, Role: auth.RolePlayer, Team: "XY-DO Elite"},
		{Name: "Demo Admin", Email: SeedAdminEmail, Role: auth.RoleAdmin},
	}
	for _, u := range users {
		u.Password = SeedPassword
		u.Verified = true
		if _, err := d.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}
	docs := []struct {
		collection string
		rec        Record
	}{
		{Teams, Record{"name": "XY-DO Elite"}},
		{Content, Record{"week": 1.0, "title": "Ball Handling Foundations", "description": "Stationary and moving dribble series.", "role": "both"}},
		{Content, Record{"week": 1.0, "title": "Practice Plan: Week 1", "description": "Session structure and coaching points.", "role": "coach"}},
		{Content, Record{"week": 2.0, "title": "Finishing at the Rim", "description": "Layup package and footwork.", "role": "player"}},
	}
	for _, doc := range docs {
		if _, err := d.Create(ctx, doc.collection, doc.rec); err != nil {
			return fmt.Errorf("seed %s: %w", doc.collection, err)
		}
	}
	return nil
}
