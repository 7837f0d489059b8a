package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"xydo.org/internal/api"
	"xydo.org/internal/auth"
	"xydo.org/internal/config"
	"xydo.org/internal/kv"
	"xydo.org/internal/session"
)

func main() {
	log.SetFlags(0)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sess := session.NewStore(kv.NewMemory())
	client := api.New(cfg.APIURL, sess)

	email := fmt.Sprintf("smoke-%d@xydo.dev", time.Now().UnixNano())
	const password = "smoke-pass"

	reg, err := client.Register(ctx, api.RegisterRequest{Name: "Smoke Test", Email: email, Password: password, Role: auth.RolePlayer})
	if err != nil {
		log.Fatalf("register: %v", err)
	}
	if reg.Token == "" {
		log.Printf("register: no token issued (%s), logging in", reg.Message)
	}

	if _, err := client.Login(ctx, email, password); err != nil {
		if api.RequiresVerification(err) {
			log.Fatalf("login: server requires email verification; run the dev server without -require-verification")
		}
		log.Fatalf("login: %v", err)
	}
	if _, ok := sess.GetToken(ctx); !ok {
		log.Fatal("login: token was not stored")
	}

	me, err := client.Me(ctx)
	if err != nil {
		log.Fatalf("me: %v", err)
	}
	if me.Data.Email != email {
		log.Fatalf("me: unexpected email %q", me.Data.Email)
	}

	content, err := client.ListContent(ctx, 0)
	if err != nil {
		log.Fatalf("content: %v", err)
	}

	if err := client.Logout(ctx); err != nil {
		log.Fatalf("logout: %v", err)
	}
	if _, ok := sess.GetToken(ctx); ok {
		log.Fatal("logout: token still stored")
	}

	fmt.Printf("xydo smoke test passed: user=%s content=%d\n", me.Data.Identifier(), len(content.Data))
}
