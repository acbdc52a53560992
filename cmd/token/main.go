// Command token mints a bearer token signed with JWT_SECRET for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nephh/twitter-clone/internal/auth"
	"github.com/nephh/twitter-clone/internal/config"
)

func main() {
	userID := flag.String("user", "", "user id to put in the token")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	token, err := auth.SignToken(cfg.JWTSecret, *userID, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
