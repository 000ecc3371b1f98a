// Command ffctl is a terminal client for a FinanceFlow server. The session is
// kept in Redis so that consecutive invocations stay signed in.
//
// Usage:
//
//	ffctl [-server URL] <command> [args]
//
// Commands:
//
//	signup <username> <email> <password>
//	login <username|email> <password>
//	whoami
//	history
//	friends [owe|get|settled]
//	add-friend <username|email>
//	ledger <friend-id>
//	remove-friend <friend-id>
//	inbox
//	act <notification-id> <action> [amount]
//	logout
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/financeflow/internal/client"
	"github.com/mmynk/financeflow/internal/config"
	"github.com/mmynk/financeflow/internal/models"
	"github.com/mmynk/financeflow/internal/session"
	"github.com/mmynk/financeflow/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	serverURL := flag.String("server", getEnv("FINANCEFLOW_URL", "http://localhost:"+cfg.Port), "server base URL")
	redisAddr := flag.String("redis", cfg.RedisAddr, "redis address for the session")
	sessionTTL := flag.Duration("session-ttl", 7*24*time.Hour, "how long a session is kept")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: ffctl [flags] <command> [args]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logging.Setup(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     *redisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}
	store := session.NewStore(rdb, *sessionTTL)

	c := client.New(&http.Client{Timeout: 15 * time.Second}, *serverURL, store, nil)
	if _, err := c.Restore(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to restore session: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, c, store, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

var errUsage = errors.New("wrong number of arguments")

func run(ctx context.Context, c *client.Client, store *session.Store, cmd string, args []string) error {
	need := func(n int) error {
		if len(args) < n {
			return errUsage
		}
		return nil
	}

	switch cmd {
	case "signup":
		if err := need(3); err != nil {
			return err
		}
		return printResult(c.Signup(ctx, args[0], args[1], args[2]))
	case "login":
		if err := need(2); err != nil {
			return err
		}
		return printResult(c.Login(ctx, args[0], args[1]))
	case "whoami":
		return printResult(c.RefreshProfile(ctx))
	case "history":
		return printResult(c.FetchHistory(ctx))
	case "friends":
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		return printResult(c.FetchFriends(ctx, filter, ""))
	case "add-friend":
		if err := need(1); err != nil {
			return err
		}
		return printResult(c.SendFriendRequest(ctx, args[0]))
	case "ledger":
		if err := need(1); err != nil {
			return err
		}
		ledger, err := c.FriendLedger(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(ledgerView{
			FriendID: ledger.FriendID,
			Activity: encodeAll(ledger.Activity),
			IOwe:     ledger.TotalIOwe,
			TheyOwe:  ledger.TotalTheyOwe,
			Net:      ledger.Net,
		}, nil)
	case "remove-friend":
		if err := need(1); err != nil {
			return err
		}
		return c.RemoveFriend(ctx, args[0])
	case "inbox":
		return printResult(c.Notifications(ctx))
	case "act":
		if err := need(2); err != nil {
			return err
		}
		var amount float64
		if len(args) > 2 {
			v, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			amount = v
		}
		return c.HandleAction(ctx, args[0], args[1], amount)
	case "logout":
		return store.Clear(ctx)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

type ledgerView struct {
	FriendID string          `json:"friendId"`
	Activity []models.Record `json:"activity"`
	IOwe     float64         `json:"iOwe"`
	TheyOwe  float64         `json:"theyOwe"`
	Net      float64         `json:"net"`
}

func encodeAll(entries []models.Entry) []models.Record {
	records := make([]models.Record, len(entries))
	for i, e := range entries {
		records[i] = models.EncodeEntry(e)
	}
	return records
}

func printResult[T any](v T, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
