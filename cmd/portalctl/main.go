package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/harmonia-web/portal/cmd/portalctl/cli"
	"github.com/harmonia-web/portal/jobs"
)

const usage = `usage: portalctl [flags] <command>

commands:
  resync      enqueue a menu resync
  queue       show default queue depth
  scheduled   list scheduled tasks
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}

	redisAddr := flag.String("redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address")
	reason := flag.String("reason", "cli", "reason recorded on resync tasks")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: *redisAddr, Password: os.Getenv("REDIS_PASSWORD")})
	defer c.Close()

	if err := run(ctx, c, flag.Arg(0), *reason); err != nil {
		fmt.Fprintln(os.Stderr, "portalctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.JobsCLI, command, reason string) error {
	switch command {
	case "resync":
		info, err := c.Trigger(ctx, jobs.TaskMenuResync, reason)
		if errors.Is(err, asynq.ErrDuplicateTask) {
			fmt.Println("resync already queued")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s on %s\n", info.ID, info.Queue)
	case "queue":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	case "scheduled":
		tasks, err := c.ListScheduled(ctx, 20)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("%s %s next=%s\n", t.ID, t.Type, t.NextProcessAt.Format(time.RFC3339))
		}
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
