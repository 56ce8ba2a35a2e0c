// wlctl manages a whitelist script file directly, for use on the game box
// when the rosterd service is not running. It can also enqueue background
// jobs against a running worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	"github.com/milsim-hq/rosterd/internal/roles"
	"github.com/milsim-hq/rosterd/internal/whitelist"
	"github.com/milsim-hq/rosterd/jobs"
)

func main() {
	var (
		filePath  = flag.String("file", "whitelist.sqf", "path to the whitelist script file")
		roleSpec  = flag.String("roles", "", "override role set, CODE:Description,...")
		idLen     = flag.Int("idlen", whitelist.DefaultIdentifierLength, "required identifier digit count")
		redisAddr = flag.String("redis", "127.0.0.1:6379", "redis address for sync/warm commands")
		actor     = flag.String("by", "", "operator name recorded with mutations")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	registry, err := buildRegistry(*roleSpec)
	if err != nil {
		fatal(err)
	}
	store := whitelist.NewFileStore(whitelist.NewFileSource(*filePath), whitelist.NewCodec(registry), registry, *idLen, nil)

	ctx := context.Background()
	args := flag.Args()
	switch args[0] {
	case "roles":
		for _, role := range registry.Roles() {
			fmt.Printf("%-12s %s\n", role.Code, role.Description)
		}
	case "list":
		requireArgs(args, 2, "list ROLE")
		ids, err := store.List(ctx, args[1])
		if err != nil {
			fatal(err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
	case "list-all":
		doc, err := store.ListAll(ctx)
		if err != nil {
			fatal(err)
		}
		for _, code := range doc.Codes() {
			fmt.Printf("%s (%d)\n", code, len(doc.IDs(code)))
			for _, id := range doc.IDs(code) {
				fmt.Printf("  %s\n", id)
			}
		}
	case "add":
		requireArgs(args, 3, "add ROLE STEAMID")
		if err := store.Add(ctx, args[1], args[2], whitelist.Meta{Actor: *actor}); err != nil {
			fatal(err)
		}
		fmt.Printf("added %s to %s\n", args[2], args[1])
	case "remove":
		requireArgs(args, 3, "remove ROLE STEAMID")
		if err := store.Remove(ctx, args[1], args[2], whitelist.Meta{Actor: *actor}); err != nil {
			fatal(err)
		}
		fmt.Printf("removed %s from %s\n", args[2], args[1])
	case "sync":
		enqueue(ctx, *redisAddr, func(ctx context.Context, c *jobs.Client) error {
			info, err := c.EnqueueRemoteSync(ctx, "wlctl")
			if err != nil {
				return err
			}
			fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
			return nil
		})
	case "warm":
		enqueue(ctx, *redisAddr, func(ctx context.Context, c *jobs.Client) error {
			info, err := c.EnqueueCacheWarm(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
			return nil
		})
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}
}

func buildRegistry(spec string) (*roles.Registry, error) {
	if spec != "" {
		return roles.ParseSpec(spec)
	}
	return roles.NewRegistry(roles.Defaults())
}

func enqueue(ctx context.Context, redisAddr string, fn func(context.Context, *jobs.Client) error) {
	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	if err != nil {
		fatal(err)
	}
	defer func() { _ = client.Close() }()
	if err := fn(ctx, client); err != nil {
		fatal(err)
	}
}

func requireArgs(args []string, n int, form string) {
	if len(args) < n {
		fmt.Fprintf(os.Stderr, "usage: wlctl %s\n", form)
		os.Exit(2)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "wlctl:", err)
	os.Exit(1)
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: wlctl [flags] COMMAND [args]

commands:
  roles                 print the configured role set
  list ROLE             print whitelisted identifiers for a role
  list-all              print every role with its identifiers
  add ROLE STEAMID      whitelist an identifier for a role
  remove ROLE STEAMID   remove an identifier from a role
  sync                  enqueue a remote whitelist sync job
  warm                  enqueue a cache warm job

flags:
`)
	flag.PrintDefaults()
}
