package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/ledzpl/vbbs/internal/bbs"
	"github.com/ledzpl/vbbs/internal/config"
	"github.com/ledzpl/vbbs/internal/conn"
	"github.com/ledzpl/vbbs/internal/logging"
	"github.com/ledzpl/vbbs/internal/user"
	"github.com/ledzpl/vbbs/pkg/telnetserver"
)

// Version is overwritten by the build system.
var Version = "dev"

func main() {
	app := cli.NewApp()
	app.Name = path.Base(os.Args[0])
	app.Usage = "Telnet bulletin board system"
	app.Version = Version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			EnvVar: "VBBS_CONFIG",
			Usage:  "Path to the YAML configuration file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "server",
			Usage:  "Start the Telnet server",
			Action: runServer,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:   "bind-address, b",
					EnvVar: "VBBS_BIND",
					Usage:  "Telnet bind address (overrides telnet.address)",
				},
			},
		}, {
			Name:   "console",
			Usage:  "Run one session on the local terminal",
			Action: runConsole,
		}, {
			Name:      "useradd",
			Usage:     "Create an account",
			ArgsUsage: "NAME PASSWORD",
			Action:    runUserAdd,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "email, e",
					Usage: "Email address of the account",
				},
				cli.BoolFlag{
					Name:  "admin",
					Usage: "Create an administrator",
				},
			},
		}, {
			Name:   "users",
			Usage:  "List accounts",
			Action: runUsers,
		}, {
			Name:   "config",
			Usage:  "Print the effective configuration",
			Action: runConfig,
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(c.GlobalString("config"))
}

func openSystem(cfg *config.Config) (*bbs.System, error) {
	logger, closer, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, err
	}
	sys, err := bbs.Open(cfg, logger, closer)
	if err != nil {
		closer.Close()
		return nil, err
	}
	return sys, nil
}

func runServer(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("bind-address"); addr != "" {
		cfg.Telnet.Address = addr
	}

	sys, err := openSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server := telnetserver.New(cfg.Telnet.Address, cfg.Telnet.MaxConnections, sys.Logger)
	err = server.ListenAndServe(ctx, func(ctx context.Context, nc net.Conn) {
		connection, err := sys.NewConn(&conn.Telnet{
			Conn:         nc,
			PollInterval: cfg.Telnet.PollInterval,
			WriteTimeout: cfg.Telnet.WriteTimeout,
		})
		if err != nil {
			sys.Logger.Error("vbbs: connection setup failed", "remote", nc.RemoteAddr().String(), "err", err)
			nc.Close()
			return
		}
		sys.Serve(ctx, connection)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runConsole(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sys, err := openSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	connection, err := sys.NewConn(&conn.Console{In: os.Stdin, Out: os.Stdout, PollInterval: cfg.Telnet.PollInterval})
	if err != nil {
		return err
	}
	sys.Serve(ctx, connection)
	return nil
}

func runUserAdd(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.NewExitError("usage: useradd NAME PASSWORD", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := user.Open(cfg.Users.File)
	if err != nil {
		return err
	}

	kind := user.Regular
	if c.Bool("admin") {
		kind = user.Admin
	}
	u, err := store.Add(c.Args().Get(0), c.String("email"), c.Args().Get(1), kind)
	if err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}
	fmt.Printf("Created %s account %q with id %d.\n", u.Type, u.Username, u.ID)
	return nil
}

func runUsers(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := user.Open(cfg.Users.File)
	if err != nil {
		return err
	}

	users := store.All()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Username", "Email", "Type", "Last seen"})
	table.SetBorder(false)
	table.SetCaption(true, fmt.Sprintf("Total: %d users.", len(users)))
	for _, u := range users {
		table.Append([]string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Username,
			u.Email,
			u.Type.String(),
			humanize.Time(u.LastSeen),
		})
	}
	table.Render()
	return nil
}

func runConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Print(os.Stdout)
	return nil
}
