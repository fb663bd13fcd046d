package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	"github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"

	"lottochain/internal/app"
	"lottochain/internal/config"
)

var log = logrus.New()

func main() {
	a := cli.NewApp()
	a.Name = "lottod"
	a.Usage = "commit-reveal lottery chain (ABCI application)"
	a.Version = "1.0.0"
	a.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to TOML config file"},
		cli.StringFlag{Name: "home", Usage: "app home directory (overrides config)"},
		cli.StringFlag{Name: "addr", Usage: "ABCI listen address (overrides config)"},
		cli.StringFlag{Name: "transport", Usage: "ABCI transport: socket|grpc (overrides config)"},
		cli.BoolFlag{Name: "dev", Usage: "enable the bank/mint faucet"},
		cli.StringFlag{Name: "owner", Usage: "genesis owner address (fresh chains only)"},
		cli.StringFlag{Name: "oracle", Usage: "genesis oracle address (fresh chains only)"},
	}
	a.Action = run

	if err := a.Run(os.Args); err != nil {
		log.WithError(err).Fatal("lottod exited")
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("home"); v != "" {
		cfg.Node.Home = v
	}
	if v := c.String("addr"); v != "" {
		cfg.Node.Listen = v
	}
	if v := c.String("transport"); v != "" {
		cfg.Node.Transport = v
	}
	if c.Bool("dev") {
		cfg.Node.Dev = true
	}
	if v := c.String("owner"); v != "" {
		cfg.Genesis.Owner = v
	}
	if v := c.String("oracle"); v != "" {
		cfg.Genesis.Oracle = v
	}

	application, err := app.New(cfg.Node.Home, app.Options{
		Owner:   cfg.Genesis.Owner,
		Oracle:  cfg.Genesis.Oracle,
		Params:  cfg.Params(),
		DevMode: cfg.Node.Dev,
	})
	if err != nil {
		return err
	}
	defer func() { _ = application.Close() }()

	srv, err := server.NewServer(cfg.Node.Listen, cfg.Node.Transport, application)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() { _ = srv.Stop() }()

	log.WithFields(logrus.Fields{
		"listen":    cfg.Node.Listen,
		"transport": cfg.Node.Transport,
		"home":      cfg.Node.Home,
		"dev":       cfg.Node.Dev,
	}).Info("lottod started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	return nil
}
