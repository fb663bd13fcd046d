package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"

	"lottochain/internal/oracle"
)

var log = logrus.New()

func main() {
	a := cli.NewApp()
	a.Name = "lottoracle"
	a.Usage = "dev randomness fulfiller for lottod"
	a.Version = "1.0.0"
	a.Flags = []cli.Flag{
		cli.StringFlag{Name: "rpc", Value: "http://localhost:26657", Usage: "CometBFT RPC endpoint"},
		cli.StringFlag{Name: "oracle", Usage: "oracle account address (must match the chain's oracle)"},
		cli.DurationFlag{Name: "interval", Value: 2 * time.Second, Usage: "poll interval"},
	}
	a.Action = run

	if err := a.Run(os.Args); err != nil {
		log.WithError(err).Fatal("lottoracle exited")
	}
}

func run(c *cli.Context) error {
	client, err := oracle.New(c.String("rpc"), c.String("oracle"), c.Duration("interval"), log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
