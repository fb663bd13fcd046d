package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	cli "gopkg.in/urfave/cli.v1"

	"lottochain/internal/commit"
	"lottochain/internal/draw"
)

func main() {
	a := cli.NewApp()
	a.Name = "lottoctl"
	a.Usage = "offline helpers for the commit-reveal lottery"
	a.Version = "1.0.0"
	a.Commands = []cli.Command{
		{
			Name:  "salt",
			Usage: "normalize a salt input to its 32-byte form",
			Description: `Prints the normalized salt for a raw input. An empty input yields a
fresh random salt. Keep the printed value: a lost salt makes the
ticket unrevealable and forfeits any prize.`,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "input", Usage: "raw salt (empty for random, 0x-hex, or passphrase)"},
			},
			Action: saltCmd,
		},
		{
			Name:  "commit-hash",
			Usage: "compute the commitment hash for a ticket",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "round", Usage: "round id"},
				cli.StringFlag{Name: "numbers", Usage: "comma-separated picks, e.g. 3,8,12,23,41,55"},
				cli.StringFlag{Name: "salt", Usage: "salt input (normalized before hashing)"},
				cli.StringFlag{Name: "owner", Usage: "ticket owner address"},
				cli.IntFlag{Name: "k", Value: 6, Usage: "picks per ticket"},
				cli.IntFlag{Name: "n", Value: 55, Usage: "number range upper bound"},
			},
			Action: commitHashCmd,
		},
		{
			Name:  "draw",
			Usage: "derive winning numbers from two randomness words",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "word0", Usage: "first randomness word (0x-hex, 32 bytes)"},
				cli.StringFlag{Name: "word1", Usage: "second randomness word (0x-hex, 32 bytes)"},
				cli.IntFlag{Name: "k", Value: 6, Usage: "numbers to draw"},
				cli.IntFlag{Name: "n", Value: 55, Usage: "number range upper bound"},
			},
			Action: drawCmd,
		},
	}

	if err := a.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func saltCmd(c *cli.Context) error {
	salt, err := commit.NormalizeSalt(c.String("input"))
	if err != nil {
		return err
	}
	fmt.Println(salt.Hex())
	return nil
}

func commitHashCmd(c *cli.Context) error {
	numbers, err := parseNumbers(c.String("numbers"))
	if err != nil {
		return err
	}
	salt, err := commit.NormalizeSalt(c.String("salt"))
	if err != nil {
		return err
	}
	owner := c.String("owner")
	if !common.IsHexAddress(owner) {
		return fmt.Errorf("invalid owner address %q", owner)
	}

	codec := commit.Codec{K: c.Int("k"), N: c.Int("n")}
	hash, err := codec.Hash(c.Uint64("round"), numbers, salt, common.HexToAddress(owner))
	if err != nil {
		return err
	}
	fmt.Printf("salt:   %s\n", salt.Hex())
	fmt.Printf("commit: %s\n", hash.Hex())
	return nil
}

func drawCmd(c *cli.Context) error {
	word0, err := parseWord(c.String("word0"))
	if err != nil {
		return err
	}
	word1, err := parseWord(c.String("word1"))
	if err != nil {
		return err
	}
	numbers, err := draw.Draw(c.Int("k"), c.Int("n"), word0, word1)
	if err != nil {
		return err
	}
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	fmt.Println(strings.Join(parts, ","))
	return nil
}

func parseNumbers(s string) ([]int, error) {
	if s == "" {
		return nil, fmt.Errorf("numbers are required")
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseWord(s string) (common.Hash, error) {
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return common.Hash{}, fmt.Errorf("word must be 32 bytes of 0x-hex, got %q", s)
	}
	b := common.FromHex(s)
	if len(b) != 32 {
		return common.Hash{}, fmt.Errorf("word must be 32 bytes of 0x-hex, got %q", s)
	}
	return common.BytesToHash(b), nil
}
