// Package config loads the node configuration from a TOML file, with CLI
// flags layered on top by the daemons.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"lottochain/internal/state"
)

type Node struct {
	Home      string `toml:"home"`
	Listen    string `toml:"listen"`
	Transport string `toml:"transport"` // socket | grpc
	Dev       bool   `toml:"dev"`       // enables the bank/mint faucet
}

type Genesis struct {
	Owner       string    `toml:"owner"`
	Oracle      string    `toml:"oracle"`
	K           int       `toml:"k"`
	N           int       `toml:"n"`
	TicketPrice uint64    `toml:"ticket_price"`
	FeeBps      uint32    `toml:"fee_bps"`
	PrizeBps    [3]uint32 `toml:"prize_bps"`
	VrfPrice    uint64    `toml:"vrf_price"`
	GraceSecs   uint64    `toml:"grace_secs"`
}

type Config struct {
	Node    Node    `toml:"node"`
	Genesis Genesis `toml:"genesis"`
}

func Default() Config {
	return Config{
		Node: Node{
			Home:      ".lotto",
			Listen:    "tcp://127.0.0.1:26658",
			Transport: "socket",
		},
		Genesis: Genesis{
			K:           6,
			N:           55,
			TicketPrice: 1_000_000,
			FeeBps:      500,
			PrizeBps:    [3]uint32{7000, 2000, 500},
			VrfPrice:    100_000,
			GraceSecs:   state.DefaultGraceSecs,
		},
	}
}

// Load reads path over the defaults. Unset file fields keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Params().Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %v", path, err)
	}
	return cfg, nil
}

// Params converts the genesis section into chain parameters.
func (c Config) Params() state.Params {
	return state.Params{
		K:           c.Genesis.K,
		N:           c.Genesis.N,
		TicketPrice: c.Genesis.TicketPrice,
		FeeBps:      c.Genesis.FeeBps,
		PrizeBps:    c.Genesis.PrizeBps,
		VrfPrice:    c.Genesis.VrfPrice,
		GraceSecs:   c.Genesis.GraceSecs,
	}
}
