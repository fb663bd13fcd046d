package state

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store persists the state in a bbolt database. Layout:
//
//	meta    -> "state": chain-level record (rounds stripped)
//	rounds  -> big-endian round id: round record (tickets stripped)
//	tickets -> big-endian round id || big-endian seq: ticket record
//
// The ticket key's sequence number is the insertion index, so a load restores
// the exact iteration order the snapshot pass depends on. The commit-hash
// lookup index is rebuilt in memory.
type Store struct {
	db *bolt.DB
}

var (
	bucketMeta    = []byte("meta")
	bucketRounds  = []byte("rounds")
	bucketTickets = []byte("tickets")
	keyState      = []byte("state")
)

func OpenStore(home string) (*Store, error) {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir home: %w", err)
	}
	path := filepath.Join(home, "lotto.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketRounds, bucketTickets} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (st *Store) Close() error {
	return st.db.Close()
}

// Load reassembles the state, or returns (nil, nil) when the store is fresh.
func (st *Store) Load() (*State, error) {
	var out *State
	err := st.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(keyState)
		if raw == nil {
			return nil
		}
		var s State
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode state: %w", err)
		}
		s.normalize()

		err := tx.Bucket(bucketRounds).ForEach(func(k, v []byte) error {
			if len(k) != 8 {
				return fmt.Errorf("bad round key length %d", len(k))
			}
			var r Round
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode round %d: %w", binary.BigEndian.Uint64(k), err)
			}
			s.Rounds[r.ID] = &r
			return nil
		})
		if err != nil {
			return err
		}

		// Ticket keys sort by (round id, seq), which is insertion order.
		err = tx.Bucket(bucketTickets).ForEach(func(k, v []byte) error {
			if len(k) != 16 {
				return fmt.Errorf("bad ticket key length %d", len(k))
			}
			rid := binary.BigEndian.Uint64(k[:8])
			r, ok := s.Rounds[rid]
			if !ok {
				return fmt.Errorf("ticket for unknown round %d", rid)
			}
			var t Ticket
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("decode ticket %x: %w", k, err)
			}
			r.Tickets = append(r.Tickets, &t)
			return nil
		})
		if err != nil {
			return err
		}

		out = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes the whole state in one transaction. Round and ticket records are
// never destroyed, so upserts suffice.
func (st *Store) Save(s *State) error {
	return st.db.Update(func(tx *bolt.Tx) error {
		// Strip rounds from the meta record; they live in their own buckets.
		shallow := *s
		shallow.Rounds = nil
		metaRaw, err := json.Marshal(&shallow)
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		if err := tx.Bucket(bucketMeta).Put(keyState, metaRaw); err != nil {
			return err
		}

		roundsB := tx.Bucket(bucketRounds)
		ticketsB := tx.Bucket(bucketTickets)
		for id, r := range s.Rounds {
			shallowRound := *r
			shallowRound.Tickets = nil
			raw, err := json.Marshal(&shallowRound)
			if err != nil {
				return fmt.Errorf("encode round %d: %w", id, err)
			}
			if err := roundsB.Put(u64be(id), raw); err != nil {
				return err
			}
			for seq, t := range r.Tickets {
				raw, err := json.Marshal(t)
				if err != nil {
					return fmt.Errorf("encode ticket %d/%d: %w", id, seq, err)
				}
				key := make([]byte, 16)
				binary.BigEndian.PutUint64(key[:8], id)
				binary.BigEndian.PutUint64(key[8:], uint64(seq))
				if err := ticketsB.Put(key, raw); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func u64be(x uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, x)
	return b
}
