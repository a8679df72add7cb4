// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Command unfinalizedctl drives core/state/unfinalized against a disk-backed
// metastore.Store, one operation per invocation. It exists to demonstrate
// the embedder contract end to end, not as a production node component.
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/lishengpeng/substrate-go/core/state/unfinalized"
	"github.com/lishengpeng/substrate-go/internal/metastore"
)

// config is the on-disk TOML config loaded with the --config flag. Flags
// passed on the command line always take priority over config values.
type config struct {
	DataDir string `toml:"datadir"`
}

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to a TOML config file",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory holding the metastore leveldb database",
		Value: "./unfinalized-data",
	}
)

func loadConfig(c *cli.Context) (config, error) {
	var cfg config
	if path := c.String(configFlag.Name); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if c.IsSet(dataDirFlag.Name) || cfg.DataDir == "" {
		cfg.DataDir = c.String(dataDirFlag.Name)
	}
	return cfg, nil
}

func openTree(cfg config) (*metastore.Store, *unfinalized.Tree[common.Hash, string], error) {
	store, err := metastore.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	tree, err := unfinalized.New[common.Hash, string](store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, tree, nil
}

func stringKey(k string) []byte { return []byte(k) }

func mustHash(c *cli.Context, name string) (common.Hash, error) {
	raw := c.String(name)
	if len(raw) != 66 || raw[:2] != "0x" {
		return common.Hash{}, fmt.Errorf("%s must be a 0x-prefixed 32-byte hash", name)
	}
	return common.HexToHash(raw), nil
}

func insertAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, tree, err := openTree(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	hash, err := mustHash(c, "hash")
	if err != nil {
		return err
	}
	parent, err := mustHash(c, "parent")
	if err != nil {
		return err
	}
	number := c.Uint64("number")
	key, value := c.String("key"), c.String("value")

	changes := unfinalized.ChangeSet[string]{}
	if key != "" {
		changes.Inserted = append(changes.Inserted, unfinalized.InsertedValue[string]{Key: key, Value: []byte(value)})
	}
	commit := tree.Insert(hash, number, parent, changes)
	if err := metastore.Apply(store, commit, stringKey); err != nil {
		return err
	}
	log.Info("Inserted unfinalized block", "hash", hash, "number", number)
	return nil
}

func finalizeAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, tree, err := openTree(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	hash, err := mustHash(c, "hash")
	if err != nil {
		return err
	}
	commit := tree.Finalize(hash)
	if err := metastore.Apply(store, commit, stringKey); err != nil {
		return err
	}
	log.Info("Finalized block", "hash", hash, "flushed", len(commit.Data.Inserted), "pruned-meta", len(commit.Meta.Deleted))
	return nil
}

func getAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, tree, err := openTree(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	key := c.String("key")
	if v, ok := tree.Get(key); ok {
		fmt.Printf("%s=%s (unfinalized overlay)\n", key, v)
		return nil
	}
	v, err := store.GetData([]byte(key))
	if err != nil {
		return err
	}
	if v != nil {
		fmt.Printf("%s=%s (finalized)\n", key, v)
		return nil
	}
	fmt.Printf("%s: not found\n", key)
	return nil
}

func replayAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, tree, err := openTree(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("replayed forest: %d unfinalized levels, %d blocks\n", tree.Depth(), tree.BlockCount())
	return nil
}

func main() {
	app := &cli.App{
		Name:  "unfinalizedctl",
		Usage: "Drive the unfinalized overlay against a leveldb-backed metastore",
		Flags: []cli.Flag{configFlag, dataDirFlag},
		Commands: []*cli.Command{
			{
				Name:  "insert",
				Usage: "Insert a block's changeset as a new overlay",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "hash", Required: true},
					&cli.StringFlag{Name: "parent", Required: true},
					&cli.Uint64Flag{Name: "number", Required: true},
					&cli.StringFlag{Name: "key"},
					&cli.StringFlag{Name: "value"},
				},
				Action: insertAction,
			},
			{
				Name:  "finalize",
				Usage: "Finalize a block and flush its diff",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "hash", Required: true},
				},
				Action: finalizeAction,
			},
			{
				Name:  "get",
				Usage: "Look up a key across the overlay forest, falling back to finalized data",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Required: true},
				},
				Action: getAction,
			},
			{
				Name:   "replay",
				Usage:  "Replay the journal and report the restored forest's shape",
				Action: replayAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Error("unfinalizedctl failed", "err", err)
		os.Exit(1)
	}
}
