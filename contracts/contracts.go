// Package contracts holds the lazily-compiled, process-wide cache of the
// three on-chain scripts (reserve, note, receipt). Compilation is delegated
// to the ledger's compile endpoint; this package only owns substitution of
// the cross-contract hash placeholders and once-semantics around the
// resulting singleton (spec.md §4.2 "Shared state", §9 "Global state").
package contracts

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/chaincashlabs/chaincash/boxes"
)

// Tag names one of the three compiled scripts.
type Tag string

const (
	TagReserve Tag = "reserve"
	TagNote    Tag = "note"
	TagReceipt Tag = "receipt"
)

// Compiler turns ErgoScript source into a compiled tree, via the ledger
// node's `/script/p2sAddress` endpoint or equivalent. Source and its
// compilation are opaque: this package never interprets tree bytes beyond
// hashing them for substitution.
type Compiler interface {
	Compile(ctx context.Context, source string) (boxes.ErgoTree, error)
}

// Sources bundles the three uncompiled templates. The note and receipt
// templates are expected to contain the substitution placeholders
// `$reserveContractHash` and (note only) `$receiptContractHash`.
type Sources struct {
	Reserve string
	Note    string
	Receipt string
}

// Compiled is one compiled script plus the source it was compiled from.
type Compiled struct {
	Tag      Tag
	Source   string
	ErgoTree boxes.ErgoTree
}

// contractHash is base58(blake2b256(tree_bytes[1:])) — the first byte (the
// ErgoTree header byte) is intentionally dropped before hashing; this is
// load-bearing for contract identity checks (spec.md §9).
func contractHash(tree boxes.ErgoTree) (string, error) {
	if len(tree) < 1 {
		return "", fmt.Errorf("contracts: compiled tree too short to hash: %d bytes", len(tree))
	}
	sum := blake2b.Sum256(tree[1:])
	return base58.Encode(sum[:]), nil
}

func substitute(source string, replacements map[string]string) string {
	for placeholder, value := range replacements {
		source = strings.ReplaceAll(source, placeholder, value)
	}
	return source
}

// Cache compiles reserve, receipt, and note in dependency order exactly
// once per process, then serves the result to every subsequent caller.
// Concurrent first-callers collapse onto a single compile via singleflight;
// the result is cached for good behind a sync.Once per tag.
type Cache struct {
	compiler Compiler
	sources  Sources

	group singleflight.Group

	reserveOnce sync.Once
	reserve     *Compiled
	reserveErr  error

	receiptOnce sync.Once
	receipt     *Compiled
	receiptErr  error

	noteOnce sync.Once
	note     *Compiled
	noteErr  error
}

// NewCache builds a cache around compiler and the three uncompiled sources.
// No network call happens until the first Reserve/Receipt/Note call.
func NewCache(compiler Compiler, sources Sources) *Cache {
	return &Cache{compiler: compiler, sources: sources}
}

// Reserve returns the compiled reserve contract, compiling it at most once.
func (c *Cache) Reserve(ctx context.Context) (*Compiled, error) {
	c.reserveOnce.Do(func() {
		c.reserve, c.reserveErr = c.compileOnce(ctx, TagReserve, c.sources.Reserve)
	})
	return c.reserve, c.reserveErr
}

// Receipt returns the compiled receipt contract, first compiling the
// reserve contract to obtain $reserveContractHash.
func (c *Cache) Receipt(ctx context.Context) (*Compiled, error) {
	c.receiptOnce.Do(func() {
		reserve, err := c.Reserve(ctx)
		if err != nil {
			c.receiptErr = fmt.Errorf("contracts: receipt depends on reserve: %w", err)
			return
		}
		reserveHash, err := contractHash(reserve.ErgoTree)
		if err != nil {
			c.receiptErr = err
			return
		}
		source := substitute(c.sources.Receipt, map[string]string{
			"$reserveContractHash": reserveHash,
		})
		c.receipt, c.receiptErr = c.compileOnce(ctx, TagReceipt, source)
	})
	return c.receipt, c.receiptErr
}

// Note returns the compiled note contract, first compiling reserve and
// receipt to obtain both substitution hashes.
func (c *Cache) Note(ctx context.Context) (*Compiled, error) {
	c.noteOnce.Do(func() {
		reserve, err := c.Reserve(ctx)
		if err != nil {
			c.noteErr = fmt.Errorf("contracts: note depends on reserve: %w", err)
			return
		}
		receipt, err := c.Receipt(ctx)
		if err != nil {
			c.noteErr = fmt.Errorf("contracts: note depends on receipt: %w", err)
			return
		}
		reserveHash, err := contractHash(reserve.ErgoTree)
		if err != nil {
			c.noteErr = err
			return
		}
		receiptHash, err := contractHash(receipt.ErgoTree)
		if err != nil {
			c.noteErr = err
			return
		}
		source := substitute(c.sources.Note, map[string]string{
			"$reserveContractHash": reserveHash,
			"$receiptContractHash": receiptHash,
		})
		c.note, c.noteErr = c.compileOnce(ctx, TagNote, source)
	})
	return c.note, c.noteErr
}

// All forces compilation of all three contracts and returns them.
func (c *Cache) All(ctx context.Context) (reserve, note, receipt *Compiled, err error) {
	reserve, err = c.Reserve(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	note, err = c.Note(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	receipt, err = c.Receipt(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return reserve, note, receipt, nil
}

// compileOnce funnels concurrent first-requests for the same tag through a
// single ledger compile call.
func (c *Cache) compileOnce(ctx context.Context, tag Tag, source string) (*Compiled, error) {
	v, err, _ := c.group.Do(string(tag), func() (interface{}, error) {
		tree, err := c.compiler.Compile(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("contracts: compile %s: %w", tag, err)
		}
		return &Compiled{Tag: tag, Source: source, ErgoTree: tree}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Compiled), nil
}
