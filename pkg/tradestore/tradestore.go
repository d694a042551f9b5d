// Package tradestore persists a bet's TradeSet and ResolutionRecord to
// local disk, one file pair per bet, with atomic writes and transparent
// compression at or above a configurable trade-count threshold.
package tradestore

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hyperlicked/betagent/pkg/agenterr"
	"github.com/hyperlicked/betagent/pkg/tradeset"
	"github.com/hyperlicked/betagent/pkg/wire"
)

// DefaultCompressionThreshold matches the default fast-hash threshold:
// trade sets at or above this count are stored gzip-compressed.
const DefaultCompressionThreshold = 1000

// Store is a file-per-bet trade set store rooted at Dir.
type Store struct {
	Dir                  string
	CompressionThreshold int
}

// New builds a Store rooted at dir, creating it if necessary.
func New(dir string, compressionThreshold int) (*Store, error) {
	if compressionThreshold <= 0 {
		compressionThreshold = DefaultCompressionThreshold
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tradestore: create dir: %w", err)
	}
	return &Store{Dir: dir, CompressionThreshold: compressionThreshold}, nil
}

func (s *Store) plainPath(betID uint64) string {
	return filepath.Join(s.Dir, fmt.Sprintf("bet-%d.json", betID))
}

func (s *Store) gzPath(betID uint64) string {
	return filepath.Join(s.Dir, fmt.Sprintf("bet-%d.json.gz", betID))
}

func (s *Store) resolutionPath(betID uint64) string {
	return filepath.Join(s.Dir, fmt.Sprintf("bet-%d-resolution.json", betID))
}

// tradeSetDoc is the on-disk JSON shape of a TradeSet, using the
// canonical wire encodings for bigints and byte arrays.
type tradeSetDoc struct {
	SnapshotID string     `json:"snapshotId"`
	Mode       string     `json:"mode"`
	Root       wire.Hash32 `json:"root"`
	Trades     []tradeDoc `json:"trades"`
}

type tradeDoc struct {
	TradeID    wire.Hash32  `json:"tradeId"`
	Ticker     string       `json:"ticker"`
	Source     string       `json:"source"`
	Method     string       `json:"method"`
	EntryPrice *wire.BigInt `json:"entryPrice"`
	ExitPrice  *wire.BigInt `json:"exitPrice"`
	Won        bool         `json:"won"`
	Cancelled  bool         `json:"cancelled"`
}

func toDoc(ts *tradeset.TradeSet) tradeSetDoc {
	doc := tradeSetDoc{
		SnapshotID: ts.SnapshotID,
		Mode:       ts.Mode.String(),
		Root:       wire.Hash32(ts.Root),
		Trades:     make([]tradeDoc, len(ts.Trades)),
	}
	for i, t := range ts.Trades {
		doc.Trades[i] = tradeDoc{
			TradeID:    wire.Hash32(t.TradeID),
			Ticker:     t.Ticker,
			Source:     t.Source,
			Method:     t.Method,
			EntryPrice: wire.NewBigInt(t.EntryPrice),
			ExitPrice:  wire.NewBigInt(t.ExitPrice),
			Won:        t.Won,
			Cancelled:  t.Cancelled,
		}
	}
	return doc
}

func fromDoc(doc tradeSetDoc) *tradeset.TradeSet {
	ts := &tradeset.TradeSet{
		SnapshotID: doc.SnapshotID,
		Trades:     make([]tradeset.Trade, len(doc.Trades)),
		Root:       [32]byte(doc.Root),
	}
	if doc.Mode == tradeset.ModeFastHash.String() {
		ts.Mode = tradeset.ModeFastHash
	} else {
		ts.Mode = tradeset.ModeMerkle
	}
	for i, td := range doc.Trades {
		ts.Trades[i] = tradeset.Trade{
			TradeID:    [32]byte(td.TradeID),
			Ticker:     td.Ticker,
			Source:     td.Source,
			Method:     td.Method,
			EntryPrice: entryOrZero(td.EntryPrice),
			ExitPrice:  entryOrZero(td.ExitPrice),
			Won:        td.Won,
			Cancelled:  td.Cancelled,
		}
	}
	return ts
}

func entryOrZero(b *wire.BigInt) *big.Int {
	if b == nil {
		return big.NewInt(0)
	}
	v := b.Int
	return &v
}

// writeAtomic writes data to path via a temp file in the same directory,
// then renames over the target so readers never observe a partial write.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("tradestore: write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("tradestore: rename: %w", err)
	}
	return nil
}

// Store persists ts under betID, blocking until the write completes.
// Trade sets at or above the store's compression threshold are written
// gzip-compressed as bet-<id>.json.gz; smaller ones as plain
// bet-<id>.json. Any stale file of the other form is removed so load and
// has never observe both.
func (s *Store) Store(betID uint64, ts *tradeset.TradeSet) error {
	data, err := json.Marshal(toDoc(ts))
	if err != nil {
		return fmt.Errorf("%w: tradestore: marshal: %v", agenterr.ErrStorage, err)
	}

	if len(ts.Trades) >= s.CompressionThreshold {
		compressed, err := wire.Gzip(data)
		if err != nil {
			return fmt.Errorf("%w: tradestore: gzip: %v", agenterr.ErrStorage, err)
		}
		if err := writeAtomic(s.gzPath(betID), compressed); err != nil {
			return fmt.Errorf("%w: %v", agenterr.ErrStorage, err)
		}
		os.Remove(s.plainPath(betID))
		return nil
	}

	if err := writeAtomic(s.plainPath(betID), data); err != nil {
		return fmt.Errorf("%w: %v", agenterr.ErrStorage, err)
	}
	os.Remove(s.gzPath(betID))
	return nil
}

// StoreAsync runs Store in a goroutine and reports the result on the
// returned channel, for callers on a hot path that don't want to block on
// disk IO.
func (s *Store) StoreAsync(betID uint64, ts *tradeset.TradeSet) <-chan error {
	result := make(chan error, 1)
	go func() { result <- s.Store(betID, ts) }()
	return result
}

// Load reads back the TradeSet for betID, probing the compressed path
// first. Any failure other than a missing file is an IO error; a missing
// file is reported as agenterr.ErrNotFound.
func (s *Store) Load(betID uint64) (*tradeset.TradeSet, error) {
	data, err := s.readEither(s.gzPath(betID), s.plainPath(betID), true)
	if err != nil {
		return nil, err
	}
	var doc tradeSetDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: tradestore: unmarshal bet %d: %v", agenterr.ErrStorage, betID, err)
	}
	return fromDoc(doc), nil
}

// readEither reads primary (gzip-compressed when gzipped is true),
// falling back to secondary (plain). Returns agenterr.ErrNotFound if
// neither exists.
func (s *Store) readEither(primary, secondary string, gzipped bool) ([]byte, error) {
	if data, err := os.ReadFile(primary); err == nil {
		if gzipped {
			out, gzErr := wire.Gunzip(data)
			if gzErr != nil {
				return nil, fmt.Errorf("%w: tradestore: gunzip %s: %v", agenterr.ErrStorage, primary, gzErr)
			}
			return out, nil
		}
		return data, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: tradestore: read %s: %v", agenterr.ErrStorage, primary, err)
	}

	data, err := os.ReadFile(secondary)
	if err == nil {
		return data, nil
	}
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: bet %s not found", agenterr.ErrNotFound, filepath.Base(secondary))
	}
	return nil, fmt.Errorf("%w: tradestore: read %s: %v", agenterr.ErrStorage, secondary, err)
}

// ResolutionRecord is the per-bet artifact written at settlement
// (spec.md §3.1): the winner, the tally, and each trade's exit price and
// won flag, indexed positionally against the stored TradeSet.
type ResolutionRecord struct {
	BetID       uint64       `json:"betId"`
	Winner      string       `json:"winner"`
	WinsCount   int          `json:"winsCount"`
	ValidTrades int          `json:"validTrades"`
	IsTie       bool         `json:"isTie"`
	ExitPrices  []*wire.BigInt `json:"exitPrices"`
	Won         []bool       `json:"won"`
	SettledAt   int64        `json:"settledAt"`
}

// StoreResolution persists a bet's resolution record, overwriting any
// prior record for the same betID.
func (s *Store) StoreResolution(rec ResolutionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: tradestore: marshal resolution: %v", agenterr.ErrStorage, err)
	}
	if err := writeAtomic(s.resolutionPath(rec.BetID), data); err != nil {
		return fmt.Errorf("%w: %v", agenterr.ErrStorage, err)
	}
	return nil
}

// LoadResolution reads back betID's resolution record, or
// agenterr.ErrNotFound if none was ever stored.
func (s *Store) LoadResolution(betID uint64) (ResolutionRecord, error) {
	data, err := os.ReadFile(s.resolutionPath(betID))
	if err != nil {
		if os.IsNotExist(err) {
			return ResolutionRecord{}, fmt.Errorf("%w: resolution for bet %d not found", agenterr.ErrNotFound, betID)
		}
		return ResolutionRecord{}, fmt.Errorf("%w: tradestore: read resolution %d: %v", agenterr.ErrStorage, betID, err)
	}
	var rec ResolutionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ResolutionRecord{}, fmt.Errorf("%w: tradestore: unmarshal resolution %d: %v", agenterr.ErrStorage, betID, err)
	}
	return rec, nil
}

// Has reports whether a trade set is stored for betID, in either form.
func (s *Store) Has(betID uint64) bool {
	if _, err := os.Stat(s.gzPath(betID)); err == nil {
		return true
	}
	_, err := os.Stat(s.plainPath(betID))
	return err == nil
}

// Delete removes both possible trade-set files and the resolution
// record for betID. Missing files are not an error.
func (s *Store) Delete(betID uint64) error {
	for _, p := range []string{s.plainPath(betID), s.gzPath(betID), s.resolutionPath(betID)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: tradestore: delete %s: %v", agenterr.ErrStorage, p, err)
		}
	}
	return nil
}

// List returns the bet IDs with a stored trade set, sorted ascending.
func (s *Store) List() ([]uint64, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: tradestore: list %s: %v", agenterr.ErrStorage, s.Dir, err)
	}
	seen := make(map[uint64]bool)
	var ids []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "bet-") || strings.HasSuffix(name, "-resolution.json") {
			continue
		}
		rest := strings.TrimPrefix(name, "bet-")
		rest = strings.TrimSuffix(rest, ".json.gz")
		rest = strings.TrimSuffix(rest, ".json")
		id, err := strconv.ParseUint(rest, 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// CleanupOlderThan deletes every stored bet (trade set and resolution
// record) whose trade-set file was last modified before the cutoff.
func (s *Store) CleanupOlderThan(age time.Duration) (int, error) {
	ids, err := s.List()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-age)
	removed := 0
	for _, id := range ids {
		info, err := os.Stat(s.gzPath(id))
		if err != nil {
			info, err = os.Stat(s.plainPath(id))
		}
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := s.Delete(id); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// Stats summarizes the store's current contents.
type Stats struct {
	BetCount  int
	TotalSize int64
}

// Stats reports the number of stored bets and their total on-disk size.
func (s *Store) Stats() (Stats, error) {
	ids, err := s.List()
	if err != nil {
		return Stats{}, err
	}
	var total int64
	for _, id := range ids {
		if info, err := os.Stat(s.gzPath(id)); err == nil {
			total += info.Size()
			continue
		}
		if info, err := os.Stat(s.plainPath(id)); err == nil {
			total += info.Size()
		}
	}
	return Stats{BetCount: len(ids), TotalSize: total}, nil
}
