// Package snapshot handles the lower level support for writing labeled
// chain snapshots to disk as JSON documents.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
)

// maxPerLabel caps how many snapshot files are kept for any one label. Older
// files beyond the cap are pruned on every save.
const maxPerLabel = 5

// Document is the on-disk representation of one chain snapshot.
type Document struct {
	NodeID  string        `json:"node_id"`
	Label   string        `json:"label"`
	SavedAt time.Time     `json:"saved_at"`
	Length  int           `json:"length"`
	Blocks  []chain.Block `json:"blocks"`
}

// Storage manages writing chain snapshots into a directory.
type Storage struct {
	mu     sync.Mutex
	dir    string
	nodeID string
}

// New provides access to snapshot storage, creating the directory if needed.
func New(dir string, nodeID string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	strg := Storage{
		dir:    dir,
		nodeID: nodeID,
	}

	return &strg, nil
}

// Save writes the specified blocks to a new timestamped snapshot file and
// prunes older files carrying the same label.
func (strg *Storage) Save(label string, blocks []chain.Block) (string, error) {
	strg.mu.Lock()
	defer strg.mu.Unlock()

	doc := Document{
		NodeID:  strg.nodeID,
		Label:   label,
		SavedAt: time.Now().UTC(),
		Length:  len(blocks),
		Blocks:  blocks,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}

	name := fmt.Sprintf("chain_%s_%s_%d.json", strg.nodeID, label, doc.SavedAt.UnixNano())
	path := filepath.Join(strg.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	strg.prune(label)

	return path, nil
}

// Load reads the most recent snapshot for the specified label.
func (strg *Storage) Load(label string) (Document, error) {
	strg.mu.Lock()
	defer strg.mu.Unlock()

	files := strg.files(label)
	if len(files) == 0 {
		return Document{}, fmt.Errorf("no snapshot with label %q", label)
	}

	data, err := os.ReadFile(files[len(files)-1])
	if err != nil {
		return Document{}, fmt.Errorf("reading snapshot: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("unmarshaling snapshot: %w", err)
	}

	return doc, nil
}

// prune removes the oldest snapshot files for a label beyond the retention
// cap. Save failures and prune failures are independent, so errors here are
// swallowed.
func (strg *Storage) prune(label string) {
	files := strg.files(label)
	if len(files) <= maxPerLabel {
		return
	}

	for _, path := range files[:len(files)-maxPerLabel] {
		os.Remove(path)
	}
}

// files returns the snapshot file paths for a label, oldest first. The
// timestamp suffix in the name makes lexical order chronological.
func (strg *Storage) files(label string) []string {
	prefix := fmt.Sprintf("chain_%s_%s_", strg.nodeID, label)

	entries, err := os.ReadDir(strg.dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".json") {
			files = append(files, filepath.Join(strg.dir, entry.Name()))
		}
	}
	sort.Strings(files)

	return files
}
