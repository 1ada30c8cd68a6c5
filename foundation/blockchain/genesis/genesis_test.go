package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nac-codes/blockbard/foundation/blockchain/genesis"
)

func Test_Load(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		gen, err := genesis.Load(filepath.Join(t.TempDir(), "nope.json"))
		if err != nil {
			t.Fatalf("Test:\tShould fall back without error: %s", err)
		}

		if gen != genesis.Default() {
			t.Fatalf("Test:\tShould return the default genesis settings.")
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "genesis.json")
		doc := `{"difficulty": 4, "data": "Another Story"}`
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatalf("Test:\tShould be able to write the genesis file: %s", err)
		}

		gen, err := genesis.Load(path)
		if err != nil {
			t.Fatalf("Test:\tShould be able to load the genesis file: %s", err)
		}

		if gen.Difficulty != 4 || gen.Data != "Another Story" {
			t.Fatalf("Test:\tShould apply the file's settings, got difficulty %d data %q.", gen.Difficulty, gen.Data)
		}

		if gen.BlockInterval != genesis.Default().BlockInterval {
			t.Fatalf("Test:\tShould keep defaults for unset fields.")
		}
	})
}
