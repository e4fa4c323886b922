package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mealeark/education-cryptomoji/foundation/ledger/genesis"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func writeGenesis(t *testing.T, doc string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("Should be able to write the genesis file: %v", err)
	}

	return path
}

func Test_Load(t *testing.T) {
	t.Log("Given the need to load a genesis file from disk.")
	{
		path := writeGenesis(t, `{"date":"2026-01-01T00:00:00Z","chain_id":1,"trans_per_block":10,"difficulty":2}`)

		gen, err := genesis.Load(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the genesis file: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to load the genesis file.", success)

		if gen.ChainID != 1 || gen.TransPerBlock != 10 || gen.Difficulty != 2 {
			t.Errorf("\t%s\tShould carry the document's fields, got %+v.", failed, gen)
		} else {
			t.Logf("\t%s\tShould carry the document's fields.", success)
		}
	}
}

func Test_LoadRejectsExcessiveDifficulty(t *testing.T) {
	path := writeGenesis(t, `{"date":"2026-01-01T00:00:00Z","chain_id":1,"trans_per_block":10,"difficulty":18}`)

	if _, err := genesis.Load(path); err == nil {
		t.Fatalf("Should reject a difficulty the admission rule can't check.")
	}
}
