package chain_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/chain"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/database"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/database/storage"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/genesis"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/signature"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const (
	alicePrivKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	bobPrivKey   = "9f332e3700d8fc2fb2f5abcf2ad4f2f1b20108a425fff35d6bafed1eec043c8a"
)

// =============================================================================

type party struct {
	key       *ecdsa.PrivateKey
	accountID database.AccountID
}

func newParty(t *testing.T, hexKey string) party {
	t.Helper()

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to parse the private key: %v", err)
	}

	return party{
		key:       key,
		accountID: database.PublicKeyToAccountID(key.PublicKey),
	}
}

func newChain(t *testing.T) *chain.Chain {
	t.Helper()

	gen := genesis.Genesis{
		Date:          time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:       1,
		TransPerBlock: 10,
		Difficulty:    1,
	}

	strg, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("Should be able to construct memory storage: %v", err)
	}

	c, err := chain.New(gen, strg, nil)
	if err != nil {
		t.Fatalf("Should be able to construct the chain: %v", err)
	}

	return c
}

func signTx(t *testing.T, from party, to party, value uint64) database.SignedTx {
	t.Helper()

	tx, err := database.New(from.key, to.accountID, value)
	if err != nil {
		t.Fatalf("Should be able to create a signed transaction: %v", err)
	}

	return tx
}

// =============================================================================

func Test_FreshChain(t *testing.T) {
	t.Log("Given the need to validate the state of a freshly created chain.")
	{
		c := newChain(t)
		alice := newParty(t, alicePrivKey)

		if c.Height() != 1 {
			t.Errorf("\t%s\tShould have exactly one block, got %d.", failed, c.Height())
		} else {
			t.Logf("\t%s\tShould have exactly one block.", success)
		}

		head := c.HeadBlock()
		if head.Header.Number != 0 || head.Hash() != signature.ZeroHash {
			t.Errorf("\t%s\tShould have the genesis block as the head.", failed)
		} else {
			t.Logf("\t%s\tShould have the genesis block as the head.", success)
		}

		if bal := c.BalanceOf(alice.accountID); bal != 0 {
			t.Errorf("\t%s\tShould have a zero balance for any account, got %d.", failed, bal)
		} else {
			t.Logf("\t%s\tShould have a zero balance for any account.", success)
		}

		if err := c.Validate(); err != nil {
			t.Errorf("\t%s\tShould validate an untouched chain: %v", failed, err)
		} else {
			t.Logf("\t%s\tShould validate an untouched chain.", success)
		}
	}
}

func Test_AddBlockMovesValue(t *testing.T) {
	t.Log("Given the need to move value between accounts through a mined block.")
	{
		c := newChain(t)
		alice := newParty(t, alicePrivKey)
		bob := newParty(t, bobPrivKey)

		block, err := c.AddBlock(context.Background(), []database.SignedTx{signTx(t, alice, bob, 25)})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to add a block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to add a block.", success)

		if c.HeadBlock().Hash() != block.Hash() {
			t.Errorf("\t%s\tShould have the new block as the head.", failed)
		} else {
			t.Logf("\t%s\tShould have the new block as the head.", success)
		}

		if bal := c.BalanceOf(alice.accountID); bal != -25 {
			t.Errorf("\t%s\tShould have the sender balance decrease, got %d, exp %d.", failed, bal, -25)
		} else {
			t.Logf("\t%s\tShould have the sender balance decrease.", success)
		}

		if bal := c.BalanceOf(bob.accountID); bal != 25 {
			t.Errorf("\t%s\tShould have the recipient balance increase, got %d, exp %d.", failed, bal, 25)
		} else {
			t.Logf("\t%s\tShould have the recipient balance increase.", success)
		}
	}
}

func Test_AddBlockRejectsTamperedBatch(t *testing.T) {
	t.Log("Given the need to reject a whole batch when one transaction fails validation.")
	{
		c := newChain(t)
		alice := newParty(t, alicePrivKey)
		bob := newParty(t, bobPrivKey)

		heightBefore := c.Height()
		headBefore := c.HeadBlock().Hash()

		good := signTx(t, alice, bob, 10)
		bad := signTx(t, bob, alice, 5)
		bad.Value = 9000

		if _, err := c.AddBlock(context.Background(), []database.SignedTx{good, bad}); err == nil {
			t.Fatalf("\t%s\tShould reject a batch holding a tampered transaction.", failed)
		}
		t.Logf("\t%s\tShould reject a batch holding a tampered transaction.", success)

		if c.Height() != heightBefore {
			t.Errorf("\t%s\tShould leave the chain length unchanged.", failed)
		} else {
			t.Logf("\t%s\tShould leave the chain length unchanged.", success)
		}

		if c.HeadBlock().Hash() != headBefore {
			t.Errorf("\t%s\tShould leave the head block unchanged.", failed)
		} else {
			t.Logf("\t%s\tShould leave the head block unchanged.", success)
		}
	}
}

func Test_AddBlockRejectsOversizedValue(t *testing.T) {
	t.Log("Given the need to reject values that would wrap the signed balance range.")
	{
		c := newChain(t)
		alice := newParty(t, alicePrivKey)
		bob := newParty(t, bobPrivKey)

		// Signed directly over the raw fields so the amount is past what
		// the wallet constructor allows.
		tx := database.Tx{
			FromID: alice.accountID,
			ToID:   bob.accountID,
			Value:  uint64(math.MaxInt64) + 1,
		}
		v, r, s, err := signature.Sign(tx, alice.key)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to sign the raw fields: %v", failed, err)
		}
		signedTx := database.SignedTx{Tx: tx, V: v, R: r, S: s}

		if _, err := c.AddBlock(context.Background(), []database.SignedTx{signedTx}); !errors.Is(err, chain.ErrInvalidTransaction) {
			t.Fatalf("\t%s\tShould reject the oversized transaction, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject the oversized transaction.", success)

		if c.Height() != 1 {
			t.Errorf("\t%s\tShould leave the chain length unchanged.", failed)
		} else {
			t.Logf("\t%s\tShould leave the chain length unchanged.", success)
		}

		if bal := c.BalanceOf(alice.accountID); bal != 0 {
			t.Errorf("\t%s\tShould leave the sender balance untouched, got %d.", failed, bal)
		} else {
			t.Logf("\t%s\tShould leave the sender balance untouched.", success)
		}

		if bal := c.BalanceOf(bob.accountID); bal != 0 {
			t.Errorf("\t%s\tShould leave the recipient balance untouched, got %d.", failed, bal)
		} else {
			t.Logf("\t%s\tShould leave the recipient balance untouched.", success)
		}
	}
}

func Test_BalanceScenario(t *testing.T) {
	t.Log("Given alice pays bob 10 and bob pays alice 3 across two blocks.")
	{
		c := newChain(t)
		alice := newParty(t, alicePrivKey)
		bob := newParty(t, bobPrivKey)

		if _, err := c.AddBlock(context.Background(), []database.SignedTx{signTx(t, alice, bob, 10)}); err != nil {
			t.Fatalf("\t%s\tShould be able to add the first block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to add the first block.", success)

		if _, err := c.AddBlock(context.Background(), []database.SignedTx{signTx(t, bob, alice, 3)}); err != nil {
			t.Fatalf("\t%s\tShould be able to add the second block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to add the second block.", success)

		if bal := c.BalanceOf(alice.accountID); bal != -7 {
			t.Errorf("\t%s\tShould have alice at -7, got %d.", failed, bal)
		} else {
			t.Logf("\t%s\tShould have alice at -7.", success)
		}

		if bal := c.BalanceOf(bob.accountID); bal != 7 {
			t.Errorf("\t%s\tShould have bob at 7, got %d.", failed, bal)
		} else {
			t.Logf("\t%s\tShould have bob at 7.", success)
		}

		balances := c.Balances()
		if balances[alice.accountID] != -7 || balances[bob.accountID] != 7 {
			t.Errorf("\t%s\tShould report the same balances in the full map.", failed)
		} else {
			t.Logf("\t%s\tShould report the same balances in the full map.", success)
		}

		if err := c.Validate(); err != nil {
			t.Errorf("\t%s\tShould validate the grown chain: %v", failed, err)
		} else {
			t.Logf("\t%s\tShould validate the grown chain.", success)
		}
	}
}

func Test_ValidateDetectsTampering(t *testing.T) {
	t.Log("Given the need to detect direct mutation of stored blocks.")
	{
		alice := newParty(t, alicePrivKey)
		bob := newParty(t, bobPrivKey)

		tt := []struct {
			name   string
			block  int
			tamper func(blockData *database.BlockData)
		}{
			{
				name:  "hash",
				block: 1,
				tamper: func(blockData *database.BlockData) {
					blockData.Hash = signature.Hash("tampered")
				},
			},
			{
				name:  "nonce",
				block: 1,
				tamper: func(blockData *database.BlockData) {
					blockData.Header.Nonce += 1
				},
			},
			{
				name:  "transactions",
				block: 1,
				tamper: func(blockData *database.BlockData) {
					blockData.Trans[0].Value = 9000
				},
			},
			{
				name:  "linkage",
				block: 2,
				tamper: func(blockData *database.BlockData) {
					blockData.Header.PrevBlockHash = signature.Hash("someone else")
				},
			},
		}

		for _, tst := range tt {
			f := func(t *testing.T) {
				c := newChain(t)

				if _, err := c.AddBlock(context.Background(), []database.SignedTx{signTx(t, alice, bob, 10)}); err != nil {
					t.Fatalf("\t%s\tShould be able to add the first block: %v", failed, err)
				}
				if _, err := c.AddBlock(context.Background(), []database.SignedTx{signTx(t, bob, alice, 3)}); err != nil {
					t.Fatalf("\t%s\tShould be able to add the second block: %v", failed, err)
				}

				if err := c.Validate(); err != nil {
					t.Fatalf("\t%s\tShould validate before tampering: %v", failed, err)
				}

				c.TamperBlock(tst.block, tst.tamper)

				if err := c.Validate(); err == nil {
					t.Errorf("\t%s\tShould detect tampering with the %s.", failed, tst.name)
				} else {
					t.Logf("\t%s\tShould detect tampering with the %s: %v", success, tst.name, err)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_BlocksReturnsCopy(t *testing.T) {
	t.Log("Given the need to keep stored blocks out of reach of callers.")
	{
		c := newChain(t)
		alice := newParty(t, alicePrivKey)
		bob := newParty(t, bobPrivKey)

		if _, err := c.AddBlock(context.Background(), []database.SignedTx{signTx(t, alice, bob, 10)}); err != nil {
			t.Fatalf("\t%s\tShould be able to add a block: %v", failed, err)
		}

		blocks := c.Blocks()
		blocks[1].Hash = signature.Hash("tampered")
		blocks[1].Header.Nonce += 1
		blocks[1].Trans[0].Value = 9000

		if err := c.Validate(); err != nil {
			t.Errorf("\t%s\tShould still validate after mutating the returned blocks: %v", failed, err)
		} else {
			t.Logf("\t%s\tShould still validate after mutating the returned blocks.", success)
		}

		if bal := c.BalanceOf(bob.accountID); bal != 10 {
			t.Errorf("\t%s\tShould keep the stored balances intact, got %d.", failed, bal)
		} else {
			t.Logf("\t%s\tShould keep the stored balances intact.", success)
		}
	}
}

func Test_AddBlockCancellation(t *testing.T) {
	c := newChain(t)
	alice := newParty(t, alicePrivKey)
	bob := newParty(t, bobPrivKey)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.AddBlock(ctx, []database.SignedTx{signTx(t, alice, bob, 10)}); err == nil {
		t.Fatalf("Should abandon the append when the context is cancelled.")
	}

	if c.Height() != 1 {
		t.Fatalf("Should leave the chain unchanged after a cancelled append.")
	}
}

func Test_EmptyBatch(t *testing.T) {
	c := newChain(t)

	if _, err := c.AddBlock(context.Background(), nil); err == nil {
		t.Fatalf("Should reject an empty batch.")
	}
}

func Test_ReplayFromStorage(t *testing.T) {
	t.Log("Given the need to rebuild a chain from its serialized blocks.")
	{
		alice := newParty(t, alicePrivKey)
		bob := newParty(t, bobPrivKey)

		gen := genesis.Genesis{
			Date:          time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			ChainID:       1,
			TransPerBlock: 10,
			Difficulty:    1,
		}

		strg, err := storage.NewMemory()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct memory storage: %v", failed, err)
		}

		c1, err := chain.New(gen, strg, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the chain: %v", failed, err)
		}

		if _, err := c1.AddBlock(context.Background(), []database.SignedTx{signTx(t, alice, bob, 10)}); err != nil {
			t.Fatalf("\t%s\tShould be able to add a block: %v", failed, err)
		}

		c2, err := chain.New(gen, strg, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to rebuild the chain from storage: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to rebuild the chain from storage.", success)

		if c2.Height() != c1.Height() {
			t.Errorf("\t%s\tShould rebuild to the same height, got %d, exp %d.", failed, c2.Height(), c1.Height())
		} else {
			t.Logf("\t%s\tShould rebuild to the same height.", success)
		}

		if c2.HeadBlock().Hash() != c1.HeadBlock().Hash() {
			t.Errorf("\t%s\tShould rebuild to the same head hash.", failed)
		} else {
			t.Logf("\t%s\tShould rebuild to the same head hash.", success)
		}

		if bal := c2.BalanceOf(bob.accountID); bal != 10 {
			t.Errorf("\t%s\tShould rebuild the same balances, got %d.", failed, bal)
		} else {
			t.Logf("\t%s\tShould rebuild the same balances.", success)
		}
	}
}
