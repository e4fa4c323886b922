package database

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/mealeark/education-cryptomoji/foundation/ledger/signature"
)

// maxTxValue is the largest transferable amount. Balances are signed 64 bit
// values derived by replay, so any amount past this bound would wrap them.
const maxTxValue = uint64(math.MaxInt64)

// Tx is the transactional information between two parties. The FromID is
// derived from the signer's public key at signing time, never provided by
// the caller, so the record can't claim an identity it doesn't hold.
type Tx struct {
	FromID AccountID `json:"from"`  // Account sending the value.
	ToID   AccountID `json:"to"`    // Account receiving the value.
	Value  uint64    `json:"value"` // Amount of value being transferred.
}

// New constructs a transaction from the specified private key, recipient and
// amount, and signs it in the same step. The from account is derived from
// the private key.
func New(privateKey *ecdsa.PrivateKey, toID AccountID, value uint64) (SignedTx, error) {
	if privateKey == nil {
		return SignedTx{}, errors.New("missing private key")
	}

	if !toID.IsAccountID() {
		return SignedTx{}, fmt.Errorf("to account is not properly formatted")
	}

	if value > maxTxValue {
		return SignedTx{}, fmt.Errorf("value exceeds the maximum of %d", maxTxValue)
	}

	tx := Tx{
		FromID: PublicKeyToAccountID(privateKey.PublicKey),
		ToID:   toID,
		Value:  value,
	}

	return tx.sign(privateKey)
}

// sign uses the specified private key to sign the transaction.
func (tx Tx) sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the ledger. The signature
// covers the from/to/value triple; mutating any of them invalidates it.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"` // Recovery identifier, either 31 or 32 with mojiID.
	R *big.Int `json:"r"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Second coordinate of the ECDSA signature.
}

// Validate verifies the transaction has a proper signature that conforms to
// our standards, and that the account claimed as the sender is the account
// that produced the signature.
func (tx SignedTx) Validate() error {
	if !tx.FromID.IsAccountID() {
		return errors.New("invalid account for from account")
	}

	if !tx.ToID.IsAccountID() {
		return errors.New("invalid account for to account")
	}

	if tx.Value > maxTxValue {
		return fmt.Errorf("value exceeds the maximum of %d", maxTxValue)
	}

	if err := signature.VerifySignature(tx.V, tx.R, tx.S); err != nil {
		return err
	}

	address, err := signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
	if err != nil {
		return err
	}

	if AccountID(address) != tx.FromID {
		return errors.New("signature address doesn't match from address")
	}

	return nil
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s:%d", tx.FromID, tx.Value)
}

// =============================================================================

// BlockTx represents the transaction as it's recorded inside a block.
type BlockTx struct {
	SignedTx
	TimeStamp uint64 `json:"timestamp"` // The time the transaction was received.
}

// NewBlockTx constructs a new block transaction.
func NewBlockTx(signedTx SignedTx) BlockTx {
	return BlockTx{
		SignedTx:  signedTx,
		TimeStamp: uint64(time.Now().UTC().Unix()),
	}
}

// Hash implements the merkle Hashable interface for providing a hash
// of a block transaction.
func (tx BlockTx) Hash() ([]byte, error) {
	str := signature.Hash(tx)
	return hex.DecodeString(str[2:])
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two block transactions. If the signatures are the same,
// the two transactions are the same.
func (tx BlockTx) Equals(otherTx BlockTx) bool {
	txSig := signature.ToSignatureBytes(tx.V, tx.R, tx.S)
	otherTxSig := signature.ToSignatureBytes(otherTx.V, otherTx.R, otherTx.S)

	return bytes.Equal(txSig, otherTxSig)
}
