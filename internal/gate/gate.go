// Package gate builds the preprocessed "one-time truth table" gates (Sign,
// LessThanZero) that let parties evaluate f(i, s) for a secret s
// non-interactively, via a public-index lookup into their own column of
// shares. Grounded on
// original_source/src/mpc/preprocessed_gate.rs (DESIGN.md component C5).
package gate

import (
	"fmt"
	"io"
	"math/big"

	"github.com/luxfi/lwethreshold/internal/ring"
	"github.com/luxfi/lwethreshold/internal/sharing"
)

// Func computes f(i, secret) for a public row index i and the dealer's
// secret. It is evaluated once per row at table-build time.
type Func func(i, secret *big.Int) *big.Int

// Sign returns -1, 0, or 1 as i compares below, equal to, or above secret.
// The caller is responsible for floor-reducing the result into the table's
// field (the -1 case becomes FieldModulus-1 once shared).
func Sign(i, secret *big.Int) *big.Int {
	switch new(big.Int).Sub(i, secret).Sign() {
	case -1:
		return big.NewInt(-1)
	case 0:
		return big.NewInt(0)
	default:
		return big.NewInt(1)
	}
}

// LessThanZero returns a Func computing (i - secret) mod 2^modExp >= 2^(modExp-1),
// as a 0/1 indicator, the less-than-zero gate used to convert a masked
// sign comparison into a borrow bit.
func LessThanZero(modExp uint) Func {
	half := new(big.Int).Lsh(big.NewInt(1), modExp-1)
	return func(i, secret *big.Int) *big.Int {
		diff := ring.ModFloor(new(big.Int).Sub(i, secret), modExp)
		if diff.Cmp(half) >= 0 {
			return big.NewInt(1)
		}
		return big.NewInt(0)
	}
}

// Table is the dealer-side view of a gate: an R-row, N-party matrix of
// shares, row i holding share(f(i, secret), N, fieldExponent).
type Table struct {
	FieldExponent uint
	Shares        [][]*big.Int // [row][party]
}

// Build constructs a gate table for numRows public indices 0..numRows-1,
// sharing f(i, secret) among numParties parties in the ring 2^fieldExponent.
func Build(rnd io.Reader, f Func, secret *big.Int, numParties, numRows int, fieldExponent uint) (*Table, error) {
	if numRows < 0 {
		return nil, fmt.Errorf("gate: build: numRows must be >= 0, got %d", numRows)
	}
	shares := make([][]*big.Int, numRows)
	for i := 0; i < numRows; i++ {
		value := f(big.NewInt(int64(i)), secret)
		row, err := sharing.Share(rnd, value, numParties, fieldExponent)
		if err != nil {
			return nil, fmt.Errorf("gate: build: row %d: %w", i, err)
		}
		shares[i] = row
	}
	return &Table{FieldExponent: fieldExponent, Shares: shares}, nil
}

// PartyColumn extracts the column of shares owned by a single party, the
// only view of the table that party ever receives.
func (t *Table) PartyColumn(partyIndex int) *Column {
	col := make([]*big.Int, len(t.Shares))
	for i, row := range t.Shares {
		col[i] = row[partyIndex]
	}
	return &Column{FieldExponent: t.FieldExponent, Shares: col}
}

// RowShares returns every party's share at a given row, used by tests to
// check the table was built correctly.
func (t *Table) RowShares(row int) []*big.Int {
	return t.Shares[row]
}

// Column is a single party's slice of a gate table: one share per public
// row index. At runtime, Lookup(y) returns this party's contribution to
// f(y, secret); summing contributions across all parties and floor-modding
// reconstructs f(y, secret) without the secret ever leaving the dealer.
type Column struct {
	FieldExponent uint
	Shares        []*big.Int
}

// Lookup returns this party's share of f(index, secret).
func (c *Column) Lookup(index int) (*big.Int, error) {
	if index < 0 || index >= len(c.Shares) {
		return nil, fmt.Errorf("gate: lookup: index %d out of range [0,%d)", index, len(c.Shares))
	}
	return c.Shares[index], nil
}
