// Package ledger is the client side of the external fungible-token ledger.
package ledger

import (
	"fmt"

	"StakeVault/internal/model"
)

// Token is the subset of a fungible-token service the vault relies on.
// Transfer moves funds out of the vault the token is bound to.
type Token interface {
	Transfer(to string, amount uint64) (bool, error)
	TransferFrom(from, to string, amount uint64) (bool, error)
	BalanceOf(account string) uint64
}

// Send transfers amount out of the vault, mapping a refusal or failure to ErrTransferFailed.
func Send(tok Token, to string, amount uint64) error {
	ok, err := tok.Transfer(to, amount)
	if err != nil {
		return fmt.Errorf("%w: transfer %d to %s: %v", model.ErrTransferFailed, amount, to, err)
	}
	if !ok {
		return fmt.Errorf("%w: transfer %d to %s refused", model.ErrTransferFailed, amount, to)
	}
	return nil
}

// Pull transfers amount from an account into to, mapping a refusal or failure to ErrTransferFailed.
func Pull(tok Token, from, to string, amount uint64) error {
	ok, err := tok.TransferFrom(from, to, amount)
	if err != nil {
		return fmt.Errorf("%w: transfer %d from %s: %v", model.ErrTransferFailed, amount, from, err)
	}
	if !ok {
		return fmt.Errorf("%w: transfer %d from %s refused", model.ErrTransferFailed, amount, from)
	}
	return nil
}
