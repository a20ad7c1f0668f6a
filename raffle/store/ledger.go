package store

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/raffle-labs/raffle/types"
)

var (
	// address -> big-endian balance in wei
	balancesBucketName = []byte("balances")

	// address -> flag, accounts refusing incoming transfers
	rejectingBucketName = []byte("rejecting")
)

var _ types.Bank = &LedgerStore{}

// LedgerStore keeps account balances, including the prize pool, and
// implements types.Bank on top of kvdb
type LedgerStore struct {
	db kvdb.Backend
}

func NewLedgerStore(db kvdb.Backend) (*LedgerStore, error) {
	s := &LedgerStore{db}
	if err := s.initBuckets(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *LedgerStore) initBuckets() error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		if _, err := tx.CreateTopLevelBucket(balancesBucketName); err != nil {
			return err
		}

		_, err := tx.CreateTopLevelBucket(rejectingBucketName)

		return err
	})
}

func (s *LedgerStore) Balance(addr common.Address) (sdkmath.Int, error) {
	balance := sdkmath.ZeroInt()

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(balancesBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}
		balance = getBalance(bucket, addr)

		return nil
	}, func() {}); err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to get balance of %s: %w", addr.Hex(), err)
	}

	return balance, nil
}

// Transfer moves amount from one account to another atomically. It fails
// without side effects if the sender cannot cover the amount or the recipient
// rejects transfers.
func (s *LedgerStore) Transfer(from, to common.Address, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}

	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(balancesBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}
		rejecting := tx.ReadWriteBucket(rejectingBucketName)
		if rejecting == nil {
			return ErrCorruptedRaffleDB
		}

		if rejecting.Get(to.Bytes()) != nil {
			return ErrTransferRejected
		}

		fromBalance := getBalance(bucket, from)
		if fromBalance.LT(amount) {
			return fmt.Errorf("%w: balance %s, need %s", ErrInsufficientFunds, fromBalance, amount)
		}
		if from == to {
			return nil
		}

		if err := putBalance(bucket, from, fromBalance.Sub(amount)); err != nil {
			return err
		}

		return putBalance(bucket, to, getBalance(bucket, to).Add(amount))
	}); err != nil {
		return fmt.Errorf("failed to transfer %s from %s to %s: %w", amount, from.Hex(), to.Hex(), err)
	}

	return nil
}

// Mint credits amount to addr out of thin air
func (s *LedgerStore) Mint(addr common.Address, amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.Int{}, ErrInvalidAmount
	}

	var balance sdkmath.Int
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(balancesBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}

		balance = getBalance(bucket, addr).Add(amount)

		return putBalance(bucket, addr, balance)
	}); err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to mint to %s: %w", addr.Hex(), err)
	}

	return balance, nil
}

// SetRejectsTransfers flags addr as refusing incoming transfers, which is how
// a recipient that cannot receive funds is modelled
func (s *LedgerStore) SetRejectsTransfers(addr common.Address, rejects bool) error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(rejectingBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}

		if rejects {
			return bucket.Put(addr.Bytes(), []byte{1})
		}

		return bucket.Delete(addr.Bytes())
	})
}

func (s *LedgerStore) RejectsTransfers(addr common.Address) (bool, error) {
	var rejects bool

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(rejectingBucketName)
		if bucket == nil {
			return ErrCorruptedRaffleDB
		}
		rejects = bucket.Get(addr.Bytes()) != nil

		return nil
	}, func() {}); err != nil {
		return false, err
	}

	return rejects, nil
}

func getBalance(bucket walletdb.ReadBucket, addr common.Address) sdkmath.Int {
	bz := bucket.Get(addr.Bytes())
	if bz == nil {
		return sdkmath.ZeroInt()
	}

	return sdkmath.NewIntFromBigInt(new(big.Int).SetBytes(bz))
}

func putBalance(bucket walletdb.ReadWriteBucket, addr common.Address, balance sdkmath.Int) error {
	if balance.IsZero() {
		return bucket.Delete(addr.Bytes())
	}

	return bucket.Put(addr.Bytes(), balance.BigInt().Bytes())
}
