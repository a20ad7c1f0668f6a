package store

import (
	"fmt"
	"sort"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/raffle-labs/raffle/lib/kvstore"
	"github.com/raffle-labs/raffle/types"
	vrftypes "github.com/raffle-labs/raffle/vrf/types"
)

var (
	// subscription id -> subscriptionRecord
	subscriptionsBucketName = []byte("subscriptions")

	// consumer || subscription id -> nonce of the last request
	noncesBucketName = []byte("nonces")

	// request id -> requestRecord, only while pending
	requestsBucketName = []byte("requests")

	// request id -> fulfillmentRecord
	fulfillmentsBucketName = []byte("fulfillments")
)

type VrfStore struct {
	db kvdb.Backend
}

func NewVrfStore(db kvdb.Backend) (*VrfStore, error) {
	s := &VrfStore{db}
	if err := s.initBuckets(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *VrfStore) initBuckets() error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		for _, name := range [][]byte{
			subscriptionsBucketName, noncesBucketName, requestsBucketName, fulfillmentsBucketName,
		} {
			if _, err := tx.CreateTopLevelBucket(name); err != nil {
				return err
			}
		}

		return nil
	})
}

// CreateSubscription opens an empty subscription owned by owner and returns
// its id. Ids start at 1.
func (s *VrfStore) CreateSubscription(owner common.Address) (uint64, error) {
	var subID uint64

	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(subscriptionsBucketName)
		if bucket == nil {
			return ErrCorruptedVrfDB
		}

		id, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		subID = id

		return putSubscription(bucket, &vrftypes.Subscription{
			ID:      id,
			Owner:   owner,
			Balance: sdkmath.ZeroInt(),
		})
	}); err != nil {
		return 0, fmt.Errorf("failed to create subscription: %w", err)
	}

	return subID, nil
}

func (s *VrfStore) GetSubscription(subID uint64) (*vrftypes.Subscription, error) {
	var sub *vrftypes.Subscription

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(subscriptionsBucketName)
		if bucket == nil {
			return ErrCorruptedVrfDB
		}

		stored, err := getSubscription(bucket, subID)
		if err != nil {
			return err
		}
		sub = stored

		return nil
	}, func() {}); err != nil {
		return nil, err
	}

	return sub, nil
}

func (s *VrfStore) ListSubscriptions() ([]*vrftypes.Subscription, error) {
	var subs []*vrftypes.Subscription

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(subscriptionsBucketName)
		if bucket == nil {
			return ErrCorruptedVrfDB
		}

		return bucket.ForEach(func(k, v []byte) error {
			sub, err := unmarshalSubscription(kvstore.BytesToUint64(k), v)
			if err != nil {
				return err
			}
			subs = append(subs, sub)

			return nil
		})
	}, func() {
		subs = nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}

// FindSubscriptionByConsumer returns the first subscription consumer is
// registered with
func (s *VrfStore) FindSubscriptionByConsumer(consumer common.Address) (*vrftypes.Subscription, error) {
	subs, err := s.ListSubscriptions()
	if err != nil {
		return nil, err
	}

	for _, sub := range subs {
		if sub.HasConsumer(consumer) {
			return sub, nil
		}
	}

	return nil, errorsmod.Wrapf(vrftypes.ErrSubscriptionNotFound, "no subscription with consumer %s", consumer.Hex())
}

func (s *VrfStore) FundSubscription(subID uint64, amount sdkmath.Int) (*vrftypes.Subscription, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return nil, errorsmod.Wrapf(vrftypes.ErrInvalidAmount, "funding amount must be positive, got %v", amount)
	}

	var sub *vrftypes.Subscription
	if err := s.updateSubscription(subID, func(stored *vrftypes.Subscription) error {
		stored.Balance = stored.Balance.Add(amount)
		sub = stored

		return nil
	}); err != nil {
		return nil, err
	}

	return sub, nil
}

func (s *VrfStore) AddConsumer(subID uint64, consumer common.Address) error {
	return s.updateSubscription(subID, func(sub *vrftypes.Subscription) error {
		if sub.HasConsumer(consumer) {
			return errorsmod.Wrapf(vrftypes.ErrConsumerAlreadyAdded, "consumer %s, subscription %d", consumer.Hex(), subID)
		}
		sub.Consumers = append(sub.Consumers, consumer)

		return nil
	})
}

func (s *VrfStore) RemoveConsumer(subID uint64, consumer common.Address) error {
	return s.updateSubscription(subID, func(sub *vrftypes.Subscription) error {
		for i, c := range sub.Consumers {
			if c == consumer {
				sub.Consumers = append(sub.Consumers[:i], sub.Consumers[i+1:]...)

				return nil
			}
		}

		return errorsmod.Wrapf(vrftypes.ErrInvalidConsumer, "consumer %s, subscription %d", consumer.Hex(), subID)
	})
}

// AddRequest registers req as pending under the next nonce of its consumer
// and subscription. The subscription must exist and know the consumer.
func (s *VrfStore) AddRequest(req *types.RandomWordsRequest, now time.Time) (*vrftypes.PendingRequest, error) {
	var pending *vrftypes.PendingRequest

	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		subBucket := tx.ReadWriteBucket(subscriptionsBucketName)
		nonceBucket := tx.ReadWriteBucket(noncesBucketName)
		reqBucket := tx.ReadWriteBucket(requestsBucketName)
		if subBucket == nil || nonceBucket == nil || reqBucket == nil {
			return ErrCorruptedVrfDB
		}

		sub, err := getSubscription(subBucket, req.SubscriptionID)
		if err != nil {
			return err
		}
		if !sub.HasConsumer(req.Consumer) {
			return errorsmod.Wrapf(vrftypes.ErrInvalidConsumer, "consumer %s, subscription %d",
				req.Consumer.Hex(), req.SubscriptionID)
		}

		nonceKey := append(req.Consumer.Bytes(), kvstore.Uint64ToBytes(req.SubscriptionID)...)
		var nonce uint64
		if bz := nonceBucket.Get(nonceKey); bz != nil {
			nonce = kvstore.BytesToUint64(bz)
		}
		nonce++
		if err := nonceBucket.Put(nonceKey, kvstore.Uint64ToBytes(nonce)); err != nil {
			return err
		}

		pending = &vrftypes.PendingRequest{
			ID:          types.NewRequestID(req.KeyHash, req.Consumer, req.SubscriptionID, nonce),
			Nonce:       nonce,
			Request:     *req,
			RequestedAt: time.Unix(now.Unix(), 0).UTC(),
		}
		bz, err := marshalRequest(pending)
		if err != nil {
			return err
		}

		return reqBucket.Put(pending.ID.Bytes(), bz)
	}); err != nil {
		return nil, fmt.Errorf("failed to add request: %w", err)
	}

	return pending, nil
}

func (s *VrfStore) GetRequest(id types.RequestID) (*vrftypes.PendingRequest, error) {
	var req *vrftypes.PendingRequest

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(requestsBucketName)
		if bucket == nil {
			return ErrCorruptedVrfDB
		}

		bz := bucket.Get(id.Bytes())
		if bz == nil {
			return errorsmod.Wrapf(vrftypes.ErrRequestNotFound, "request %s", id.Hex())
		}

		stored, err := unmarshalRequest(id, bz)
		if err != nil {
			return err
		}
		req = stored

		return nil
	}, func() {}); err != nil {
		return nil, err
	}

	return req, nil
}

// ListPendingRequests returns the requests waiting for fulfillment, oldest first
func (s *VrfStore) ListPendingRequests() ([]*vrftypes.PendingRequest, error) {
	var reqs []*vrftypes.PendingRequest

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(requestsBucketName)
		if bucket == nil {
			return ErrCorruptedVrfDB
		}

		return bucket.ForEach(func(k, v []byte) error {
			req, err := unmarshalRequest(common.BytesToHash(k), v)
			if err != nil {
				return err
			}
			reqs = append(reqs, req)

			return nil
		})
	}, func() {
		reqs = nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	sort.SliceStable(reqs, func(i, j int) bool {
		if !reqs[i].RequestedAt.Equal(reqs[j].RequestedAt) {
			return reqs[i].RequestedAt.Before(reqs[j].RequestedAt)
		}

		return reqs[i].Nonce < reqs[j].Nonce
	})

	return reqs, nil
}

// CompleteRequest charges f.Payment to the subscription, removes the pending
// request and records the fulfillment in one transaction
func (s *VrfStore) CompleteRequest(f *vrftypes.Fulfillment) error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		subBucket := tx.ReadWriteBucket(subscriptionsBucketName)
		reqBucket := tx.ReadWriteBucket(requestsBucketName)
		fBucket := tx.ReadWriteBucket(fulfillmentsBucketName)
		if subBucket == nil || reqBucket == nil || fBucket == nil {
			return ErrCorruptedVrfDB
		}

		if reqBucket.Get(f.RequestID.Bytes()) == nil {
			return errorsmod.Wrapf(vrftypes.ErrRequestNotFound, "request %s", f.RequestID.Hex())
		}

		sub, err := getSubscription(subBucket, f.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Balance.LT(f.Payment) {
			return errorsmod.Wrapf(vrftypes.ErrInsufficientSubscriptionBalance,
				"subscription %d has %s, payment is %s", sub.ID, sub.Balance, f.Payment)
		}
		sub.Balance = sub.Balance.Sub(f.Payment)
		if err := putSubscription(subBucket, sub); err != nil {
			return err
		}

		if err := reqBucket.Delete(f.RequestID.Bytes()); err != nil {
			return err
		}

		bz, err := marshalFulfillment(f)
		if err != nil {
			return err
		}

		return fBucket.Put(f.RequestID.Bytes(), bz)
	})
}

func (s *VrfStore) GetFulfillment(id types.RequestID) (*vrftypes.Fulfillment, error) {
	var f *vrftypes.Fulfillment

	if err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(fulfillmentsBucketName)
		if bucket == nil {
			return ErrCorruptedVrfDB
		}

		bz := bucket.Get(id.Bytes())
		if bz == nil {
			return ErrFulfillmentNotFound
		}

		stored, err := unmarshalFulfillment(id, bz)
		if err != nil {
			return err
		}
		f = stored

		return nil
	}, func() {}); err != nil {
		return nil, err
	}

	return f, nil
}

func (s *VrfStore) updateSubscription(subID uint64, updateFn func(sub *vrftypes.Subscription) error) error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(subscriptionsBucketName)
		if bucket == nil {
			return ErrCorruptedVrfDB
		}

		sub, err := getSubscription(bucket, subID)
		if err != nil {
			return err
		}

		if err := updateFn(sub); err != nil {
			return err
		}

		return putSubscription(bucket, sub)
	})
}

func getSubscription(bucket walletdb.ReadBucket, subID uint64) (*vrftypes.Subscription, error) {
	bz := bucket.Get(kvstore.Uint64ToBytes(subID))
	if bz == nil {
		return nil, errorsmod.Wrapf(vrftypes.ErrSubscriptionNotFound, "subscription %d", subID)
	}

	return unmarshalSubscription(subID, bz)
}

func putSubscription(bucket walletdb.ReadWriteBucket, sub *vrftypes.Subscription) error {
	bz, err := marshalSubscription(sub)
	if err != nil {
		return err
	}

	return bucket.Put(kvstore.Uint64ToBytes(sub.ID), bz)
}
