package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/raykavin/chaintrader/pkg/core"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/buntdb"
)

const (
	orderPrefix   = "order:"
	walletPrefix  = "wallet:"
	defaultPrefix = "default:"

	updateIndex = "update_index"
)

var (
	_ core.OrderStorage  = (*BuntStorage)(nil)
	_ core.WalletStorage = (*BuntStorage)(nil)
)

// BuntStorage keeps the order journal and the wallet records in BuntDB
type BuntStorage struct {
	lastID int64
	db     *buntdb.DB
}

// FromMemory creates an in-memory storage
func FromMemory() (*BuntStorage, error) {
	return NewBuntStorage(":memory:")
}

// FromFile creates a file-based storage
func FromFile(file string) (*BuntStorage, error) {
	return NewBuntStorage(file)
}

// NewBuntStorage creates a new BuntDB storage instance
func NewBuntStorage(sourceFile string) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex(updateIndex, orderPrefix+"*", buntdb.IndexJSON("updated_at"))
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	storage := &BuntStorage{db: db}
	if err := storage.restoreLastID(); err != nil {
		return nil, err
	}

	return storage, nil
}

// restoreLastID continues the order sequence of a reopened file
func (b *BuntStorage) restoreLastID() error {
	return b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(orderPrefix+"*", func(key, _ string) bool {
			id, err := strconv.ParseInt(strings.TrimPrefix(key, orderPrefix), 10, 64)
			if err == nil && id > b.lastID {
				b.lastID = id
			}
			return true
		})
	})
}

// getID generates a unique ID for orders
func (b *BuntStorage) getID() int64 {
	return atomic.AddInt64(&b.lastID, 1)
}

func orderKey(id int64) string {
	return orderPrefix + strconv.FormatInt(id, 10)
}

// CreateOrder stores a new order in the database
func (b *BuntStorage) CreateOrder(order *core.OrderRecord) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		order.ID = b.getID()
		content, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("failed to marshal order: %w", err)
		}

		_, _, err = tx.Set(orderKey(order.ID), string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to store order: %w", err)
		}

		return nil
	})
}

// UpdateOrder updates an existing order in the database
func (b *BuntStorage) UpdateOrder(order *core.OrderRecord) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		key := orderKey(order.ID)

		if _, err := tx.Get(key); err != nil {
			return fmt.Errorf("order %d not found: %w", order.ID, err)
		}

		content, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("failed to marshal order: %w", err)
		}

		_, _, err = tx.Set(key, string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		return nil
	})
}

// Orders retrieves orders ordered by update time, applying every filter
func (b *BuntStorage) Orders(filters ...core.OrderFilter) ([]*core.OrderRecord, error) {
	orders := make([]*core.OrderRecord, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		err := tx.Ascend(updateIndex, func(key, value string) bool {
			var order core.OrderRecord
			if err := json.Unmarshal([]byte(value), &order); err != nil {
				log.WithField("key", key).Errorf("failed to unmarshal order: %v", err)
				return true
			}

			for _, filter := range filters {
				if !filter(order) {
					return true
				}
			}

			orders = append(orders, &order)
			return true
		})

		if err != nil {
			return fmt.Errorf("failed to iterate over orders: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func walletKey(userID int64, name string) string {
	return walletPrefix + strconv.FormatInt(userID, 10) + ":" + name
}

func defaultKey(userID int64) string {
	return defaultPrefix + strconv.FormatInt(userID, 10)
}

// CreateWallet stores a new wallet. Names are unique per user.
func (b *BuntStorage) CreateWallet(wallet *core.Wallet) error {
	if strings.TrimSpace(wallet.Name) == "" {
		return fmt.Errorf("wallet name is required")
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		key := walletKey(wallet.UserID, wallet.Name)
		if _, err := tx.Get(key); err == nil {
			return fmt.Errorf("wallet %q already exists", wallet.Name)
		}

		content, err := json.Marshal(wallet)
		if err != nil {
			return fmt.Errorf("failed to marshal wallet: %w", err)
		}

		_, _, err = tx.Set(key, string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to store wallet: %w", err)
		}

		return nil
	})
}

// Wallets lists the wallets of a user sorted by name
func (b *BuntStorage) Wallets(userID int64) ([]core.Wallet, error) {
	wallets := make([]core.Wallet, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(walletKey(userID, "*"), func(key, value string) bool {
			var wallet core.Wallet
			if err := json.Unmarshal([]byte(value), &wallet); err != nil {
				log.WithField("key", key).Errorf("failed to unmarshal wallet: %v", err)
				return true
			}
			wallets = append(wallets, wallet)
			return true
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to iterate over wallets: %w", err)
	}

	return wallets, nil
}

// SetDefaultWallet points the user's default at an existing wallet
func (b *BuntStorage) SetDefaultWallet(userID int64, name string) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(walletKey(userID, name)); err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("%w: %s", core.ErrWalletNotFound, name)
			}
			return err
		}

		_, _, err := tx.Set(defaultKey(userID), name, nil)
		return err
	})
}

// DefaultWallet returns the user's default wallet or core.ErrWalletNotFound
func (b *BuntStorage) DefaultWallet(userID int64) (core.Wallet, error) {
	var wallet core.Wallet

	err := b.db.View(func(tx *buntdb.Tx) error {
		name, err := tx.Get(defaultKey(userID))
		if errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("%w: no default wallet", core.ErrWalletNotFound)
		} else if err != nil {
			return err
		}

		content, err := tx.Get(walletKey(userID, name))
		if errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("%w: %s", core.ErrWalletNotFound, name)
		} else if err != nil {
			return err
		}

		return json.Unmarshal([]byte(content), &wallet)
	})

	return wallet, err
}

// Close closes the database connection
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
