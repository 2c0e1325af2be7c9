// SPDX-License-Identifier: MIT

package templatestore

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// fileMeta is the cached metadata badger keeps per known template path,
// used to decide whether a reload is needed without re-reading the file.
type fileMeta struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

func openMetaDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	return badger.Open(opts)
}

func getMeta(db *badger.DB, key string) (fileMeta, bool, error) {
	var m fileMeta
	found := true
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("meta:" + key))
		if err == badger.ErrKeyNotFound {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	if err != nil {
		return fileMeta{}, false, err
	}
	return m, found, nil
}

func putMeta(db *badger.DB, key string, m fileMeta) error {
	buf, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("meta:"+key), buf)
	})
}

func deleteMeta(db *badger.DB, key string) error {
	return db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte("meta:" + key))
	})
}
