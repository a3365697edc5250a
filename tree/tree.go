package tree

import (
	"sync"

	"github.com/cosmos/iavl"
	dbm "github.com/tendermint/tm-db"
)

// Dirty is a state sub-store that can flush its dirty models into the
// mutable tree and refresh its read handle after a version is saved.
type Dirty interface {
	Commit(db *iavl.MutableTree) error
	SetImmutableTree(immutableTree *iavl.ImmutableTree)
}

type ReadOnlyTree interface {
	Get(key []byte) (index int64, value []byte)
	Version() int64
	Hash() []byte
	Iterate(fn func(key []byte, value []byte) bool) (stopped bool)
}

type MTree interface {
	ReadOnlyTree
	GetLastImmutable() *iavl.ImmutableTree
	GetImmutableAtHeight(version int64) (*iavl.ImmutableTree, error)
	Commit(dirties ...Dirty) ([]byte, int64, error)
	DeleteVersionIfExists(version int64) error
	AvailableVersions() []int
	GlobalLock()
	GlobalUnlock()
}

// If you want to get read-only state, you should use height = 0 and GetImmutableAtHeight(version), see NewImmutableTree
func NewMutableTree(height uint64, db dbm.DB, cacheSize int, initialVersion uint64) (MTree, error) {
	tree, err := iavl.NewMutableTree(db, cacheSize)
	if err != nil {
		return nil, err
	}

	if initialVersion != 0 {
		tree.SetInitialVersion(initialVersion)
	}

	if height != 0 {
		if _, err := tree.LoadVersionForOverwriting(int64(height)); err != nil {
			return nil, err
		}
	}

	return &mutableTree{tree: tree}, nil
}

// NewImmutableTree loads a saved version for read-only use.
func NewImmutableTree(height uint64, db dbm.DB) (*iavl.ImmutableTree, error) {
	tree, err := iavl.NewMutableTree(db, 1024)
	if err != nil {
		return nil, err
	}

	if _, err := tree.LazyLoadVersion(int64(height)); err != nil {
		return nil, err
	}

	return tree.GetImmutable(int64(height))
}

type mutableTree struct {
	tree *iavl.MutableTree
	lock sync.RWMutex
	sync.Mutex
}

func (t *mutableTree) GlobalLock() {
	t.Lock()
}

func (t *mutableTree) GlobalUnlock() {
	t.Unlock()
}

// Commit flushes every dirty sub-store into the tree, saves a version
// and swaps each store onto the new immutable read handle.
func (t *mutableTree) Commit(dirties ...Dirty) ([]byte, int64, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for _, dirty := range dirties {
		if err := dirty.Commit(t.tree); err != nil {
			return nil, 0, err
		}
	}

	hash, version, err := t.tree.SaveVersion()
	if err != nil {
		return hash, version, err
	}

	immutable := t.lastImmutable()
	for _, dirty := range dirties {
		dirty.SetImmutableTree(immutable)
	}

	return hash, version, nil
}

func (t *mutableTree) GetLastImmutable() *iavl.ImmutableTree {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.lastImmutable()
}

func (t *mutableTree) lastImmutable() *iavl.ImmutableTree {
	version := t.tree.Version()
	if version == 0 {
		return t.tree.ImmutableTree
	}

	immutable, err := t.tree.GetImmutable(version)
	if err != nil {
		return t.tree.ImmutableTree
	}

	return immutable
}

func (t *mutableTree) GetImmutableAtHeight(version int64) (*iavl.ImmutableTree, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.GetImmutable(version)
}

func (t *mutableTree) Iterate(fn func(key []byte, value []byte) bool) (stopped bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Iterate(fn)
}

func (t *mutableTree) Hash() []byte {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Hash()
}

func (t *mutableTree) Version() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Version()
}

func (t *mutableTree) Get(key []byte) (index int64, value []byte) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Get(key)
}

// Should use GlobalLock() and GlobalUnlock
func (t *mutableTree) DeleteVersionIfExists(version int64) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.tree.VersionExists(version) {
		return nil
	}

	return t.tree.DeleteVersion(version)
}

func (t *mutableTree) AvailableVersions() []int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.AvailableVersions()
}
