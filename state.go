package nftx

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/kaifufi/nftx-exchange-go/store"
)

var (
	finalizedPrefix = []byte("f/")
	noncePrefix     = []byte("n/")
	royaltyPrefix   = []byte("r/")
	settingsKey     = []byte("p/settings")
)

func finalizedKey(digest common.Hash) []byte {
	return append(append([]byte{}, finalizedPrefix...), digest.Bytes()...)
}

func nonceKey(maker common.Address) []byte {
	return append(append([]byte{}, noncePrefix...), maker.Bytes()...)
}

func royaltyKey(collection common.Address) []byte {
	return append(append([]byte{}, royaltyPrefix...), collection.Bytes()...)
}

// state is a write overlay over the committed store. Reads see staged
// writes; nothing reaches the store until commit.
type state struct {
	kv    store.KV
	dirty map[string][]byte
	keys  []string
}

func newState(kv store.KV) *state {
	return &state{kv: kv, dirty: make(map[string][]byte)}
}

func (s *state) get(key []byte) ([]byte, bool, error) {
	if v, ok := s.dirty[string(key)]; ok {
		return v, true, nil
	}
	v, err := s.kv.Get(key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read state: %w", err)
	}
	return v, true, nil
}

func (s *state) put(key, value []byte) {
	k := string(key)
	if _, ok := s.dirty[k]; !ok {
		s.keys = append(s.keys, k)
	}
	s.dirty[k] = value
}

func (s *state) commit() error {
	if len(s.keys) == 0 {
		return nil
	}
	batch := s.kv.NewBatch()
	for _, k := range s.keys {
		if err := batch.Put([]byte(k), s.dirty[k]); err != nil {
			return fmt.Errorf("failed to stage state: %w", err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	s.dirty = make(map[string][]byte)
	s.keys = nil
	return nil
}

func (s *state) isFinalized(digest common.Hash) (bool, error) {
	_, ok, err := s.get(finalizedKey(digest))
	return ok, err
}

func (s *state) finalize(digest common.Hash) {
	s.put(finalizedKey(digest), []byte{1})
}

func (s *state) nonce(maker common.Address) (uint64, error) {
	v, ok, err := s.get(nonceKey(maker))
	if err != nil || !ok {
		return 0, err
	}
	var n uint64
	if err := rlp.DecodeBytes(v, &n); err != nil {
		return 0, fmt.Errorf("failed to decode nonce: %w", err)
	}
	return n, nil
}

func (s *state) setNonce(maker common.Address, n uint64) error {
	v, err := rlp.EncodeToBytes(n)
	if err != nil {
		return err
	}
	s.put(nonceKey(maker), v)
	return nil
}

func (s *state) feeInfo(collection common.Address) (FeeInfo, error) {
	var info FeeInfo
	v, ok, err := s.get(royaltyKey(collection))
	if err != nil || !ok {
		return info, err
	}
	if err := rlp.DecodeBytes(v, &info); err != nil {
		return info, fmt.Errorf("failed to decode royalty record: %w", err)
	}
	return info, nil
}

func (s *state) setFeeInfo(collection common.Address, info FeeInfo) error {
	v, err := rlp.EncodeToBytes(&info)
	if err != nil {
		return err
	}
	s.put(royaltyKey(collection), v)
	return nil
}

// settings returns the persisted settings, or fallback before the first write
func (s *state) settings(fallback Settings) (Settings, error) {
	v, ok, err := s.get(settingsKey)
	if err != nil || !ok {
		return fallback, err
	}
	var out Settings
	if err := rlp.DecodeBytes(v, &out); err != nil {
		return fallback, fmt.Errorf("failed to decode settings: %w", err)
	}
	return out, nil
}

func (s *state) setSettings(settings Settings) error {
	v, err := rlp.EncodeToBytes(&settings)
	if err != nil {
		return err
	}
	s.put(settingsKey, v)
	return nil
}
