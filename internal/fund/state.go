package fund

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"StakeVault/internal/model"
)

// LoadState reads the vault state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*model.VaultState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.VaultState{}, nil
		}
		return nil, err
	}
	var state model.VaultState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return &state, nil
}

// SaveState writes the vault state to a JSON file. The file is replaced
// atomically so a crash never leaves a half-written state.
func SaveState(filePath string, state *model.VaultState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}

// BalanceSource exposes ledger balances for the state file.
type BalanceSource interface {
	Balances() map[string]uint64
}

// FileStore persists the engine state together with ledger balances.
type FileStore struct {
	path     string
	balances BalanceSource
}

// NewFileStore creates a store that writes to path.
func NewFileStore(path string, balances BalanceSource) *FileStore {
	return &FileStore{path: path, balances: balances}
}

func (s *FileStore) Persist(st *model.EngineState) error {
	vs := &model.VaultState{Engine: *st}
	if s.balances != nil {
		vs.Balances = s.balances.Balances()
	}
	if err := SaveState(s.path, vs); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}
