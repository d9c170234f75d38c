package amm

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Config is the protocol-wide singleton.
type Config struct {
	Owner solana.PublicKey `json:"owner"`
	FeeTo solana.PublicKey `json:"fee_to"`
	// Fee is the swap fee in basis points.
	Fee uint64 `json:"fee"`
}

// ConfigStore holds the Config singleton. It is created empty and becomes
// usable after Initialize.
type ConfigStore struct {
	mu     sync.RWMutex
	config *Config
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{}
}

// Initialize creates the singleton. feeTo starts out as the owner.
func (s *ConfigStore) Initialize(owner solana.PublicKey, fee uint64) (Config, error) {
	if err := validFee(fee); err != nil {
		return Config{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config != nil {
		return Config{}, ErrAlreadyInitialized
	}
	s.config = &Config{Owner: owner, FeeTo: owner, Fee: fee}
	return *s.config, nil
}

func (s *ConfigStore) SetFeeTo(caller, feeTo solana.PublicKey) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(caller); err != nil {
		return Config{}, err
	}
	s.config.FeeTo = feeTo
	return *s.config, nil
}

func (s *ConfigStore) SetFee(caller solana.PublicKey, fee uint64) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(caller); err != nil {
		return Config{}, err
	}
	if err := validFee(fee); err != nil {
		return Config{}, err
	}
	s.config.Fee = fee
	return *s.config, nil
}

// Get returns a snapshot of the config.
func (s *ConfigStore) Get() (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return Config{}, ErrNotInitialized
	}
	return *s.config, nil
}

// Fee reads the fee once. Swaps use the returned value for the whole computation.
func (s *ConfigStore) Fee() (uint64, error) {
	cfg, err := s.Get()
	if err != nil {
		return 0, err
	}
	return cfg.Fee, nil
}

// authorize must be called with mu held.
func (s *ConfigStore) RequireOwner(caller solana.PublicKey) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authorize(caller)
}

func (s *ConfigStore) authorize(caller solana.PublicKey) error {
	if s.config == nil {
		return ErrNotInitialized
	}
	if !caller.Equals(s.config.Owner) {
		return ErrUnauthorized.Wrapf("caller %s is not the owner", caller)
	}
	return nil
}
