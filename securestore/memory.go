package securestore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for tests and hosts without
// Redis. All operations are guarded by one mutex; the atomicity
// contract matches RedisStore.
type MemoryStore struct {
	mu sync.Mutex

	access  string
	refresh string

	pins        map[string]PinData
	lastProfile string

	accounts map[string]AccountRecord

	deviceToken string

	walletUnlockedAt time.Time
	walletUnlocked   bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pins:     make(map[string]PinData),
		accounts: make(map[string]AccountRecord),
	}
}

func (s *MemoryStore) AccessToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, nil
}

func (s *MemoryStore) RefreshToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh, nil
}

func (s *MemoryStore) SetTokenPair(_ context.Context, access, refresh string) error {
	if access == "" || refresh == "" {
		return errors.New("token pair must be complete")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	return nil
}

func (s *MemoryStore) ClearTokens(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	return nil
}

func (s *MemoryStore) StoreProfilePinData(_ context.Context, profileID string, data PinData) error {
	if profileID == "" {
		return errors.New("profileID required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[profileID] = data
	return nil
}

func (s *MemoryStore) ProfilePinData(_ context.Context, profileID string) (*PinData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.pins[profileID]
	if !ok {
		return nil, nil
	}
	return &data, nil
}

func (s *MemoryStore) ClearProfilePinData(_ context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pins, profileID)
	return nil
}

func (s *MemoryStore) SetLastActiveProfile(_ context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastProfile = profileID
	return nil
}

func (s *MemoryStore) LastActiveProfileID(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastProfile, nil
}

func (s *MemoryStore) Accounts(context.Context) ([]AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]AccountRecord, 0, len(s.accounts))
	for _, rec := range s.accounts {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].SavedAt > records[j].SavedAt })
	return records, nil
}

func (s *MemoryStore) Account(_ context.Context, userID string) (*AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.accounts[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) SaveAccount(_ context.Context, rec AccountRecord, maxAccounts int) error {
	if rec.UserID == "" {
		return errors.New("account userID required")
	}
	if maxAccounts <= 0 {
		return errors.New("maxAccounts must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[rec.UserID]; !exists && len(s.accounts) >= maxAccounts {
		return ErrAccountLimit
	}
	s.accounts[rec.UserID] = rec
	return nil
}

func (s *MemoryStore) RemoveAccount(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, userID)
	return nil
}

func (s *MemoryStore) DeviceToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceToken, nil
}

func (s *MemoryStore) SetDeviceToken(_ context.Context, token string) error {
	if token == "" {
		return errors.New("device token required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceToken = token
	return nil
}

func (s *MemoryStore) ClearDeviceToken(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceToken = ""
	return nil
}

func (s *MemoryStore) WalletUnlockedAt(context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walletUnlockedAt, s.walletUnlocked, nil
}

func (s *MemoryStore) SetWalletUnlockedAt(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walletUnlockedAt = t
	s.walletUnlocked = true
	return nil
}

func (s *MemoryStore) ClearWalletUnlock(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walletUnlockedAt = time.Time{}
	s.walletUnlocked = false
	return nil
}

func (s *MemoryStore) Wipe(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	s.pins = make(map[string]PinData)
	s.lastProfile = ""
	s.accounts = make(map[string]AccountRecord)
	s.deviceToken = ""
	s.walletUnlockedAt = time.Time{}
	s.walletUnlocked = false
	return nil
}
