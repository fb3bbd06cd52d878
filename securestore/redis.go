package securestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const setTokenPairScript = `
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[2])
return 1
`

const clearTokensScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("DEL", KEYS[1], KEYS[2])
return existed
`

const saveAccountScript = `
local exists = redis.call("HEXISTS", KEYS[1], ARGV[1])
if exists == 0 then
  local count = redis.call("HLEN", KEYS[1])
  if count >= tonumber(ARGV[3]) then
    return 0
  end
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`

var (
	setTokenPairLua = redis.NewScript(setTokenPairScript)
	clearTokensLua  = redis.NewScript(clearTokensScript)
	saveAccountLua  = redis.NewScript(saveAccountScript)
)

// RedisStore is the Redis-backed secure store. All keys live under a
// configurable prefix so several installs can share one Redis in tests.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a RedisStore with the given key prefix. An empty
// prefix defaults to "swapcore".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "swapcore"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) accessKey() string        { return s.prefix + ":tokens:access" }
func (s *RedisStore) refreshKey() string       { return s.prefix + ":tokens:refresh" }
func (s *RedisStore) pinKey(pid string) string { return s.prefix + ":pin:" + pid }
func (s *RedisStore) lastProfileKey() string   { return s.prefix + ":pin:last_active" }
func (s *RedisStore) accountsKey() string      { return s.prefix + ":accounts" }
func (s *RedisStore) deviceTokenKey() string   { return s.prefix + ":device_token" }
func (s *RedisStore) walletKey() string        { return s.prefix + ":wallet:unlocked_at" }

func wrapRedisErr(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *RedisStore) getString(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", wrapRedisErr(err)
	}
	return val, nil
}

// AccessToken returns the persisted access token, or "" when absent.
func (s *RedisStore) AccessToken(ctx context.Context) (string, error) {
	return s.getString(ctx, s.accessKey())
}

// RefreshToken returns the persisted refresh token, or "" when absent.
func (s *RedisStore) RefreshToken(ctx context.Context) (string, error) {
	return s.getString(ctx, s.refreshKey())
}

// SetTokenPair writes both tokens in one script so a concurrent reader
// never observes a torn pair.
func (s *RedisStore) SetTokenPair(ctx context.Context, access, refresh string) error {
	if access == "" || refresh == "" {
		return errors.New("token pair must be complete")
	}
	keys := []string{s.accessKey(), s.refreshKey()}
	if err := setTokenPairLua.Run(ctx, s.client, keys, access, refresh).Err(); err != nil {
		return wrapRedisErr(err)
	}
	return nil
}

// ClearTokens deletes both tokens atomically. Safe to call when no pair
// is stored.
func (s *RedisStore) ClearTokens(ctx context.Context) error {
	keys := []string{s.accessKey(), s.refreshKey()}
	if err := clearTokensLua.Run(ctx, s.client, keys).Err(); err != nil {
		return wrapRedisErr(err)
	}
	return nil
}

// StoreProfilePinData writes the PIN association for one profile.
func (s *RedisStore) StoreProfilePinData(ctx context.Context, profileID string, data PinData) error {
	if profileID == "" {
		return errors.New("profileID required")
	}
	blob, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.pinKey(profileID), blob, 0).Err(); err != nil {
		return wrapRedisErr(err)
	}
	return nil
}

// ProfilePinData returns the association for the profile, or nil when
// none has been stored.
func (s *RedisStore) ProfilePinData(ctx context.Context, profileID string) (*PinData, error) {
	val, err := s.client.Get(ctx, s.pinKey(profileID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapRedisErr(err)
	}

	var data PinData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, fmt.Errorf("corrupt pin record for profile %s: %w", profileID, err)
	}
	return &data, nil
}

// ClearProfilePinData removes the association. Idempotent.
func (s *RedisStore) ClearProfilePinData(ctx context.Context, profileID string) error {
	if err := s.client.Del(ctx, s.pinKey(profileID)).Err(); err != nil {
		return wrapRedisErr(err)
	}
	return nil
}

// SetLastActiveProfile records the profile most recently authenticated.
func (s *RedisStore) SetLastActiveProfile(ctx context.Context, profileID string) error {
	if err := s.client.Set(ctx, s.lastProfileKey(), profileID, 0).Err(); err != nil {
		return wrapRedisErr(err)
	}
	return nil
}

// LastActiveProfileID returns the last active profile id, or "".
func (s *RedisStore) LastActiveProfileID(ctx context.Context) (string, error) {
	return s.getString(ctx, s.lastProfileKey())
}

// Accounts lists remembered accounts, newest save first.
func (s *RedisStore) Accounts(ctx context.Context) ([]AccountRecord, error) {
	vals, err := s.client.HGetAll(ctx, s.accountsKey()).Result()
	if err != nil {
		return nil, wrapRedisErr(err)
	}

	records := make([]AccountRecord, 0, len(vals))
	for userID, blob := range vals {
		var rec AccountRecord
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			return nil, fmt.Errorf("corrupt account record for user %s: %w", userID, err)
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].SavedAt > records[j].SavedAt })
	return records, nil
}

// Account returns one remembered account, or nil when unknown.
func (s *RedisStore) Account(ctx context.Context, userID string) (*AccountRecord, error) {
	val, err := s.client.HGet(ctx, s.accountsKey(), userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapRedisErr(err)
	}

	var rec AccountRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("corrupt account record for user %s: %w", userID, err)
	}
	return &rec, nil
}

// SaveAccount upserts a remembered account. The ceiling check and the
// write run in one script: a 6th distinct account is rejected with
// [ErrAccountLimit] and the stored records stay unchanged.
func (s *RedisStore) SaveAccount(ctx context.Context, rec AccountRecord, maxAccounts int) error {
	if rec.UserID == "" {
		return errors.New("account userID required")
	}
	if maxAccounts <= 0 {
		return errors.New("maxAccounts must be positive")
	}

	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	res, err := saveAccountLua.Run(ctx, s.client,
		[]string{s.accountsKey()},
		rec.UserID, string(blob), strconv.Itoa(maxAccounts),
	).Int64()
	if err != nil {
		return wrapRedisErr(err)
	}
	if res == 0 {
		return ErrAccountLimit
	}
	return nil
}

// RemoveAccount forgets one remembered account. Idempotent.
func (s *RedisStore) RemoveAccount(ctx context.Context, userID string) error {
	if err := s.client.HDel(ctx, s.accountsKey(), userID).Err(); err != nil {
		return wrapRedisErr(err)
	}
	return nil
}

// DeviceToken returns the stored biometric device token, or "".
func (s *RedisStore) DeviceToken(ctx context.Context) (string, error) {
	return s.getString(ctx, s.deviceTokenKey())
}

// SetDeviceToken stores the biometric device token.
func (s *RedisStore) SetDeviceToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("device token required")
	}
	if err := s.client.Set(ctx, s.deviceTokenKey(), token, 0).Err(); err != nil {
		return wrapRedisErr(err)
	}
	return nil
}

// ClearDeviceToken removes the biometric device token. Idempotent.
func (s *RedisStore) ClearDeviceToken(ctx context.Context) error {
	if err := s.client.Del(ctx, s.deviceTokenKey()).Err(); err != nil {
		return wrapRedisErr(err)
	}
	return nil
}

// WalletUnlockedAt returns the persisted wallet unlock time. The second
// return value is false when no unlock has been recorded.
func (s *RedisStore) WalletUnlockedAt(ctx context.Context) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, s.walletKey()).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, wrapRedisErr(err)
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt wallet unlock record: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

// SetWalletUnlockedAt records the wallet unlock time.
func (s *RedisStore) SetWalletUnlockedAt(ctx context.Context, t time.Time) error {
	if err := s.client.Set(ctx, s.walletKey(), strconv.FormatInt(t.UnixMilli(), 10), 0).Err(); err != nil {
		return wrapRedisErr(err)
	}
	return nil
}

// ClearWalletUnlock removes the wallet unlock record. Idempotent.
func (s *RedisStore) ClearWalletUnlock(ctx context.Context) error {
	if err := s.client.Del(ctx, s.walletKey()).Err(); err != nil {
		return wrapRedisErr(err)
	}
	return nil
}

// Wipe deletes every key under the store prefix.
func (s *RedisStore) Wipe(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+":*", 100).Result()
		if err != nil {
			return wrapRedisErr(err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return wrapRedisErr(err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
