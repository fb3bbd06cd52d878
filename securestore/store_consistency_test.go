package securestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func storeImplementations(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"redis":  NewRedisStore(client, "test"),
		"memory": NewMemoryStore(),
	}
}

func TestTokenPairRoundTrip(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			access, err := store.AccessToken(ctx)
			if err != nil || access != "" {
				t.Fatalf("expected empty access token, got %q err %v", access, err)
			}

			if err := store.SetTokenPair(ctx, "acc-1", "ref-1"); err != nil {
				t.Fatalf("SetTokenPair failed: %v", err)
			}

			access, _ = store.AccessToken(ctx)
			refresh, _ := store.RefreshToken(ctx)
			if access != "acc-1" || refresh != "ref-1" {
				t.Fatalf("unexpected pair %q/%q", access, refresh)
			}

			if err := store.ClearTokens(ctx); err != nil {
				t.Fatalf("ClearTokens failed: %v", err)
			}
			access, _ = store.AccessToken(ctx)
			refresh, _ = store.RefreshToken(ctx)
			if access != "" || refresh != "" {
				t.Fatalf("tokens survived clear: %q/%q", access, refresh)
			}

			// Clearing an already empty store must not fail.
			if err := store.ClearTokens(ctx); err != nil {
				t.Fatalf("second ClearTokens failed: %v", err)
			}
		})
	}
}

func TestSetTokenPairRejectsPartialPair(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.SetTokenPair(ctx, "acc-only", ""); err == nil {
				t.Fatal("expected error for incomplete pair")
			}
			if err := store.SetTokenPair(ctx, "", "ref-only"); err == nil {
				t.Fatal("expected error for incomplete pair")
			}
			access, _ := store.AccessToken(ctx)
			if access != "" {
				t.Fatalf("partial write leaked: %q", access)
			}
		})
	}
}

func TestProfilePinDataLifecycle(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			data, err := store.ProfilePinData(ctx, "p1")
			if err != nil || data != nil {
				t.Fatalf("expected nil pin data, got %+v err %v", data, err)
			}

			want := PinData{Identifier: "alice@example.com", UserID: "u1", ProfileID: "p1"}
			if err := store.StoreProfilePinData(ctx, "p1", want); err != nil {
				t.Fatalf("StoreProfilePinData failed: %v", err)
			}

			data, err = store.ProfilePinData(ctx, "p1")
			if err != nil {
				t.Fatalf("ProfilePinData failed: %v", err)
			}
			if data == nil || *data != want {
				t.Fatalf("unexpected pin data %+v", data)
			}

			if err := store.SetLastActiveProfile(ctx, "p1"); err != nil {
				t.Fatalf("SetLastActiveProfile failed: %v", err)
			}
			last, err := store.LastActiveProfileID(ctx)
			if err != nil || last != "p1" {
				t.Fatalf("expected last profile p1, got %q err %v", last, err)
			}

			if err := store.ClearProfilePinData(ctx, "p1"); err != nil {
				t.Fatalf("ClearProfilePinData failed: %v", err)
			}
			data, _ = store.ProfilePinData(ctx, "p1")
			if data != nil {
				t.Fatalf("pin data survived clear: %+v", data)
			}
		})
	}
}

func TestAccountCeilingEnforcedBeforeMutation(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				rec := AccountRecord{
					UserID:       string(rune('a' + i)),
					DisplayName:  "user",
					AccessToken:  "acc",
					RefreshToken: "ref",
					SavedAt:      int64(i),
				}
				if err := store.SaveAccount(ctx, rec, 5); err != nil {
					t.Fatalf("save %d failed: %v", i, err)
				}
			}

			sixth := AccountRecord{UserID: "zzz", AccessToken: "acc", RefreshToken: "ref"}
			if err := store.SaveAccount(ctx, sixth, 5); !errors.Is(err, ErrAccountLimit) {
				t.Fatalf("expected ErrAccountLimit, got %v", err)
			}

			records, err := store.Accounts(ctx)
			if err != nil {
				t.Fatalf("Accounts failed: %v", err)
			}
			if len(records) != 5 {
				t.Fatalf("expected 5 records after rejected save, got %d", len(records))
			}

			// Re-saving an existing account is an update, not a 6th add.
			update := AccountRecord{UserID: "a", DisplayName: "renamed", AccessToken: "acc2", RefreshToken: "ref2"}
			if err := store.SaveAccount(ctx, update, 5); err != nil {
				t.Fatalf("update of existing account failed: %v", err)
			}
			got, _ := store.Account(ctx, "a")
			if got == nil || got.DisplayName != "renamed" {
				t.Fatalf("update not applied: %+v", got)
			}
		})
	}
}

func TestRemoveAccountIdempotent(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec := AccountRecord{UserID: "u1", AccessToken: "a", RefreshToken: "r"}
			if err := store.SaveAccount(ctx, rec, 5); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			if err := store.RemoveAccount(ctx, "u1"); err != nil {
				t.Fatalf("remove failed: %v", err)
			}
			if err := store.RemoveAccount(ctx, "u1"); err != nil {
				t.Fatalf("second remove failed: %v", err)
			}
			got, _ := store.Account(ctx, "u1")
			if got != nil {
				t.Fatalf("account survived removal: %+v", got)
			}
		})
	}
}

func TestWalletUnlockRoundTrip(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.WalletUnlockedAt(ctx)
			if err != nil || ok {
				t.Fatalf("expected no unlock record, ok=%v err=%v", ok, err)
			}

			at := time.UnixMilli(1_700_000_000_000)
			if err := store.SetWalletUnlockedAt(ctx, at); err != nil {
				t.Fatalf("SetWalletUnlockedAt failed: %v", err)
			}

			got, ok, err := store.WalletUnlockedAt(ctx)
			if err != nil || !ok {
				t.Fatalf("expected unlock record, ok=%v err=%v", ok, err)
			}
			if !got.Equal(at) {
				t.Fatalf("expected %v, got %v", at, got)
			}

			if err := store.ClearWalletUnlock(ctx); err != nil {
				t.Fatalf("ClearWalletUnlock failed: %v", err)
			}
			_, ok, _ = store.WalletUnlockedAt(ctx)
			if ok {
				t.Fatal("unlock record survived clear")
			}
		})
	}
}

func TestWipeRemovesEverything(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_ = store.SetTokenPair(ctx, "a", "r")
			_ = store.StoreProfilePinData(ctx, "p1", PinData{Identifier: "x", UserID: "u1", ProfileID: "p1"})
			_ = store.SaveAccount(ctx, AccountRecord{UserID: "u1", AccessToken: "a", RefreshToken: "r"}, 5)
			_ = store.SetDeviceToken(ctx, "dev")
			_ = store.SetWalletUnlockedAt(ctx, time.Now())

			if err := store.Wipe(ctx); err != nil {
				t.Fatalf("Wipe failed: %v", err)
			}

			access, _ := store.AccessToken(ctx)
			pin, _ := store.ProfilePinData(ctx, "p1")
			accounts, _ := store.Accounts(ctx)
			dev, _ := store.DeviceToken(ctx)
			_, unlocked, _ := store.WalletUnlockedAt(ctx)

			if access != "" || pin != nil || len(accounts) != 0 || dev != "" || unlocked {
				t.Fatalf("wipe incomplete: access=%q pin=%v accounts=%d dev=%q unlocked=%v",
					access, pin, len(accounts), dev, unlocked)
			}
		})
	}
}
