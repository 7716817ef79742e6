// resolve.go: Finding the right key pair for a vault item.

package vault

import (
	"log/slog"
	"sync"
)

// VaultItem is the slice of a stored item that key resolution and the
// session need: its identity, an optional owning organization and an
// optional per-item wrapped key. Field ciphertexts (name, username,
// password, notes) stay opaque here and are decrypted by the caller with
// the resolved keys.
type VaultItem struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organizationId,omitempty"`
	Key            *Cipher `json:"key,omitempty"`
	Name           *Cipher `json:"name,omitempty"`
	Username       *Cipher `json:"username,omitempty"`
	Password       *Cipher `json:"password,omitempty"`
	Notes          *Cipher `json:"notes,omitempty"`
}

// Organization is an organization the user belongs to, carrying its
// RSA-wrapped share key.
type Organization struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Key  *Cipher `json:"key"`
}

// Collection is a named group of vault items inside an organization.
type Collection struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organizationId"`
	Name           *Cipher `json:"name"`
}

// OrgKeyLookup resolves an organization's stretched key pair given the
// caller's user keys, or nil if the organization's keys cannot be obtained.
type OrgKeyLookup func(orgID string, userKeys *EncMacKeys) *EncMacKeys

// ResolveItemKeys finds the key pair that decrypts item's fields:
// the user's own keys for personal items, the organization keys for shared
// ones, optionally narrowed by the item's own wrapped key. Returns nil when
// any hop fails; the item is then undecryptable but the session carries on.
// Intermediate pairs superseded along the chain are destroyed; the caller
// owns the returned pair unless it is userKeys itself.
func ResolveItemKeys(item *VaultItem, userKeys *EncMacKeys, getOrgKey OrgKeyLookup) *EncMacKeys {
	// The base keys decrypt the item-specific key if one is present, and
	// the item fields directly otherwise.
	baseKeys := userKeys
	if item.OrganizationID != "" {
		baseKeys = getOrgKey(item.OrganizationID, userKeys)
		if baseKeys == nil {
			return nil
		}
	}

	if item.Key == nil || item.Key.IsEmpty() {
		return baseKeys
	}
	itemKeys, err := DecryptItemKeys(baseKeys, item.Key)
	if baseKeys != userKeys {
		baseKeys.Destroy()
	}
	if err != nil {
		slog.Warn("decrypting item keys failed", "item", item.ID, "error", err)
		return nil
	}
	return itemKeys
}

// OrgKeysForVault unwraps the share keys of every organization in parallel.
// Each unwrap is independent and read-only, so a full-vault precompute on
// unlock stays cheap even with many organizations. Organizations whose keys
// cannot be unwrapped are skipped with a warning.
func OrgKeysForVault(orgs map[string]*Organization, privateKey *DerPrivateKey) map[string]*EncMacKeys {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		keys = make(map[string]*EncMacKeys, len(orgs))
	)
	for id, org := range orgs {
		wg.Add(1)
		go func(id string, org *Organization) {
			defer wg.Done()
			orgKeys, err := DecryptOrgKeys(privateKey, org.Key)
			if err != nil {
				slog.Warn("org key decryption failed", "org", id, "error", err)
				return
			}
			mu.Lock()
			keys[id] = orgKeys
			mu.Unlock()
		}(id, org)
	}
	wg.Wait()
	return keys
}
