// session.go: The session lifecycle state machine that owns the keys.
//
// UserData holds one of seven states. Each state is reachable only through
// the transitions below, and the key material a state is not entitled to
// hold simply is not in its struct. Callers obtain a typed view with the
// WithXxxState accessors; the views expose only the accessors and
// transitions legal for that state, and every transition consumes the
// source state.
//
//	LoggedOut -> LoggingIn -> LoggedIn -> Unlocked <-> Locked
//	                  \          ^    \       (via Unlocking)
//	                   \         |     \-> Refreshing -> LoggedIn
//	                    \-> LoggedOut
//
// UserData is not internally synchronized; it belongs to a single session
// owner.

package vault

import (
	"encoding/json"
	"fmt"
	"log/slog"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// CollectionSelectionKind says what a collection filter selects.
type CollectionSelectionKind int

const (
	// SelectAll shows every item.
	SelectAll CollectionSelectionKind = iota
	// SelectUnassigned shows items in no collection.
	SelectUnassigned
	// SelectCollection shows one collection by ID.
	SelectCollection
)

// CollectionSelection is the vault view's collection filter, preserved
// across a lock/unlock cycle.
type CollectionSelection struct {
	Kind         CollectionSelectionKind `json:"kind"`
	CollectionID string                  `json:"collection_id,omitempty"`
}

// state structs: each holds exactly the data its state is entitled to.

type loggedOut struct{}

type loggingIn struct {
	email              string
	kdfParams          KDFParams
	masterKey          *MasterKey
	masterPasswordHash *MasterPasswordHash
	apiKey             *APIKey
}

type refreshing struct {
	email     string
	kdfParams KDFParams
	masterKey *MasterKey
	apiKey    *APIKey
}

type loggedIn struct {
	refreshing
	token *Token
}

// decryptKeys unwraps the user's symmetric keys from the token envelope
// with the held master key.
func (d *loggedIn) decryptKeys() (*EncMacKeys, error) {
	return DecryptSymmetricKeys(d.token.Key, d.masterKey)
}

// decryptPrivateKey unwraps the user's RSA private key with the symmetric
// keys.
func (d *loggedIn) decryptPrivateKey(userKeys *EncMacKeys) (*DerPrivateKey, error) {
	der, err := d.token.PrivateKey.Decrypt(userKeys)
	if err != nil {
		return nil, err
	}
	return NewDerPrivateKey(der), nil
}

type unlocked struct {
	loggedIn
	vault         map[string]*VaultItem
	organizations map[string]*Organization
	collections   map[string]*Collection
}

type locked struct {
	email     string
	kdfParams KDFParams
	// encryptedUserKey is the token's wrapped user key, kept so unlocking
	// can MAC-check a re-derived master key without the network.
	encryptedUserKey *Cipher
	vault            map[string]*VaultItem
	organizations    map[string]*Organization
	collections      map[string]*Collection
	// encLockData is the session snapshot under the intermediate lock
	// key; encLockKey is that lock key wrapped under the user keys.
	encLockData         *Cipher
	encLockKey          *Cipher
	collectionSelection CollectionSelection
	apiKey              *APIKey
}

type unlocking struct {
	loggedIn
	vault               map[string]*VaultItem
	organizations       map[string]*Organization
	collections         map[string]*Collection
	encLockData         *Cipher
	encLockKey          *Cipher
	collectionSelection CollectionSelection
}

type appStateData interface {
	stateName() string
	// destroySecrets zeroizes the key material the state holds. Called
	// when the state is discarded rather than handed forward.
	destroySecrets()
}

func (*loggedOut) stateName() string  { return "LoggedOut" }
func (*loggingIn) stateName() string  { return "LoggingIn" }
func (*refreshing) stateName() string { return "Refreshing" }
func (*loggedIn) stateName() string   { return "LoggedIn" }
func (*unlocked) stateName() string   { return "Unlocked" }
func (*locked) stateName() string     { return "Locked" }
func (*unlocking) stateName() string  { return "Unlocking" }

func (*loggedOut) destroySecrets() {}
func (d *loggingIn) destroySecrets() {
	d.masterKey.Destroy()
	d.masterPasswordHash.Destroy()
}
func (d *refreshing) destroySecrets() { d.masterKey.Destroy() }
func (d *loggedIn) destroySecrets()   { d.refreshing.destroySecrets() }
func (d *unlocked) destroySecrets()   { d.loggedIn.destroySecrets() }
func (*locked) destroySecrets()       {}
func (d *unlocking) destroySecrets()  { d.loggedIn.destroySecrets() }

// UserData owns the session state and the autolocker. Mutated from a single
// session-owner context; not safe for concurrent use.
type UserData struct {
	autolocker *Autolocker
	state      appStateData
}

// NewUserData returns a logged-out session.
func NewUserData(autolocker *Autolocker) *UserData {
	return &UserData{
		autolocker: autolocker,
		state:      &loggedOut{},
	}
}

// StateName returns the current state's name, for logging.
func (u *UserData) StateName() string {
	return u.state.stateName()
}

// Autolocker returns the session's autolocker.
func (u *UserData) Autolocker() *Autolocker {
	return u.autolocker
}

func stateData[T appStateData](u *UserData, requested string) T {
	d, ok := u.state.(T)
	if !ok {
		panic(fmt.Sprintf("vault: app not in expected state: requested %s, was %s", requested, u.state.stateName()))
	}
	return d
}

// State accessors. Each returns its typed view and true only when the
// session is currently in that state; operations on a stale view panic.

func (u *UserData) WithLoggedOutState() (LoggedOutState, bool) {
	_, ok := u.state.(*loggedOut)
	return LoggedOutState{ud: u}, ok
}

func (u *UserData) WithLoggingInState() (LoggingInState, bool) {
	_, ok := u.state.(*loggingIn)
	return LoggingInState{ud: u}, ok
}

// WithLoggingInLikeState matches both LoggingIn and Refreshing: the two
// states that are waiting for the server to turn credential material into a
// token, converging on the same LoggedIn transition.
func (u *UserData) WithLoggingInLikeState() (LoggingInLikeState, bool) {
	switch u.state.(type) {
	case *loggingIn, *refreshing:
		return LoggingInLikeState{ud: u}, true
	}
	return LoggingInLikeState{ud: u}, false
}

func (u *UserData) WithLoggedInState() (LoggedInState, bool) {
	_, ok := u.state.(*loggedIn)
	return LoggedInState{ud: u}, ok
}

func (u *UserData) WithUnlockedState() (UnlockedState, bool) {
	_, ok := u.state.(*unlocked)
	return UnlockedState{ud: u}, ok
}

func (u *UserData) WithLockedState() (LockedState, bool) {
	_, ok := u.state.(*locked)
	return LockedState{ud: u}, ok
}

// LoggedOutState is the initial state: no keys, no token.
type LoggedOutState struct{ ud *UserData }

// IntoLoggingIn starts a login attempt with freshly derived credentials.
func (s LoggedOutState) IntoLoggingIn(masterKey *MasterKey, masterPasswordHash *MasterPasswordHash, params KDFParams, email string, apiKey *APIKey) LoggingInState {
	stateData[*loggedOut](s.ud, "LoggedOut")
	s.ud.state = &loggingIn{
		email:              email,
		kdfParams:          params,
		masterKey:          masterKey,
		masterPasswordHash: masterPasswordHash,
		apiKey:             apiKey,
	}
	return LoggingInState{ud: s.ud}
}

// LoggingInState holds derived credentials while the token request is in
// flight.
type LoggingInState struct{ ud *UserData }

func (s LoggingInState) Email() string {
	return stateData[*loggingIn](s.ud, "LoggingIn").email
}

// MasterPasswordHash returns the server login credential.
func (s LoggingInState) MasterPasswordHash() *MasterPasswordHash {
	return stateData[*loggingIn](s.ud, "LoggingIn").masterPasswordHash
}

func (s LoggingInState) IntoLoggedOut() LoggedOutState {
	stateData[*loggingIn](s.ud, "LoggingIn")
	return intoLoggedOut(s.ud)
}

// LoggingInLikeState generalizes LoggingIn and Refreshing.
type LoggingInLikeState struct{ ud *UserData }

// IntoLoggedIn accepts the token the server returned for either a login or
// a refresh round-trip.
func (s LoggingInLikeState) IntoLoggedIn(token *Token) LoggedInState {
	var r refreshing
	switch d := s.ud.state.(type) {
	case *loggingIn:
		// The password hash is spent once the server accepted it.
		d.masterPasswordHash.Destroy()
		r = refreshing{email: d.email, kdfParams: d.kdfParams, masterKey: d.masterKey, apiKey: d.apiKey}
	case *refreshing:
		r = *d
	default:
		panic(fmt.Sprintf("vault: app not in expected state: requested LoggingInLike, was %s", s.ud.state.stateName()))
	}
	s.ud.state = &loggedIn{refreshing: r, token: token}
	return LoggedInState{ud: s.ud}
}

func (s LoggingInLikeState) IntoLoggedOut() LoggedOutState {
	switch s.ud.state.(type) {
	case *loggingIn, *refreshing:
		return intoLoggedOut(s.ud)
	}
	panic(fmt.Sprintf("vault: app not in expected state: requested LoggingInLike, was %s", s.ud.state.stateName()))
}

func intoLoggedOut(u *UserData) LoggedOutState {
	u.autolocker.Clear()
	u.state.destroySecrets()
	u.state = &loggedOut{}
	return LoggedOutState{ud: u}
}

// LoggedInState has a token and the master key but no vault data yet.
type LoggedInState struct{ ud *UserData }

func (s LoggedInState) Email() string {
	return stateData[*loggedIn](s.ud, "LoggedIn").email
}

func (s LoggedInState) Token() *Token {
	return stateData[*loggedIn](s.ud, "LoggedIn").token
}

func (s LoggedInState) APIKey() *APIKey {
	return stateData[*loggedIn](s.ud, "LoggedIn").apiKey
}

// IntoUnlocked attaches synced vault data to the authenticated session.
func (s LoggedInState) IntoUnlocked(vault map[string]*VaultItem, organizations map[string]*Organization, collections map[string]*Collection) UnlockedState {
	d := stateData[*loggedIn](s.ud, "LoggedIn")
	s.ud.state = &unlocked{
		loggedIn:      *d,
		vault:         vault,
		organizations: organizations,
		collections:   collections,
	}
	return UnlockedState{ud: s.ud}
}

// IntoRefreshing drops the stale token for a refresh round-trip.
func (s LoggedInState) IntoRefreshing() LoggingInLikeState {
	d := stateData[*loggedIn](s.ud, "LoggedIn")
	r := d.refreshing
	s.ud.state = &r
	return LoggingInLikeState{ud: s.ud}
}

// UnlockedState is the only state with immediately usable keys and
// plaintext-reachable vault data.
type UnlockedState struct{ ud *UserData }

// DecryptKeys unwraps the user's symmetric key pair.
func (s UnlockedState) DecryptKeys() (*EncMacKeys, error) {
	return stateData[*unlocked](s.ud, "Unlocked").decryptKeys()
}

func (s UnlockedState) Email() string {
	return stateData[*unlocked](s.ud, "Unlocked").email
}

func (s UnlockedState) Token() *Token {
	return stateData[*unlocked](s.ud, "Unlocked").token
}

func (s UnlockedState) VaultData() map[string]*VaultItem {
	return stateData[*unlocked](s.ud, "Unlocked").vault
}

func (s UnlockedState) Organizations() map[string]*Organization {
	return stateData[*unlocked](s.ud, "Unlocked").organizations
}

func (s UnlockedState) Collections() map[string]*Collection {
	return stateData[*unlocked](s.ud, "Unlocked").collections
}

// GetKeysForItem resolves the key pair for one vault item, or nil if any
// hop of the hierarchy fails. The caller owns the returned pair.
func (s UnlockedState) GetKeysForItem(item *VaultItem) *EncMacKeys {
	d := stateData[*unlocked](s.ud, "Unlocked")
	userKeys, err := d.decryptKeys()
	if err != nil {
		slog.Warn("decrypting user keys failed", "error", err)
		return nil
	}
	resolved := ResolveItemKeys(item, userKeys, func(orgID string, uk *EncMacKeys) *EncMacKeys {
		orgKeys, err := d.decryptOrganizationKeys(orgID, uk)
		if err != nil {
			slog.Warn("org key decryption failed", "error", err)
			return nil
		}
		return orgKeys
	})
	// The per-call user keys are only handed out when they are the resolved
	// pair themselves.
	if resolved != userKeys {
		userKeys.Destroy()
	}
	return resolved
}

// GetKeysForCollection resolves the organization keys a collection's name is
// encrypted under, or nil.
func (s UnlockedState) GetKeysForCollection(collection *Collection) *EncMacKeys {
	d := stateData[*unlocked](s.ud, "Unlocked")
	userKeys, err := d.decryptKeys()
	if err != nil {
		slog.Warn("decrypting user keys failed", "error", err)
		return nil
	}
	defer userKeys.Destroy()
	orgKeys, err := d.decryptOrganizationKeys(collection.OrganizationID, userKeys)
	if err != nil {
		slog.Warn("org key decryption failed", "error", err)
		return nil
	}
	return orgKeys
}

// GetOrgKeysForVault precomputes every organization's keys in parallel for
// a full-vault render.
func (s UnlockedState) GetOrgKeysForVault() map[string]*EncMacKeys {
	d := stateData[*unlocked](s.ud, "Unlocked")
	userKeys, err := d.decryptKeys()
	if err != nil {
		slog.Warn("decrypting user keys failed", "error", err)
		return map[string]*EncMacKeys{}
	}
	defer userKeys.Destroy()
	privateKey, err := d.decryptPrivateKey(userKeys)
	if err != nil {
		slog.Warn("decrypting private key failed", "error", err)
		return map[string]*EncMacKeys{}
	}
	defer privateKey.Destroy()
	return OrgKeysForVault(d.organizations, privateKey)
}

func (d *unlocked) decryptOrganizationKeys(orgID string, userKeys *EncMacKeys) (*EncMacKeys, error) {
	org, ok := d.organizations[orgID]
	if !ok {
		richErr := goerrors.New(ErrCodeDecrypt, fmt.Sprintf("org not found with id %s", orgID))
		return nil, fmt.Errorf("%w: %w", ErrCipherDecryption, richErr)
	}
	privateKey, err := d.decryptPrivateKey(userKeys)
	if err != nil {
		return nil, err
	}
	defer privateKey.Destroy()
	return DecryptOrgKeys(privateKey, org.Key)
}

// LockData is the session snapshot preserved across a lock: the vault
// view's search filter and the token. Serialized, encrypted under a fresh
// intermediate lock key, and recovered on unlock.
type LockData struct {
	SearchFilter string `json:"search_filter"`
	Token        *Token `json:"token"`
}

func (l *LockData) encrypt(keys *EncMacKeys) (*Cipher, error) {
	serialized, err := json.Marshal(l)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeCipherFormat, "serializing lock data failed")
		return nil, fmt.Errorf("%w: %w", ErrInvalidCipherFormat, richErr)
	}
	defer Zeroize(serialized)
	return EncryptCipher(serialized, keys)
}

func decryptLockData(c *Cipher, keys *EncMacKeys) (*LockData, error) {
	serialized, err := c.Decrypt(keys)
	if err != nil {
		return nil, err
	}
	defer Zeroize(serialized)

	var l LockData
	if err := json.Unmarshal(serialized, &l); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeCipherFormat, "deserializing lock data failed")
		return nil, fmt.Errorf("%w: %w", ErrInvalidCipherFormat, richErr)
	}
	if l.Token == nil {
		richErr := goerrors.New(ErrCodeCipherFormat, "lock data is missing its token")
		return nil, fmt.Errorf("%w: %w", ErrInvalidCipherFormat, richErr)
	}
	// The timestamp does not survive serialization; the restored token is
	// as fresh as the lock that stored it, at newest.
	l.Token.Timestamp = timecache.CachedTime()
	return &l, nil
}

// IntoLocked discards the usable keys and keeps only ciphertexts: the vault
// data stays in place encrypted, and the view snapshot (search term plus
// the token) goes under a freshly generated lock key, itself wrapped under
// the user keys so the password can recover it. The master key is
// destroyed.
func (s UnlockedState) IntoLocked(searchTerm string, collectionSelection CollectionSelection) (LockedState, error) {
	d := stateData[*unlocked](s.ud, "Unlocked")
	s.ud.autolocker.Clear()

	userKeys, err := d.decryptKeys()
	if err != nil {
		return LockedState{}, err
	}
	defer userKeys.Destroy()

	lockKey, err := SecureGenerateKeys()
	if err != nil {
		return LockedState{}, err
	}
	defer lockKey.Destroy()

	snapshot := &LockData{SearchFilter: searchTerm, Token: d.token}
	encLockData, err := snapshot.encrypt(lockKey)
	if err != nil {
		return LockedState{}, err
	}
	encLockKey, err := lockKey.EncryptSerialized(userKeys)
	if err != nil {
		return LockedState{}, err
	}

	s.ud.state = &locked{
		email:               d.email,
		kdfParams:           d.kdfParams,
		encryptedUserKey:    d.token.Key,
		vault:               d.vault,
		organizations:       d.organizations,
		collections:         d.collections,
		encLockData:         encLockData,
		encLockKey:          encLockKey,
		collectionSelection: collectionSelection,
		apiKey:              d.apiKey,
	}
	d.destroySecrets()
	return LockedState{ud: s.ud}, nil
}

// IntoLoggedIn drops the vault data, returning to the post-login state.
func (s UnlockedState) IntoLoggedIn() LoggedInState {
	d := stateData[*unlocked](s.ud, "Unlocked")
	s.ud.autolocker.Clear()
	l := d.loggedIn
	s.ud.state = &l
	return LoggedInState{ud: s.ud}
}

// LockedState retains only ciphertexts and the public login parameters
// needed to re-derive keys.
type LockedState struct{ ud *UserData }

func (s LockedState) Email() string {
	return stateData[*locked](s.ud, "Locked").email
}

func (s LockedState) KDFParams() KDFParams {
	return stateData[*locked](s.ud, "Locked").kdfParams
}

// EncryptedUserKey returns the wrapped user key used for the local
// password check.
func (s LockedState) EncryptedUserKey() *Cipher {
	return stateData[*locked](s.ud, "Locked").encryptedUserKey
}

func (s LockedState) APIKey() *APIKey {
	return stateData[*locked](s.ud, "Locked").apiKey
}

// IntoUnlocking proceeds with a master key that already passed
// DeriveAndCheckMasterKey.
func (s LockedState) IntoUnlocking(masterKey *MasterKey, apiKey *APIKey) UnlockingState {
	d := stateData[*locked](s.ud, "Locked")
	s.ud.state = &unlocking{
		loggedIn: loggedIn{
			refreshing: refreshing{
				email:     d.email,
				kdfParams: d.kdfParams,
				masterKey: masterKey,
				apiKey:    apiKey,
			},
			// The real token is still inside the lock snapshot; this
			// placeholder carries the wrapped key material needed to
			// decrypt it.
			token: &Token{Key: d.encryptedUserKey},
		},
		vault:               d.vault,
		organizations:       d.organizations,
		collections:         d.collections,
		encLockData:         d.encLockData,
		encLockKey:          d.encLockKey,
		collectionSelection: d.collectionSelection,
	}
	return UnlockingState{ud: s.ud}
}

// UnlockingState has a verified master key and is recovering the lock
// snapshot.
type UnlockingState struct{ ud *UserData }

// DecryptLockData recovers the snapshot stored at lock time: unwrap the
// lock key with the user keys, then decrypt the snapshot with the lock key.
func (s UnlockingState) DecryptLockData() (*LockData, error) {
	d := stateData[*unlocking](s.ud, "Unlocking")
	userKeys, err := d.decryptKeys()
	if err != nil {
		return nil, err
	}
	defer userKeys.Destroy()

	lockKey, err := DecryptEncMacKeys(d.encLockKey, userKeys)
	if err != nil {
		return nil, err
	}
	defer lockKey.Destroy()
	return decryptLockData(d.encLockData, lockKey)
}

// CollectionSelection returns the filter selection preserved at lock time.
func (s UnlockingState) CollectionSelection() CollectionSelection {
	return stateData[*unlocking](s.ud, "Unlocking").collectionSelection
}

// IntoUnlocked completes the unlock with the token recovered from the lock
// snapshot.
func (s UnlockingState) IntoUnlocked(token *Token) UnlockedState {
	d := stateData[*unlocking](s.ud, "Unlocking")
	l := d.loggedIn
	l.token = token
	s.ud.state = &unlocked{
		loggedIn:      l,
		vault:         d.vault,
		organizations: d.organizations,
		collections:   d.collections,
	}
	return UnlockedState{ud: s.ud}
}

// DeriveAndCheckMasterKey re-derives the master key for an unlock attempt
// and verifies the password by unwrapping the user key envelope. A wrong
// password fails the MAC check inside and surfaces as ErrMacVerification;
// no network round trip is involved.
func DeriveAndCheckMasterKey(email string, password []byte, params KDFParams, tokenKey *Cipher) (*MasterKey, error) {
	masterKey, err := CreateMasterKey(email, password, params)
	if err != nil {
		return nil, err
	}
	keys, err := DecryptSymmetricKeys(tokenKey, masterKey)
	if err != nil {
		masterKey.Destroy()
		return nil, err
	}
	keys.Destroy()
	return masterKey, nil
}
