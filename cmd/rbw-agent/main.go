// Command rbw-agent is the always-on background process that holds the
// user's derived vault key in memory and serves it to the stateless
// CLI over a Unix socket (spec.md §1/§5). Session handling (token
// issuance, expiry, nonce replay protection) is adapted from the
// teacher's native-host/main.go sessionState, generalized from Chrome
// native-messaging framing over stdin/stdout to the same length-
// prefixed JSON framing over a long-lived socket listener.
package main

import (
	"bufio"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rbw-cli/rbw/auth"
	"github.com/rbw-cli/rbw/internal/agentclient"
	"github.com/rbw-cli/rbw/internal/clipboard"
	"github.com/rbw-cli/rbw/internal/config"
	"github.com/rbw-cli/rbw/internal/quickunlock"
	"github.com/rbw-cli/rbw/internal/rlog"
	"github.com/rbw-cli/rbw/internal/vault"
	"github.com/rbw-cli/rbw/krypto"
	"github.com/rbw-cli/rbw/store"
)

const (
	protocolVersion = "1"
	unlockTTL       = 10 * time.Minute
	maxFrameSize    = 1 << 20
	// maxTrackedNonces bounds the replay-protection set so a session kept
	// alive indefinitely by repeated calls can't grow it without limit;
	// the oldest nonce is evicted once the cap is hit.
	maxTrackedNonces = 4096
)

var (
	errUnauthorized  = errors.New("unauthorized")
	errExpired       = errors.New("expired")
	errNonceReplayed = errors.New("nonce_replayed")
)

// sessionState caches the unlocked user key between agent calls, the
// same role the teacher's sessionState plays for a browser session.
type sessionState struct {
	mu         sync.Mutex
	token      string
	userKey    []byte
	expires    time.Time
	nonces     map[string]struct{}
	nonceOrder []string
}

func (s *sessionState) establish(userKey []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	s.userKey = append([]byte(nil), userKey...)
	s.token = token
	s.expires = time.Now().Add(unlockTTL)
	s.nonces = make(map[string]struct{})
	s.nonceOrder = nil
	return token, nil
}

func (s *sessionState) validate(token, nonce string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" || token == "" {
		return nil, errUnauthorized
	}
	if time.Now().After(s.expires) {
		s.clearLocked()
		return nil, errExpired
	}
	if subtle.ConstantTimeCompare([]byte(s.token), []byte(token)) != 1 {
		return nil, errUnauthorized
	}
	if nonce != "" {
		if _, seen := s.nonces[nonce]; seen {
			return nil, errNonceReplayed
		}
		s.nonces[nonce] = struct{}{}
		s.nonceOrder = append(s.nonceOrder, nonce)
		if len(s.nonceOrder) > maxTrackedNonces {
			delete(s.nonces, s.nonceOrder[0])
			s.nonceOrder = s.nonceOrder[1:]
		}
	}
	s.expires = time.Now().Add(unlockTTL)

	return append([]byte(nil), s.userKey...), nil
}

func (s *sessionState) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *sessionState) clearLocked() {
	zeroize(s.userKey)
	s.userKey = nil
	s.token = ""
	s.nonces = nil
	s.nonceOrder = nil
	s.expires = time.Time{}
}

func (s *sessionState) unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.userKey) == 32 && time.Now().Before(s.expires)
}

var sess sessionState

type request struct {
	Type         string `json:"type"`
	SessionToken string `json:"sessionToken"`
	Nonce        string `json:"nonce"`
	Password     string `json:"password"`
	Email        string `json:"email"`
	KDF          string `json:"kdf"`
	Text         string `json:"text"`
}

type response struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func main() {
	sockPath := agentclient.SocketPath()
	os.Remove(sockPath)

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			fmt.Fprintln(os.Stderr, "rbw-agent: already running")
			os.Exit(23)
		}
		fmt.Fprintf(os.Stderr, "rbw-agent: listen: %v\n", err)
		os.Exit(1)
	}
	defer listener.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		sess.clear()
		listener.Close()
		os.Remove(sockPath)
		os.Exit(0)
	}()

	rlog.Logger().Info("rbw-agent listening", "socket", sockPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			rlog.Logger().Error("accept failed", "err", err)
			continue
		}
		go handleConn(conn)
	}
}

func handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	payload, err := readFrame(reader)
	if err != nil {
		return
	}

	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		writeFrame(writer, response{OK: false, Code: "BAD_JSON", Message: "invalid json"})
		return
	}

	writeFrame(writer, handle(req))
}

func handle(req request) response {
	switch req.Type {
	case "version":
		return response{OK: true, Data: map[string]string{"version": protocolVersion}}
	case "unlock":
		return handleUnlock(req)
	case "provision":
		return handleProvision(req)
	case "lock":
		sess.clear()
		if dir, err := vaultDir(); err == nil {
			if err := quickunlock.Clear(dir); err != nil && !errors.Is(err, quickunlock.ErrUnsupported) {
				rlog.Logger().Warn("clear quick-unlock cache failed", "err", err)
			}
		}
		return response{OK: true}
	case "quickUnlock":
		return handleQuickUnlock()
	case "unlocked":
		return response{OK: true, Data: map[string]bool{"unlocked": sess.unlocked()}}
	case "getKey":
		return handleGetKey(req)
	case "sync":
		return response{OK: true}
	case "login":
		return response{OK: true}
	case "quit":
		go func() {
			time.Sleep(50 * time.Millisecond)
			sess.clear()
			os.Exit(0)
		}()
		return response{OK: true}
	case "clipboardStore":
		if err := (clipboard.Local{}).Store(req.Text); err != nil {
			return response{OK: false, Code: "CLIPBOARD_FAILED", Message: err.Error()}
		}
		return response{OK: true}
	default:
		return response{OK: false, Code: "UNSUPPORTED", Message: "unsupported command"}
	}
}

// handleGetKey returns the cached user key to a caller holding a valid
// session token, so the CLI process can run cryptoadapt.Adapter
// locally rather than proxying every decrypt call over the socket.
func handleGetKey(req request) response {
	key, err := sess.validate(req.SessionToken, req.Nonce)
	if err != nil {
		return sessionErrorResponse(err)
	}
	defer zeroize(key)
	return response{OK: true, Data: map[string]string{"key": base64.StdEncoding.EncodeToString(key)}}
}

func sessionErrorResponse(err error) response {
	switch {
	case errors.Is(err, errNonceReplayed):
		return response{OK: false, Code: "NONCE_REPLAY"}
	case errors.Is(err, errExpired):
		return response{OK: false, Code: "SESSION_EXPIRED"}
	default:
		return response{OK: false, Code: "UNAUTHORIZED"}
	}
}

// handleQuickUnlock establishes a session from a previously cached
// key instead of re-deriving it from a master password, letting
// UnlockCommand skip the password prompt when the OS keychain already
// vouches for the user (spec.md's unlock collaborator stays the same;
// this is an alternate, opt-in path into it).
func handleQuickUnlock() response {
	dir, err := vaultDir()
	if err != nil {
		return response{OK: false, Code: "CONFIG_MISSING", Message: err.Error()}
	}

	userKey, err := quickunlock.Load(dir)
	if err != nil {
		return response{OK: false, Code: "NO_QUICK_UNLOCK", Message: "no cached key"}
	}
	defer zeroize(userKey)

	token, err := sess.establish(userKey)
	if err != nil {
		return response{OK: false, Code: "INTERNAL", Message: "unlock failed"}
	}
	return response{OK: true, Data: map[string]string{"token": token}}
}

// cacheQuickUnlockKey caches userKey in the OS keychain when the user
// has opted into "rbw config-set quick_unlock true". Failure here
// never fails the unlock/provision call it's attached to: quick-unlock
// is a convenience layered on top of the password-derived flow, not a
// replacement for it.
func cacheQuickUnlockKey(dir string, userKey []byte) {
	cfg, err := config.Load(config.Paths{Dir: dir})
	if err != nil || !cfg.QuickUnlock {
		return
	}
	if err := quickunlock.Store(dir, userKey); err != nil && !errors.Is(err, quickunlock.ErrUnsupported) {
		rlog.Logger().Warn("cache quick-unlock key failed", "err", err)
	}
}

// derivePDK dispatches to the KDF named in the vault header: newer
// vaults use Argon2id, older Bitwarden-derived ones may still carry
// the legacy PBKDF2-SHA256 default, and both must unlock.
func derivePDK(password, salt []byte, kdf vault.KDFConfig) ([]byte, error) {
	switch kdf.Name {
	case "argon2id":
		return krypto.DeriveKeyArgon2id(password, salt, krypto.Argon2Params{
			MemoryMB:    kdf.MemoryMB,
			Time:        kdf.Time,
			Parallelism: kdf.Parallelism,
			SaltLen:     kdf.SaltLen,
			KeyLen:      kdf.KeyLen,
		})
	case "pbkdf2sha256":
		return krypto.DeriveKeyPBKDF2(password, salt, krypto.PBKDF2Params{
			Iterations: kdf.Time,
			KeyLen:     kdf.KeyLen,
		})
	default:
		return nil, fmt.Errorf("unsupported kdf %q", kdf.Name)
	}
}

func handleUnlock(req request) response {
	pwBytes := []byte(req.Password)
	defer zeroize(pwBytes)
	if len(pwBytes) == 0 {
		return response{OK: false, Code: "BAD_REQUEST", Message: "master password required"}
	}

	dir, err := vaultDir()
	if err != nil {
		return response{OK: false, Code: "CONFIG_MISSING", Message: err.Error()}
	}

	paths := store.Paths{Dir: dir}
	hdr, err := store.LoadVaultHeader(paths)
	if err != nil {
		return response{OK: false, Code: "UNLOCK_FAILED", Message: "unlock failed"}
	}
	if hdr.Salt == "" {
		return response{OK: false, Code: "UNLOCK_FAILED", Message: "unlock failed"}
	}

	salt, err := base64.StdEncoding.DecodeString(hdr.Salt)
	if err != nil {
		return response{OK: false, Code: "UNLOCK_FAILED", Message: "unlock failed"}
	}
	defer zeroize(salt)

	pdk, err := derivePDK(pwBytes, salt, hdr.KDF)
	if err != nil {
		return response{OK: false, Code: "UNLOCK_FAILED", Message: "unlock failed"}
	}
	defer zeroize(pdk)

	userKey, _, err := store.LoadAndUnwrapMEK(paths, pdk)
	if err != nil {
		return response{OK: false, Code: "UNLOCK_FAILED", Message: "unlock failed"}
	}
	defer zeroize(userKey)

	token, err := sess.establish(userKey)
	if err != nil {
		return response{OK: false, Code: "INTERNAL", Message: "unlock failed"}
	}
	cacheQuickUnlockKey(dir, userKey)
	return response{OK: true, Data: map[string]string{"token": token}}
}

// handleProvision creates a brand new vault header for a user who has
// never unlocked one before: spec.md's register/login flow needs
// somewhere to generate and wrap the very first user key, and this is
// that place. The chosen master password is checked against policy
// (auth.ValidateMasterPassword, grounded on the teacher's zxcvbn-backed
// auth/policy.go) before anything is written to disk.
func handleProvision(req request) response {
	pwBytes := []byte(req.Password)
	defer zeroize(pwBytes)
	if len(pwBytes) == 0 {
		return response{OK: false, Code: "BAD_REQUEST", Message: "master password required"}
	}

	if err := auth.ValidateMasterPassword(req.Password); err != nil {
		return response{OK: false, Code: "WEAK_PASSWORD", Message: err.Error()}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return response{OK: false, Code: "INTERNAL", Message: "resolve home directory failed"}
	}
	dir := home + "/.config/rbw"
	paths := store.Paths{Dir: dir}

	if _, err := store.LoadVaultHeader(paths); err == nil {
		return response{OK: false, Code: "ALREADY_PROVISIONED", Message: "vault already initialized"}
	}

	salt, err := krypto.NewRandomSalt(krypto.SaltLengthBytes)
	if err != nil {
		return response{OK: false, Code: "INTERNAL", Message: "generate salt failed"}
	}
	defer zeroize(salt)

	kdf := req.KDF
	if kdf == "" {
		kdf = "argon2id"
	}

	var kdfConfig vault.KDFConfig
	var pdk []byte
	switch kdf {
	case "argon2id":
		params := krypto.DefaultArgon2Params()
		kdfConfig = vault.KDFConfig{
			Name:        "argon2id",
			MemoryMB:    params.MemoryMB,
			Time:        params.Time,
			Parallelism: params.Parallelism,
			SaltLen:     params.SaltLen,
			KeyLen:      params.KeyLen,
		}
		pdk, err = krypto.DeriveKeyArgon2id(pwBytes, salt, params)
	case "pbkdf2sha256":
		params := krypto.DefaultPBKDF2Params()
		kdfConfig = vault.KDFConfig{Name: "pbkdf2sha256", Time: params.Iterations, KeyLen: params.KeyLen}
		pdk, err = krypto.DeriveKeyPBKDF2(pwBytes, salt, params)
	default:
		return response{OK: false, Code: "BAD_REQUEST", Message: fmt.Sprintf("unsupported kdf %q", kdf)}
	}
	if err != nil {
		return response{OK: false, Code: "INTERNAL", Message: "derive key failed"}
	}
	defer zeroize(pdk)

	userKey := make([]byte, 32)
	if _, err := rand.Read(userKey); err != nil {
		return response{OK: false, Code: "INTERNAL", Message: "generate user key failed"}
	}
	defer zeroize(userKey)

	hdr := vault.VaultHeader{
		Version: 1,
		User:    req.Email,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		KDF:     kdfConfig,
	}
	if err := store.WrapAndSaveMEK(paths, hdr, pdk, userKey); err != nil {
		return response{OK: false, Code: "INTERNAL", Message: "save vault header failed"}
	}

	if req.Email != "" {
		cfg, err := config.Load(config.Paths{Dir: dir})
		if err != nil && !errors.Is(err, config.ErrMissing) {
			return response{OK: false, Code: "INTERNAL", Message: "load config failed"}
		}
		cfg.Email = req.Email
		if err := config.Save(config.Paths{Dir: dir}, cfg); err != nil {
			return response{OK: false, Code: "INTERNAL", Message: "save config failed"}
		}
	}

	token, err := sess.establish(userKey)
	if err != nil {
		return response{OK: false, Code: "INTERNAL", Message: "establish session failed"}
	}
	cacheQuickUnlockKey(dir, userKey)
	return response{OK: true, Data: map[string]string{"token": token}}
}

func vaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := home + "/.config/rbw"
	if _, err := config.Load(config.Paths{Dir: dir}); err != nil {
		return "", err
	}
	return dir, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func zeroize(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

func writeFrame(w *bufio.Writer, resp response) error {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(encoded)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(encoded); err != nil {
		return err
	}
	return w.Flush()
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame too large: %d", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
