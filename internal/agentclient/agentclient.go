// Package agentclient is the CLI-side half of the background agent
// protocol (spec.md §5/§6: "a persistent process reached over a local
// socket"). Framing and session-token handling are adapted from the
// teacher's native-host/main.go, which speaks the same length-prefixed
// JSON shape over Chrome's native-messaging stdin/stdout; here the
// transport is a Unix domain socket instead of stdio, since the agent
// is a long-lived background process rather than one spawned per
// browser message.
package agentclient

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"
)

func base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

const maxFrameSize = 1 << 20

// SocketPath resolves the agent's Unix socket location, honoring
// $RBW_AGENT_SOCK for tests and XDG_RUNTIME_DIR conventions otherwise.
func SocketPath() string {
	if p := os.Getenv("RBW_AGENT_SOCK"); p != "" {
		return p
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "rbw-agent.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("rbw-agent-%d.sock", os.Getuid()))
}

// AgentPath resolves the agent binary path, honoring RBW_AGENT per
// spec.md §6; default is "rbw-agent" on $PATH.
func AgentPath() string {
	if p := os.Getenv("RBW_AGENT"); p != "" {
		return p
	}
	return "rbw-agent"
}

// tokenPath resolves where the session token handed out by Unlock/
// Provision/QuickUnlock is cached on disk, so the next (stateless) CLI
// invocation can present it to the agent's getKey call instead of an
// empty one. Lives next to the socket, honoring the same env override
// used by tests.
func tokenPath() string {
	if p := os.Getenv("RBW_AGENT_TOKEN_FILE"); p != "" {
		return p
	}
	return SocketPath() + ".token"
}

// SaveToken persists the session token so it survives across CLI
// invocations; readable only by the owning user.
func SaveToken(token string) error {
	return os.WriteFile(tokenPath(), []byte(token), 0o600)
}

// LoadToken reads back a token saved by SaveToken, or "" if none is
// cached (e.g. the vault was never unlocked, or the cache was cleared).
func LoadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(b), nil
}

// ClearToken removes the cached session token, called once the agent
// reports a session as locked/expired so a stale token isn't retried
// forever.
func ClearToken() error {
	err := os.Remove(tokenPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Client is a thin RPC stub over the agent's Unix socket.
type Client struct {
	SocketPath string
	Token      string
}

type request struct {
	Type         string `json:"type"`
	SessionToken string `json:"sessionToken,omitempty"`
	Nonce        string `json:"nonce,omitempty"`
	Password     string `json:"password,omitempty"`
	Email        string `json:"email,omitempty"`
	Text         string `json:"text,omitempty"`
}

type response struct {
	OK      bool            `json:"ok"`
	Data    json.RawMessage `json:"data,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ErrUnreachable wraps dial failures so callers can attempt the
// single automatic restart spec.md §7 describes for "agent unavailable".
var ErrUnreachable = errors.New("agent unavailable")

func (c *Client) call(req request) (response, error) {
	conn, err := net.DialTimeout("unix", c.SocketPath, 2*time.Second)
	if err != nil {
		return response{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer conn.Close()

	req.SessionToken = c.Token
	req.Nonce = newNonce()

	payload, err := json.Marshal(req)
	if err != nil {
		return response{}, fmt.Errorf("encode request: %w", err)
	}

	w := bufio.NewWriter(conn)
	if err := writeFrame(w, payload); err != nil {
		return response{}, fmt.Errorf("write request: %w", err)
	}

	r := bufio.NewReader(conn)
	respPayload, err := readFrame(r)
	if err != nil {
		return response{}, fmt.Errorf("read response: %w", err)
	}

	var resp response
	if err := json.Unmarshal(respPayload, &resp); err != nil {
		return response{}, fmt.Errorf("decode response: %w", err)
	}
	if !resp.OK {
		return resp, fmt.Errorf("agent error %s: %s", resp.Code, resp.Message)
	}
	return resp, nil
}

// Unlock derives and caches the vault key from the master password,
// returning the session token to use for subsequent calls.
func (c *Client) Unlock(password string) (string, error) {
	resp, err := c.call(request{Type: "unlock", Password: password})
	if err != nil {
		return "", err
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", fmt.Errorf("decode unlock response: %w", err)
	}
	c.Token = data.Token
	return data.Token, nil
}

// Provision initializes a brand new vault: the agent validates the
// chosen master password against policy, derives fresh key material,
// and stores a wrapped user key under it. Returns the session token
// for the newly unlocked vault, same as Unlock.
func (c *Client) Provision(email, password string) (string, error) {
	resp, err := c.call(request{Type: "provision", Email: email, Password: password})
	if err != nil {
		return "", err
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", fmt.Errorf("decode provision response: %w", err)
	}
	c.Token = data.Token
	return data.Token, nil
}

// QuickUnlock tries to establish a session from a key the agent has
// previously cached in the OS keychain (see "rbw config-set
// quick_unlock true"), skipping the master-password prompt. Callers
// should fall back to Unlock when this returns an error.
func (c *Client) QuickUnlock() (string, error) {
	resp, err := c.call(request{Type: "quickUnlock"})
	if err != nil {
		return "", err
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", fmt.Errorf("decode quick-unlock response: %w", err)
	}
	c.Token = data.Token
	return data.Token, nil
}

// GetKey retrieves the raw user key cached by the agent for the
// current session, so the caller can run cryptoadapt.Adapter locally
// instead of proxying every decrypt call over the socket.
func (c *Client) GetKey() ([]byte, error) {
	resp, err := c.call(request{Type: "getKey"})
	if err != nil {
		return nil, err
	}
	var data struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("decode key response: %w", err)
	}
	return base64Decode(data.Key)
}

// Lock discards the cached vault key.
func (c *Client) Lock() error {
	_, err := c.call(request{Type: "lock"})
	return err
}

// Unlocked reports whether the agent currently holds a cached key.
func (c *Client) Unlocked() (bool, error) {
	resp, err := c.call(request{Type: "unlocked"})
	if err != nil {
		return false, err
	}
	var data struct {
		Unlocked bool `json:"unlocked"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return false, fmt.Errorf("decode unlocked response: %w", err)
	}
	return data.Unlocked, nil
}

// Sync asks the agent to re-fetch and overwrite the local replica.
func (c *Client) Sync() error {
	_, err := c.call(request{Type: "sync"})
	return err
}

// Login performs the interactive login/registration handshake.
func (c *Client) Login() error {
	_, err := c.call(request{Type: "login"})
	return err
}

// Quit asks the agent process to exit, clearing its session first.
func (c *Client) Quit() error {
	_, err := c.call(request{Type: "quit"})
	return err
}

// Version returns the agent's reported protocol version, used to
// detect skew per spec.md §7.
func (c *Client) Version() (string, error) {
	resp, err := c.call(request{Type: "version"})
	if err != nil {
		return "", err
	}
	var data struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", fmt.Errorf("decode version response: %w", err)
	}
	return data.Version, nil
}

// ClipboardStore asks the agent to write text to the clipboard; used
// when the CLI has no direct access to the user's desktop session.
func (c *Client) ClipboardStore(text string) error {
	_, err := c.call(request{Type: "clipboardStore", Text: text})
	return err
}

func newNonce() string {
	var buf [16]byte
	_, _ = io.ReadFull(rand.Reader, buf[:])
	return fmt.Sprintf("%x", buf)
}

func writeFrame(w *bufio.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
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
