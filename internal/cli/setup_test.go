package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"courseledger.dev/cld/internal/keyring"
	"courseledger.dev/cld/internal/ledger"
	"courseledger.dev/cld/internal/logging"
	"courseledger.dev/cld/internal/runtime"
)

// newTestService builds a Service over a fresh temp ledger and keyring. The
// returned buffer captures each handler's JSON output.
func newTestService(t *testing.T) (*Service, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	store, err := ledger.NewStore(filepath.Join(dir, ledger.DefaultDBFile))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	node, err := runtime.Open(store, logging.Nop().Sugar)
	if err != nil {
		t.Fatalf("Open node: %v", err)
	}
	ring, err := keyring.Open(dir)
	if err != nil {
		t.Fatalf("Open keyring: %v", err)
	}

	out := &bytes.Buffer{}
	return NewService(node, store, ring, logging.Nop(), 5, out), out
}

// run resets the output buffer, invokes one handler, and decodes its JSON
// document into v. Pass nil to skip decoding.
func run(t *testing.T, out *bytes.Buffer, fn func() error, v any) {
	t.Helper()
	out.Reset()
	if err := fn(); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if v == nil {
		return
	}
	if err := json.Unmarshal(out.Bytes(), v); err != nil {
		t.Fatalf("decode handler output: %v\nraw: %s", err, out.String())
	}
}

// deliverOK runs a mutating handler and fails the test unless the printed
// receipt carries code 0.
func deliverOK(t *testing.T, out *bytes.Buffer, fn func() error) runtime.Receipt {
	t.Helper()
	var rcpt runtime.Receipt
	run(t, out, fn, &rcpt)
	if !rcpt.OK() {
		t.Fatalf("transaction rejected: code=%d log=%s", rcpt.Code, rcpt.Log)
	}
	return rcpt
}

// keygen creates an alias in the service keyring.
func keygen(t *testing.T, svc *Service, out *bytes.Buffer, name string) keyring.Entry {
	t.Helper()
	var entry keyring.Entry
	run(t, out, func() error { return svc.HandleKeygen(name) }, &entry)
	return entry
}

// registerUser creates an alias and registers it on the ledger.
func registerUser(t *testing.T, svc *Service, out *bytes.Buffer, alias, role string) keyring.Entry {
	t.Helper()
	entry := keygen(t, svc, out, alias)
	deliverOK(t, out, func() error {
		return svc.HandleRegisterUser(Signer{As: alias}, "Test "+alias, alias+"@example.com", role)
	})
	return entry
}
