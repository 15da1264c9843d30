// Package cli implements the cld command surface. Every subcommand maps to
// a handler on Service: mutating commands sign a transaction with a local
// key and deliver it through the runtime node, query commands read committed
// state, and all of them print JSON documents to the service output.
//
// Handlers carry @Title/@Command annotations that cmd/docgen scrapes into
// the command reference.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"courseledger.dev/cld/internal/identity"
	"courseledger.dev/cld/internal/keyring"
	"courseledger.dev/cld/internal/ledger"
	"courseledger.dev/cld/internal/logging"
	"courseledger.dev/cld/internal/runtime"
	"courseledger.dev/cld/internal/types"
)

// Service executes subcommands against a local ledger node.
type Service struct {
	node       *runtime.Node
	store      *ledger.Store
	ring       *keyring.Keyring
	log        *logging.Log
	out        io.Writer
	maxBackups int
}

// NewService creates a command service writing JSON documents to out.
func NewService(node *runtime.Node, store *ledger.Store, ring *keyring.Keyring, log *logging.Log, maxBackups int, out io.Writer) *Service {
	return &Service{
		node:       node,
		store:      store,
		ring:       ring,
		log:        log,
		out:        out,
		maxBackups: maxBackups,
	}
}

// Signer selects the identity that signs a transaction: a keyring alias or
// an explicit key file. The key file wins when both are given.
type Signer struct {
	As      string
	KeyFile string
}

// signer resolves the signing identity for a mutating command.
func (s *Service) signer(sig Signer) (*identity.Identity, error) {
	if sig.KeyFile != "" {
		return identity.LoadIdentity(sig.KeyFile)
	}
	if sig.As == "" {
		return nil, errors.New("no signing identity: pass --as <name> or --key <file>")
	}
	return s.ring.Resolve(sig.As)
}

// submit signs params as id, delivers the transaction to the node, and
// prints the receipt. Rejections come back as receipts with a nonzero code,
// not as errors.
func (s *Service) submit(id *identity.Identity, entrypoint types.Entrypoint, params interface{}) error {
	tx, err := types.NewTransaction(entrypoint, params)
	if err != nil {
		return err
	}
	signed, err := tx.Sign(id)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(signed)
	if err != nil {
		return fmt.Errorf("failed to marshal signed transaction: %w", err)
	}
	rcpt, err := s.node.DeliverTx(raw)
	if err != nil {
		return err
	}
	return s.writeJSON(rcpt)
}

// writeJSON writes one indented JSON document to the service output.
func (s *Service) writeJSON(data interface{}) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// writeError writes a JSON error document.
func (s *Service) writeError(message string) error {
	return s.writeJSON(map[string]string{"error": message})
}

// InitResult describes a freshly initialized ledger data directory.
type InitResult struct {
	DataDir    string `json:"data_dir"`
	LedgerFile string `json:"ledger_file"`
	Chain      string `json:"chain"`
}

// Init creates the data directory layout for a new ledger: the database
// file with its schema and the chain metadata at height zero. It fails if
// the directory already holds an initialized chain.
func Init(dataDir, chainName string) (InitResult, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return InitResult{}, fmt.Errorf("failed to create data directory: %w", err)
	}

	file := filepath.Join(dataDir, ledger.DefaultDBFile)
	store, err := ledger.NewStore(file)
	if err != nil {
		return InitResult{}, err
	}
	defer store.Close()

	if err := store.InitChain(chainName); err != nil {
		return InitResult{}, err
	}
	return InitResult{DataDir: dataDir, LedgerFile: file, Chain: chainName}, nil
}
