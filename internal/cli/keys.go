package cli

import (
	"courseledger.dev/cld/internal/keyring"
	"courseledger.dev/cld/internal/types"
)

// @Title: Generate Key
// @Command: cld keygen --name <alias>
// @Description: Create a named ed25519 signing identity in the local keyring
// @Response: Keyring entry with the derived principal
func (s *Service) HandleKeygen(name string) error {
	entry, err := s.ring.Create(name)
	if err != nil {
		return err
	}
	s.log.Sugar.Infow("key created", "name", entry.Name, "principal", entry.Principal.Short())
	return s.writeJSON(entry)
}

// @Title: List Keys
// @Command: cld keys
// @Description: List the named identities in the local keyring
// @Response: Array of keyring entries, sorted by name
func (s *Service) HandleKeys() error {
	entries := s.ring.List()
	if entries == nil {
		entries = []keyring.Entry{}
	}
	return s.writeJSON(entries)
}

// WhoamiResult reports the signing identity a command would act as, plus its
// ledger registration when one exists.
type WhoamiResult struct {
	Principal  types.Principal `json:"principal"`
	Registered bool            `json:"registered"`
	User       *types.User     `json:"user,omitempty"`
}

// @Title: Who Am I
// @Command: cld whoami --as <key> | cld whoami --key <file>
// @Description: Show the principal behind a signing identity and whether it is registered
// @Response: WhoamiResult
func (s *Service) HandleWhoami(sig Signer) error {
	id, err := s.signer(sig)
	if err != nil {
		return err
	}
	p := types.Principal(id.PublicKeyHex())

	user, found, err := s.node.UserInfo(p)
	if err != nil {
		return err
	}
	result := WhoamiResult{Principal: p, Registered: found}
	if found {
		result.User = &user
	}
	return s.writeJSON(result)
}
