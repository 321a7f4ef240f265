// Package nameservice reads a folder of account key files and creates a name
// service lookup for the accounts they control.
package nameservice

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
)

// KeyExt is the file extension of an account key file.
const KeyExt = ".key"

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[types.Account]string
}

// New constructs a name service with the accounts of the key files found
// under root. A missing folder yields an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[types.Account]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || path.Ext(fileName) != KeyExt {
			return nil
		}

		key, err := signature.LoadKey(fileName)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}

		account := signature.PublicKeyToAccount(key)
		ns.accounts[account] = strings.TrimSuffix(path.Base(fileName), KeyExt)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ns, nil
		}
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account, or its address when
// the account has no name.
func (ns *NameService) Lookup(account types.Account) string {
	name, exists := ns.accounts[account]
	if !exists {
		return account.Address()
	}
	return name
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[types.Account]string {
	cpy := make(map[types.Account]string, len(ns.accounts))
	for account, name := range ns.accounts {
		cpy[account] = name
	}
	return cpy
}
