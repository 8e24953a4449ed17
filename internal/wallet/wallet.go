// wallet.go - Student-side secret storage and proof-material derivation.
//
// A wallet holds the student's private field-element secret, generated once
// and persisted only in the local wallet file. Everything derived from it
// server-side is the public commitment; inclusion paths are derived here,
// client-side, from the public commitment list, so the server never learns
// which leaf index belongs to which student.

package wallet

import (
	"encoding/json"
	"fmt"
	"os"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"

	"anoncred/internal/credential"
	"anoncred/internal/enrollment"
)

// Wallet is the student's local state. Secret never leaves this file.
type Wallet struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// LoadOrCreate loads a wallet from path, generating a fresh secret and
// writing the file if it does not exist yet.
func LoadOrCreate(path, name string) (*Wallet, error) {
	if f, err := os.Open(path); err == nil {
		defer f.Close()
		var w Wallet
		if err := json.NewDecoder(f).Decode(&w); err != nil {
			return nil, fmt.Errorf("failed to decode wallet: %w", err)
		}
		return &w, nil
	}
	secret, err := credential.RandomSecret()
	if err != nil {
		return nil, err
	}
	w := &Wallet{Name: name, Secret: secret.String()}
	if err := w.Save(path); err != nil {
		return nil, err
	}
	return w, nil
}

// Save persists the wallet. Mode 0600: the file contains the secret.
func (w *Wallet) Save(path string) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write wallet: %w", err)
	}
	return nil
}

// SecretElement returns the secret as a field element.
func (w *Wallet) SecretElement() (fr.Element, error) {
	return credential.ParseElement(w.Secret)
}

// Commitment recomputes the public commitment from the stored secret.
func (w *Wallet) Commitment() (string, error) {
	s, err := w.SecretElement()
	if err != nil {
		return "", err
	}
	cm := credential.Commit(s)
	return cm.String(), nil
}

// DerivePath locates the wallet's commitment in a fetched bundle and derives
// its inclusion path locally. When the bundle is finalized, the locally
// recomputed root must equal the published one; a mismatch means the list and
// the on-chain root have diverged and any proof built from it would be
// rejected, so it is reported instead of silently proceeding.
func (w *Wallet) DerivePath(bundle *enrollment.ProofBundle) (*credential.ProofPath, fr.Element, error) {
	secret, err := w.SecretElement()
	if err != nil {
		return nil, fr.Element{}, err
	}
	cm := credential.Commit(secret)
	index := -1
	leaves := make([]fr.Element, len(bundle.Commitments))
	for i, c := range bundle.Commitments {
		leaves[i], err = credential.ParseElement(c)
		if err != nil {
			return nil, fr.Element{}, fmt.Errorf("bundle commitment %d: %w", i, err)
		}
		// Compare parsed values, not strings: the bundle may carry any
		// encoding ParseElement accepts.
		if leaves[i].Equal(&cm) {
			index = i
		}
	}
	if index < 0 {
		return nil, fr.Element{}, enrollment.ErrNotEnrolled
	}

	tree, err := credential.BuildTree(leaves, credential.TreeHeight)
	if err != nil {
		return nil, fr.Element{}, err
	}
	root := tree.Root()
	if bundle.Finalized && root.String() != bundle.Root {
		return nil, fr.Element{}, fmt.Errorf("local root %s does not match published root %s", root.String(), bundle.Root)
	}
	path, err := tree.ProofPath(index)
	if err != nil {
		return nil, fr.Element{}, err
	}
	return path, root, nil
}

// Prove derives the path from the bundle and generates the membership proof
// for the given predicate. Returns the opaque proof and the nullifier the
// claim will consume.
func (w *Wallet) Prove(predicateID int, bundle *enrollment.ProofBundle, ccs constraint.ConstraintSystem, pk groth16.ProvingKey) (proof []byte, nullifier, root string, err error) {
	secret, err := w.SecretElement()
	if err != nil {
		return nil, "", "", err
	}
	path, rootElem, err := w.DerivePath(bundle)
	if err != nil {
		return nil, "", "", err
	}
	proofBytes, nul, err := credential.ProveMembership(secret, predicateID, rootElem, path, ccs, pk)
	if err != nil {
		return nil, "", "", err
	}
	return proofBytes, nul.String(), rootElem.String(), nil
}
