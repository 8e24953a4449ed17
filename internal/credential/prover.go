// prover.go - Groth16 binding for the membership circuit.
//
// Compiles the circuit, manages disk-cached proving/verifying keys, and wraps
// proof generation and verification. Proofs travel as opaque byte strings;
// callers only ever see {proof, root, nullifier, predicateId}.

package credential

import (
	"bytes"
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// CompileMembership compiles the membership circuit for the working field.
func CompileMembership() (constraint.ConstraintSystem, error) {
	var circuit MembershipCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("membership circuit compilation failed: %w", err)
	}
	return ccs, nil
}

// ProveMembership generates a membership proof for the secret whose
// commitment sits behind the given path. Returns the serialized proof and the
// nullifier that the claim will consume. The path must span the full fixed
// height; a shorter path means the caller built the tree with the wrong
// height and the proof would never verify on-chain.
func ProveMembership(secret fr.Element, predicateID int, root fr.Element, path *ProofPath, ccs constraint.ConstraintSystem, pk groth16.ProvingKey) ([]byte, fr.Element, error) {
	if path == nil || len(path.Siblings) != TreeHeight || len(path.Directions) != TreeHeight {
		return nil, fr.Element{}, fmt.Errorf("%w: proof path must have exactly %d levels", ErrInvalidInput, TreeHeight)
	}
	nullifier := Nullifier(secret, predicateID)

	assignment := &MembershipCircuit{
		Root:        root.String(),
		Nullifier:   nullifier.String(),
		PredicateID: predicateID,
		Secret:      secret.String(),
	}
	for l := 0; l < TreeHeight; l++ {
		assignment.Siblings[l] = path.Siblings[l].String()
		assignment.Directions[l] = path.Directions[l]
	}

	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fr.Element{}, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, w)
	if err != nil {
		return nil, fr.Element{}, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fr.Element{}, fmt.Errorf("proof marshaling failed: %w", err)
	}
	return buf.Bytes(), nullifier, nil
}

// VerifyMembership checks a serialized proof against the public inputs
// {root, nullifier, predicateId}. Any deserialization or verification failure
// is reported as ErrInvalidProof.
func VerifyMembership(proofBytes []byte, root, nullifier fr.Element, predicateID int, vk groth16.VerifyingKey) error {
	public := &MembershipCircuit{
		Root:        root.String(),
		Nullifier:   nullifier.String(),
		PredicateID: predicateID,
	}
	w, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("public witness creation failed: %w", err)
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("%w: cannot unmarshal", ErrInvalidProof)
	}
	if err := groth16.Verify(proof, vk, w); err != nil {
		return fmt.Errorf("%w: verification failed", ErrInvalidProof)
	}
	return nil
}

// SaveProvingKey saves a Groth16 proving key to disk.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

// SaveVerifyingKey saves a Groth16 verifying key to disk.
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

// LoadProvingKey loads a Groth16 proving key from disk.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

// LoadVerifyingKey loads a Groth16 verifying key from disk.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

// SetupOrLoadKeys generates or loads Groth16 keys for the circuit.
// If keys exist on disk, loads them; otherwise, generates and saves new keys.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return pk, vk, nil
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, err
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}
