// Package credential implements the cryptographic core of the anonymous
// academic credential protocol.
//
// Overview:
//   - Students hold a private field-element secret and publish only its
//     Poseidon2 commitment, an unlinkable leaf identifier
//   - Commitments enrolled under a predicate are aggregated into a fixed-height
//     Merkle accumulator whose root is published on-chain
//   - A membership proof (Groth16) shows that some enrolled leaf was derived
//     from the prover's secret, exposing only {root, nullifier, predicateId}
//   - The nullifier binds one claim per secret per predicate and is checked by
//     the issuance ledger
//
// Security Model:
//   - Poseidon2 over the BN254 scalar field for commitments, tree nodes, and
//     nullifiers (native and in-circuit instances come from the same library
//     pairing, gnark-crypto / gnark)
//   - Zero-knowledge proofs are generated and verified using gnark (Groth16, BN254)
//   - All secrets are generated with crypto/rand and never leave the client
//   - Left/right order of tree children is never sorted: the circuit consumes
//     explicit direction bits, and sorting would make them unverifiable
//
// Usage:
//   - Commit, BuildTree, and ProofPath for the accumulator side
//   - CompileMembership, SetupOrLoadKeys, ProveMembership, VerifyMembership
//     for the opaque prover/verifier pair
package credential
