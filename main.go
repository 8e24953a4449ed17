// main.go - Comprehensive N=8 student + 1 administrator credential scenario.
//
// This demonstrates the complete life of a predicate list:
//   - The administrator opens registration for three predicates
//   - 8 students each create a wallet and enroll their commitment
//   - The administrator closes registration and publishes each Merkle root
//   - The registry records the published roots on the simulated chain
//   - Each student derives their inclusion path locally, proves membership,
//     and claims a soulbound credential token
//   - A replayed claim and a token transfer are both rejected
//
// Usage:
//   go run main.go
//
// Architecture:
//   - Enrollment state is persisted in a single db.json document
//   - Each student maintains their own wallet file (e.g., Student1_wallet.json)
//   - The chain package simulates the registry and soulbound token contracts

package main

import (
	"errors"
	"fmt"
	"log"

	"anoncred/internal/chain"
	"anoncred/internal/credential"
	"anoncred/internal/enrollment"
	"anoncred/internal/wallet"
)

const (
	N          = 8
	admin      = "administrator"
	predicates = 3
)

func main() {
	log.Println("=== Anonymous Credential Protocol: N=8 Scenario ===")

	// 1. Setup: Compile the membership circuit and generate/load ZKP keys
	ccs, err := credential.CompileMembership()
	if err != nil {
		log.Printf("ERROR: circuit compilation failed: %v", err)
		return
	}
	pk, vk, err := credential.SetupOrLoadKeys(ccs, "keys/membership_pk.bin", "keys/membership_vk.bin")
	if err != nil {
		log.Printf("ERROR: key setup failed: %v", err)
		return
	}

	// 2. Enrollment service backed by the JSON store
	store, err := enrollment.OpenStore("db.json")
	if err != nil {
		log.Printf("ERROR: store open failed: %v", err)
		return
	}
	defer store.Close()
	service, err := enrollment.NewService(store)
	if err != nil {
		log.Printf("ERROR: service init failed: %v", err)
		return
	}

	// 3. Simulated chain: registry plus soulbound token, wired together
	registry := chain.NewRegistry(admin)
	sbt := chain.NewSoulboundToken("")
	credentials := chain.NewCredentials("DegreeCredentials", registry, sbt, vk)
	sbt.SetMinter(credentials.Name())
	registry.OnRootUpdate(func(u chain.RootUpdate) {
		log.Printf("[chain] MerkleRootUpdated predicate=%d root=%s", u.PredicateID, u.NewRoot)
	})
	credentials.OnIssued(func(e chain.Issued) {
		log.Printf("[chain] CredentialIssued student=%s predicate=%d token=%d", e.Student, e.PredicateID, e.TokenID)
	})

	// 4. Administrator opens registration for all predicates
	for p := 0; p < predicates; p++ {
		if err := service.OpenRegistration(p); err != nil {
			log.Printf("ERROR: open registration failed: %v", err)
			return
		}
	}

	// 5. Each student creates a wallet and enrolls in every predicate.
	// The same commitment is reused across predicates; nullifiers still
	// differ per predicate.
	students := make([]*wallet.Wallet, N)
	for i := 0; i < N; i++ {
		name := fmt.Sprintf("Student%d", i+1)
		w, err := wallet.LoadOrCreate(fmt.Sprintf("%s_wallet.json", name), name)
		if err != nil {
			log.Printf("ERROR: wallet setup failed for %s: %v", name, err)
			return
		}
		students[i] = w
		cm, err := w.Commitment()
		if err != nil {
			log.Printf("ERROR: commitment failed for %s: %v", name, err)
			return
		}
		for p := 0; p < predicates; p++ {
			if err := service.Submit(p, cm); err != nil {
				log.Printf("ERROR: enrollment failed for %s predicate %d: %v", name, p, err)
				return
			}
		}
		log.Printf("[service] %s enrolled commitment %s...", name, cm[:16])
	}

	// 6. Close registration and publish every root to the registry
	for p := 0; p < predicates; p++ {
		if err := service.CloseRegistration(p); err != nil {
			log.Printf("ERROR: close registration failed: %v", err)
			return
		}
		snapshot, err := service.Publish(p)
		if err != nil {
			log.Printf("ERROR: publish failed for predicate %d: %v", p, err)
			return
		}
		if err := registry.UpdateRoot(admin, p, snapshot.Root); err != nil {
			log.Printf("ERROR: root update failed for predicate %d: %v", p, err)
			return
		}
	}

	log.Println("All roots published. Starting claim phase...")

	// 7. Each student proves membership for predicate 0 and claims a token
	bundle := service.Bundle(0)
	for i, w := range students {
		proof, nullifier, root, err := w.Prove(0, bundle, ccs, pk)
		if err != nil {
			log.Printf("ERROR: proof failed for %s: %v", w.Name, err)
			return
		}
		tokenID, err := credentials.Claim(w.Name, 0, proof, nullifier, root)
		if err != nil {
			log.Printf("ERROR: claim failed for %s: %v", w.Name, err)
			return
		}
		if i == 0 {
			// Replay: the same proof and nullifier must be rejected
			if _, err := credentials.Claim(w.Name, 0, proof, nullifier, root); !errors.Is(err, chain.ErrNullifierAlreadyUsed) {
				log.Printf("ERROR: replayed claim was not rejected: %v", err)
				return
			}
			log.Printf("[chain] Replayed claim for %s correctly rejected", w.Name)

			// Soulbound: transfer attempts always revert
			if err := sbt.TransferFrom(w.Name, "Student2", tokenID); !errors.Is(err, chain.ErrSoulbound) {
				log.Printf("ERROR: token transfer was not rejected: %v", err)
				return
			}
			log.Printf("[chain] Transfer of token %d correctly rejected", tokenID)
		}
	}

	fmt.Printf("\n=== Claim Phase Complete ===\n")
	fmt.Printf("Issued %d soulbound credentials for predicate 0\n", N)
	root, _ := registry.Root(0)
	fmt.Printf("Published root: %s\n", root)
}
