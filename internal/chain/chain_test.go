package chain

import (
	"errors"
	"testing"

	"anoncred/internal/credential"
)

func TestRegistryAdminGating(t *testing.T) {
	reg := NewRegistry("admin")

	if err := reg.UpdateRoot("student", 1, "123"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if reg.IsPredicateActive(1) {
		t.Error("rejected update must not activate the predicate")
	}

	if err := reg.UpdateRoot("admin", 1, "123"); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
	root, err := reg.Root(1)
	if err != nil || root != "123" {
		t.Fatalf("Root = %q, %v; want 123", root, err)
	}
	if !reg.IsPredicateActive(1) {
		t.Error("predicate should be active after an update")
	}

	if _, err := reg.Root(2); !errors.Is(err, ErrNoRoot) {
		t.Errorf("expected ErrNoRoot for untouched predicate, got %v", err)
	}
}

func TestRegistryUpdateObserver(t *testing.T) {
	reg := NewRegistry("admin")
	var got RootUpdate
	reg.OnRootUpdate(func(u RootUpdate) { got = u })

	if err := reg.UpdateRoot("admin", 0, "7"); err != nil {
		t.Fatal(err)
	}
	if err := reg.UpdateRoot("admin", 0, "8"); err != nil {
		t.Fatal(err)
	}
	if got.OldRoot != "7" || got.NewRoot != "8" || got.PredicateID != 0 {
		t.Errorf("unexpected update event: %+v", got)
	}
}

func TestSoulboundMintAndTransfer(t *testing.T) {
	sbt := NewSoulboundToken("credentials")

	if _, err := sbt.Mint("stranger", "alice", 1, "n1"); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter, got %v", err)
	}

	id, err := sbt.Mint("credentials", "alice", 1, "n1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	owner, err := sbt.OwnerOf(id)
	if err != nil || owner != "alice" {
		t.Fatalf("OwnerOf = %q, %v; want alice", owner, err)
	}
	pred, err := sbt.TokenPredicate(id)
	if err != nil || pred != 1 {
		t.Fatalf("TokenPredicate = %d, %v; want 1", pred, err)
	}

	// Transfers must always fail.
	if err := sbt.TransferFrom("alice", "bob", id); !errors.Is(err, ErrSoulbound) {
		t.Fatalf("expected ErrSoulbound, got %v", err)
	}
	if owner, _ := sbt.OwnerOf(id); owner != "alice" {
		t.Error("rejected transfer must not change ownership")
	}
}

func TestNullifierReuse(t *testing.T) {
	sbt := NewSoulboundToken("credentials")
	if _, err := sbt.Mint("credentials", "alice", 1, "n1"); err != nil {
		t.Fatal(err)
	}
	// Same nullifier cannot mint again, not even for another predicate or owner.
	if _, err := sbt.Mint("credentials", "bob", 2, "n1"); !errors.Is(err, ErrNullifierAlreadyUsed) {
		t.Fatalf("expected ErrNullifierAlreadyUsed, got %v", err)
	}
	if !sbt.NullifierUsed("n1") {
		t.Error("nullifier must be marked consumed")
	}
	if sbt.NullifierUsed("n2") {
		t.Error("unused nullifier must not be marked consumed")
	}
}

func TestUnknownTokenLookups(t *testing.T) {
	sbt := NewSoulboundToken("credentials")
	if _, err := sbt.OwnerOf(0); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("expected ErrUnknownToken, got %v", err)
	}
	if _, err := sbt.TokenPredicate(0); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("expected ErrUnknownToken, got %v", err)
	}
}

// Claim error ordering that does not need a real proof: no published root,
// then root mismatch, then proof deserialization. Full verification and
// anti-replay with real proofs live in the root protocol test.
func TestClaimCheckOrdering(t *testing.T) {
	reg := NewRegistry("admin")
	sbt := NewSoulboundToken("credentials")
	creds := NewCredentials("credentials", reg, sbt, nil)

	if _, err := creds.Claim("alice", 0, []byte("junk"), "1", "2"); !errors.Is(err, ErrNoRoot) {
		t.Fatalf("expected ErrNoRoot before any verification, got %v", err)
	}

	if err := reg.UpdateRoot("admin", 0, "5"); err != nil {
		t.Fatal(err)
	}
	if _, err := creds.Claim("alice", 0, []byte("junk"), "1", "2"); !errors.Is(err, ErrRootMismatch) {
		t.Fatalf("expected ErrRootMismatch before proof checks, got %v", err)
	}

	// Correct root, garbage proof bytes: deserialization fails as InvalidProof.
	if _, err := creds.Claim("alice", 0, []byte("junk"), "1", "5"); !errors.Is(err, credential.ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof for garbage bytes, got %v", err)
	}

	// Malformed public inputs fail validation before anything else.
	if _, err := creds.Claim("alice", 0, []byte("junk"), "bad", "5"); !errors.Is(err, credential.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for malformed nullifier, got %v", err)
	}
}
