package enrollment

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"anoncred/internal/credential"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func testCommitment(t *testing.T, v uint64) string {
	t.Helper()
	var s fr.Element
	s.SetUint64(v)
	cm := credential.Commit(s)
	return cm.String()
}

func TestRegistrationGating(t *testing.T) {
	svc := newTestService(t)
	cm := testCommitment(t, 1)

	// Default state is closed.
	if st := svc.RegistrationState(7); st != StateClosed {
		t.Fatalf("default state = %s, want closed", st)
	}
	if err := svc.Submit(7, cm); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("expected ErrRegistrationClosed, got %v", err)
	}

	// After opening, the identical call succeeds.
	if err := svc.OpenRegistration(7); err != nil {
		t.Fatalf("OpenRegistration failed: %v", err)
	}
	if err := svc.Submit(7, cm); err != nil {
		t.Fatalf("Submit after open failed: %v", err)
	}

	if err := svc.CloseRegistration(7); err != nil {
		t.Fatalf("CloseRegistration failed: %v", err)
	}
	if err := svc.Submit(7, testCommitment(t, 2)); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("expected ErrRegistrationClosed after close, got %v", err)
	}
}

func TestToggleIdempotent(t *testing.T) {
	svc := newTestService(t)
	for i := 0; i < 2; i++ {
		if err := svc.OpenRegistration(0); err != nil {
			t.Fatalf("OpenRegistration #%d failed: %v", i, err)
		}
	}
	if st := svc.RegistrationState(0); st != StateOpen {
		t.Fatalf("state = %s, want open", st)
	}
	for i := 0; i < 2; i++ {
		if err := svc.CloseRegistration(0); err != nil {
			t.Fatalf("CloseRegistration #%d failed: %v", i, err)
		}
	}
	if st := svc.RegistrationState(0); st != StateClosed {
		t.Fatalf("state = %s, want closed", st)
	}
}

func TestParseState(t *testing.T) {
	if _, err := ParseState("open"); err != nil {
		t.Errorf("open should parse: %v", err)
	}
	if _, err := ParseState("ajar"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestDuplicateRejection(t *testing.T) {
	svc := newTestService(t)
	cm := testCommitment(t, 3)
	if err := svc.OpenRegistration(1); err != nil {
		t.Fatal(err)
	}
	if err := svc.Submit(1, cm); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if err := svc.Submit(1, cm); !errors.Is(err, ErrDuplicateCommitment) {
		t.Fatalf("expected ErrDuplicateCommitment, got %v", err)
	}
	// The same commitment is reusable under another predicate.
	if err := svc.OpenRegistration(2); err != nil {
		t.Fatal(err)
	}
	if err := svc.Submit(2, cm); err != nil {
		t.Fatalf("Submit under other predicate failed: %v", err)
	}
}

func TestSubmitValidatesInput(t *testing.T) {
	svc := newTestService(t)
	if err := svc.OpenRegistration(0); err != nil {
		t.Fatal(err)
	}
	if err := svc.Submit(0, "not-a-field-element"); !errors.Is(err, credential.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	svc := newTestService(t)
	if err := svc.OpenRegistration(0); err != nil {
		t.Fatal(err)
	}
	want := []string{testCommitment(t, 10), testCommitment(t, 11), testCommitment(t, 12)}
	for _, cm := range want {
		if err := svc.Submit(0, cm); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	got := svc.ListByPredicate(0)
	if len(got) != len(want) {
		t.Fatalf("list length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPublishGating(t *testing.T) {
	svc := newTestService(t)

	// Empty and closed: nothing to publish.
	if _, err := svc.Publish(0); !errors.Is(err, ErrNothingToPublish) {
		t.Fatalf("expected ErrNothingToPublish, got %v", err)
	}

	if err := svc.OpenRegistration(0); err != nil {
		t.Fatal(err)
	}
	if err := svc.Submit(0, testCommitment(t, 1)); err != nil {
		t.Fatal(err)
	}

	// Still open: sealing would race live writes.
	if _, err := svc.Publish(0); !errors.Is(err, ErrRegistrationStillOpen) {
		t.Fatalf("expected ErrRegistrationStillOpen, got %v", err)
	}

	if err := svc.CloseRegistration(0); err != nil {
		t.Fatal(err)
	}
	fin, err := svc.Publish(0)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(fin.Commitments) != 1 {
		t.Errorf("snapshot has %d commitments, want 1", len(fin.Commitments))
	}

	// Root equals an independent tree build over the same list.
	leaves := make([]fr.Element, len(fin.Commitments))
	for i, c := range fin.Commitments {
		e, err := credential.ParseElement(c)
		if err != nil {
			t.Fatal(err)
		}
		leaves[i] = e
	}
	tree, err := credential.BuildTree(leaves, credential.TreeHeight)
	if err != nil {
		t.Fatal(err)
	}
	root := tree.Root()
	if fin.Root != root.String() {
		t.Error("published root does not match independent tree build")
	}
}

func TestPublishUpsertsSnapshot(t *testing.T) {
	svc := newTestService(t)
	if err := svc.OpenRegistration(0); err != nil {
		t.Fatal(err)
	}
	if err := svc.Submit(0, testCommitment(t, 1)); err != nil {
		t.Fatal(err)
	}
	if err := svc.CloseRegistration(0); err != nil {
		t.Fatal(err)
	}
	first, err := svc.Publish(0)
	if err != nil {
		t.Fatal(err)
	}

	// Enroll one more, reseal: the single slot is overwritten, not appended.
	if err := svc.OpenRegistration(0); err != nil {
		t.Fatal(err)
	}
	if err := svc.Submit(0, testCommitment(t, 2)); err != nil {
		t.Fatal(err)
	}
	if err := svc.CloseRegistration(0); err != nil {
		t.Fatal(err)
	}
	second, err := svc.Publish(0)
	if err != nil {
		t.Fatal(err)
	}
	if second.Root == first.Root {
		t.Error("republish with a longer list must change the root")
	}
	if got := svc.Finalized(0); got.Root != second.Root || len(got.Commitments) != 2 {
		t.Error("finalized slot must hold only the latest snapshot")
	}

	// Republishing the unchanged list is idempotent on the root.
	third, err := svc.Publish(0)
	if err != nil {
		t.Fatal(err)
	}
	if third.Root != second.Root {
		t.Error("republish of the same list must reproduce the same root")
	}
}

func TestBundleAndProofPath(t *testing.T) {
	svc := newTestService(t)
	cms := []string{testCommitment(t, 1), testCommitment(t, 2), testCommitment(t, 3)}
	if err := svc.OpenRegistration(0); err != nil {
		t.Fatal(err)
	}
	for _, cm := range cms {
		if err := svc.Submit(0, cm); err != nil {
			t.Fatal(err)
		}
	}

	// Live bundle: no root, not finalized.
	bundle := svc.Bundle(0)
	if bundle.Finalized || bundle.Root != "" {
		t.Error("live bundle must not be marked finalized")
	}

	live, err := svc.ProofPath(0, cms[1])
	if err != nil {
		t.Fatalf("ProofPath on live list failed: %v", err)
	}
	if live.Finalized {
		t.Error("live path must be marked finalized=false")
	}

	if err := svc.CloseRegistration(0); err != nil {
		t.Fatal(err)
	}
	fin, err := svc.Publish(0)
	if err != nil {
		t.Fatal(err)
	}

	bundle = svc.Bundle(0)
	if !bundle.Finalized || bundle.Root != fin.Root {
		t.Error("bundle must reflect the finalized snapshot")
	}

	for i, cm := range cms {
		res, err := svc.ProofPath(0, cm)
		if err != nil {
			t.Fatalf("ProofPath(%d) failed: %v", i, err)
		}
		if !res.Finalized || res.Root != fin.Root {
			t.Errorf("path %d must carry the published root", i)
		}
		if len(res.Siblings) != credential.TreeHeight || len(res.Directions) != credential.TreeHeight {
			t.Errorf("path %d must span the full fixed height", i)
		}
		// Recombine natively.
		leaf, err := credential.ParseElement(cm)
		if err != nil {
			t.Fatal(err)
		}
		root, err := credential.ParseElement(res.Root)
		if err != nil {
			t.Fatal(err)
		}
		path := &credential.ProofPath{
			Siblings:   make([]fr.Element, len(res.Siblings)),
			Directions: res.Directions,
		}
		for j, sib := range res.Siblings {
			path.Siblings[j], err = credential.ParseElement(sib)
			if err != nil {
				t.Fatal(err)
			}
		}
		if !credential.VerifyPath(leaf, path, root) {
			t.Errorf("path %d does not reconstruct the published root", i)
		}
	}

	if _, err := svc.ProofPath(0, testCommitment(t, 99)); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(store)
	if err != nil {
		t.Fatal(err)
	}
	cm := testCommitment(t, 5)
	if err := svc.OpenRegistration(2); err != nil {
		t.Fatal(err)
	}
	if err := svc.Submit(2, cm); err != nil {
		t.Fatal(err)
	}
	if err := svc.CloseRegistration(2); err != nil {
		t.Fatal(err)
	}
	fin, err := svc.Publish(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: state machine, ledger, and snapshot all survive.
	store2, err := OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store2.Close()
	svc2, err := NewService(store2)
	if err != nil {
		t.Fatal(err)
	}
	if st := svc2.RegistrationState(2); st != StateClosed {
		t.Errorf("state after reload = %s, want closed", st)
	}
	if got := svc2.ListByPredicate(2); len(got) != 1 || got[0] != cm {
		t.Error("enrollment list did not survive reload")
	}
	if got := svc2.Finalized(2); got == nil || got.Root != fin.Root {
		t.Error("finalized snapshot did not survive reload")
	}
}

func TestConcurrentSubmitSameCommitment(t *testing.T) {
	svc := newTestService(t)
	if err := svc.OpenRegistration(0); err != nil {
		t.Fatal(err)
	}
	cm := testCommitment(t, 77)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Submit(0, cm)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateCommitment):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != workers-1 {
		t.Errorf("got %d successes and %d duplicates, want 1 and %d", ok, dup, workers-1)
	}
	if got := svc.ListByPredicate(0); len(got) != 1 {
		t.Errorf("ledger has %d entries, want 1", len(got))
	}
}

func TestConcurrentSubmitDistinct(t *testing.T) {
	svc := newTestService(t)
	if err := svc.OpenRegistration(0); err != nil {
		t.Fatal(err)
	}
	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := svc.Submit(0, testCommitment(t, uint64(1000+i))); err != nil {
				t.Errorf("Submit %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	if got := svc.ListByPredicate(0); len(got) != n {
		t.Errorf("ledger has %d entries, want %d", len(got), n)
	}
}

func TestSubmitNormalizesEncoding(t *testing.T) {
	svc := newTestService(t)
	if err := svc.OpenRegistration(0); err != nil {
		t.Fatal(err)
	}
	if err := svc.Submit(0, "255"); err != nil {
		t.Fatal(err)
	}
	// Hex form of the same element is the same enrollment entry.
	if err := svc.Submit(0, "0xff"); !errors.Is(err, ErrDuplicateCommitment) {
		t.Fatalf("expected ErrDuplicateCommitment for re-encoded value, got %v", err)
	}
}
