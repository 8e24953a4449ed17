package credential

import (
	"errors"
	"testing"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

func TestCommitDeterminism(t *testing.T) {
	secret, err := RandomSecret()
	if err != nil {
		t.Fatalf("RandomSecret failed: %v", err)
	}
	cm1 := Commit(secret)
	cm2 := Commit(secret)
	if !cm1.Equal(&cm2) {
		t.Error("commitment is not deterministic")
	}

	other, err := RandomSecret()
	if err != nil {
		t.Fatalf("RandomSecret failed: %v", err)
	}
	cmOther := Commit(other)
	if cm1.Equal(&cmOther) {
		t.Error("distinct secrets produced the same commitment")
	}
}

func TestCommitString(t *testing.T) {
	got, err := CommitString("12345")
	if err != nil {
		t.Fatalf("CommitString failed: %v", err)
	}
	var s fr.Element
	s.SetUint64(12345)
	want := Commit(s)
	if got != want.String() {
		t.Errorf("CommitString = %s, want %s", got, want.String())
	}
}

func TestParseElement(t *testing.T) {
	t.Run("decimal", func(t *testing.T) {
		e, err := ParseElement("42")
		if err != nil {
			t.Fatalf("ParseElement failed: %v", err)
		}
		if e.String() != "42" {
			t.Errorf("got %s, want 42", e.String())
		}
	})

	t.Run("hex", func(t *testing.T) {
		e, err := ParseElement("0x2a")
		if err != nil {
			t.Fatalf("ParseElement failed: %v", err)
		}
		if e.String() != "42" {
			t.Errorf("got %s, want 42", e.String())
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, s := range []string{"", "not-a-number", "-5", "0xzz"} {
			if _, err := ParseElement(s); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ParseElement(%q): expected ErrInvalidInput, got %v", s, err)
			}
		}
	})

	t.Run("rejects non-canonical values", func(t *testing.T) {
		// The modulus itself is not a canonical element.
		if _, err := ParseElement(fr.Modulus().String()); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for the field modulus, got %v", err)
		}
	})
}

func TestHashPairOrderSensitivity(t *testing.T) {
	a, b := elem(1), elem(2)
	ab := HashPair(a, b)
	ba := HashPair(b, a)
	if ab.Equal(&ba) {
		t.Error("HashPair must be order-sensitive")
	}
}

func TestNullifierPerPredicate(t *testing.T) {
	secret, err := RandomSecret()
	if err != nil {
		t.Fatalf("RandomSecret failed: %v", err)
	}
	n0 := Nullifier(secret, 0)
	n0again := Nullifier(secret, 0)
	n1 := Nullifier(secret, 1)
	if !n0.Equal(&n0again) {
		t.Error("nullifier is not deterministic")
	}
	if n0.Equal(&n1) {
		t.Error("nullifiers for different predicates must differ")
	}
	cm := Commit(secret)
	if n0.Equal(&cm) {
		t.Error("nullifier must not equal the commitment")
	}
}
