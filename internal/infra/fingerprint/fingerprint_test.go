package fingerprint

import (
	"errors"
	"testing"

	"seald/internal/domain"
)

func TestSumDeterministic(t *testing.T) {
	first, err := Sum([]byte("loan-doc-v1"))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	second, err := Sum([]byte("loan-doc-v1"))
	if err != nil {
		t.Fatalf("sum again: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable fingerprint, got %s vs %s", first, second)
	}
	if len(first) != HexLen {
		t.Fatalf("expected %d hex chars, got %d", HexLen, len(first))
	}
	if !Valid(first) {
		t.Fatalf("fingerprint %q not valid by its own alphabet", first)
	}
}

func TestSumDistinguishesContent(t *testing.T) {
	a, err := Sum([]byte("loan-doc-v1"))
	if err != nil {
		t.Fatalf("sum a: %v", err)
	}
	b, err := Sum([]byte("loan-doc-v1-edited"))
	if err != nil {
		t.Fatalf("sum b: %v", err)
	}
	if a == b {
		t.Fatal("distinct content must not share a fingerprint")
	}
}

func TestSumRejectsEmptyInput(t *testing.T) {
	if _, err := Sum(nil); !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := Sum([]byte{}); !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput for empty slice, got %v", err)
	}
}

func TestSumAggregateOrderSensitive(t *testing.T) {
	a, _ := Sum([]byte("file-a"))
	b, _ := Sum([]byte("file-b"))
	c, _ := Sum([]byte("file-c"))

	forward, err := SumAggregate([]string{a, b, c})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	reversed, err := SumAggregate([]string{c, b, a})
	if err != nil {
		t.Fatalf("aggregate reversed: %v", err)
	}
	if forward == reversed {
		t.Fatal("reordered members must change the aggregate fingerprint")
	}

	again, err := SumAggregate([]string{a, b, c})
	if err != nil {
		t.Fatalf("aggregate again: %v", err)
	}
	if forward != again {
		t.Fatalf("expected stable aggregate, got %s vs %s", forward, again)
	}
}

func TestSumAggregateRejectsBadMembers(t *testing.T) {
	if _, err := SumAggregate(nil); !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput for empty member list, got %v", err)
	}
	if _, err := SumAggregate([]string{"not-a-fingerprint"}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for malformed member, got %v", err)
	}
}
