package model

import "testing"

func TestNormalizeSumsToUpperLimit(t *testing.T) {
	freq := []uint64{3, 1, 4, 1, 5, 9, 2, 6}
	Normalize(freq, 1000, 0)
	var sum uint64
	for _, v := range freq {
		sum += v
	}
	if sum != 1000 {
		t.Fatalf("sum after Normalize = %d, want 1000", sum)
	}
}

func TestNormalizeAlreadyExact(t *testing.T) {
	freq := []uint64{10, 20, 70}
	Normalize(freq, 100, 100)
	want := []uint64{10, 20, 70}
	for i := range freq {
		if freq[i] != want[i] {
			t.Fatalf("Normalize left exact input unchanged: got %v, want %v", freq, want)
		}
	}
}

func TestOrder0SumsToACDenominator(t *testing.T) {
	freq := Order0([]byte("the quick brown fox jumps over the lazy dog"))
	var sum uint64
	for _, v := range freq {
		sum += v
	}
	if sum != ACDenominator {
		t.Fatalf("sum(Order0(...)) = %d, want %d", sum, ACDenominator)
	}
}

func TestANSFrequenciesSumsToANSDenominator(t *testing.T) {
	freq := ANSFrequencies([]byte("banana"))
	var sum uint64
	for _, v := range freq {
		sum += v
	}
	if sum != ANSDenominator {
		t.Fatalf("sum(ANSFrequencies(...)) = %d, want %d", sum, ANSDenominator)
	}
}

func TestOrder1RowsSumToACDenominatorWhenPresent(t *testing.T) {
	rows := Order1([]byte("banana"))
	for prev, row := range rows {
		var sum uint64
		for _, v := range row {
			sum += v
		}
		if sum != 0 && sum != ACDenominator {
			t.Fatalf("row %d sums to %d, want 0 or %d", prev, sum, ACDenominator)
		}
	}
}
