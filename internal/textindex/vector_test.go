package textindex

import "testing"

func TestCosineDistance_IdenticalTextIsZero(t *testing.T) {
	a := Vectorize("check the current stock price of AAPL")
	b := Vectorize("check the current stock price of AAPL")
	if d := CosineDistance(a, b); d > 1e-9 {
		t.Errorf("identical text distance = %f, want 0", d)
	}
}

func TestCosineDistance_OrderedBySimilarity(t *testing.T) {
	query := Vectorize("fetch stock price for a ticker symbol")
	near := Vectorize("fetch the current stock price of a ticker")
	far := Vectorize("resize a batch of png images")

	dNear := CosineDistance(query, near)
	dFar := CosineDistance(query, far)
	if dNear >= dFar {
		t.Errorf("near distance %f not less than far distance %f", dNear, dFar)
	}
}

func TestCosineDistance_ZeroVectorIsMax(t *testing.T) {
	if d := CosineDistance(Vectorize(""), Vectorize("anything")); d != 1 {
		t.Errorf("zero vector distance = %f, want 1", d)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Check AAPL's stock-price, fast!")
	want := []string{"check", "aapl", "s", "stock", "price", "fast"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
