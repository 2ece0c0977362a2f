package bucket

import (
	"crypto/rand"
	"testing"

	"github.com/kestrelmpc/engine/field"
)

func TestSizeMatchesWrk17aTable(t *testing.T) {
	cases := []struct {
		andGates int
		want     int
	}{
		{andGates: 500_000, want: 3},
		{andGates: 280_000, want: 3},
		{andGates: 279_999, want: 4},
		{andGates: 3_100, want: 4},
		{andGates: 3_099, want: 5},
		{andGates: 10, want: 5},
	}
	for _, c := range cases {
		if got := Size(c.andGates); got != c.want {
			t.Errorf("Size(%d) = %d, want %d", c.andGates, got, c.want)
		}
	}
}

func TestPermutationIsDeterministicAndCoversRange(t *testing.T) {
	var coin [32]byte
	for i := range coin {
		coin[i] = byte(i)
	}
	p1 := Permutation(coin, 50)
	p2 := Permutation(coin, 50)
	if len(p1) != 50 {
		t.Fatalf("expected permutation of length 50, got %d", len(p1))
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("permutation must be deterministic for the same coin")
		}
	}
	seen := make(map[int]bool, 50)
	for _, v := range p1 {
		if seen[v] {
			t.Fatalf("permutation contains duplicate index %d", v)
		}
		seen[v] = true
	}
}

func TestPermutationDiffersForDifferentCoins(t *testing.T) {
	var coinA, coinB [32]byte
	coinB[0] = 1
	pA := Permutation(coinA, 64)
	pB := Permutation(coinB, 64)
	same := true
	for i := range pA {
		if pA[i] != pB[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different coins should produce different permutations (with overwhelming probability)")
	}
}

func TestCombineXorsXAndZAcrossBucketWhenDSharesAgree(t *testing.T) {
	primary := LeakyTriple{
		X: field.BitShare{Bit: true},
		Y: field.BitShare{Bit: false},
		Z: field.BitShare{Bit: true, Mac: field.Mac{1}},
	}
	other := LeakyTriple{
		X: field.BitShare{Bit: true, Mac: field.Mac{3}},
		Y: field.BitShare{Bit: false},
		Z: field.BitShare{Bit: true, Mac: field.Mac{2}},
	}
	// d_j = primary.Y xor other.Y = false here, so my/peer d-shares agree
	// on bit=false and Combine must NOT fold in the extra member.X term.
	myD := []field.BitShare{{Bit: false}}
	peerD := []DShare{{Bit: false}}

	combined, err := Combine([]LeakyTriple{primary, other}, myD, peerD)
	if err != nil {
		t.Fatal(err)
	}
	if combined.Y != primary.Y {
		t.Fatalf("combined triple should keep the primary member's y operand")
	}
	if combined.X.Bit != (primary.X.Bit != other.X.Bit) {
		t.Fatalf("combined x bit should be the xor of every bucket member's x bit")
	}
	if combined.Z.Bit != (primary.Z.Bit != other.Z.Bit) {
		t.Fatalf("expected combined z bit to be the xor of bucket members' z bits when d_j=false")
	}
}

func TestCombineFoldsExtraXTermIntoZWhenDShareIsSet(t *testing.T) {
	primary := LeakyTriple{
		X: field.BitShare{Bit: true},
		Y: field.BitShare{Bit: false},
		Z: field.BitShare{Bit: true},
	}
	other := LeakyTriple{
		X: field.BitShare{Bit: true},
		Y: field.BitShare{Bit: true},
		Z: field.BitShare{Bit: false},
	}
	// d_j = primary.Y xor other.Y = true here; the two parties' d-shares
	// differ, so they reconstruct d_j=true and Combine must additionally
	// xor other.X into the combined z.
	myD := []field.BitShare{{Bit: true}}
	peerD := []DShare{{Bit: false}}

	combined, err := Combine([]LeakyTriple{primary, other}, myD, peerD)
	if err != nil {
		t.Fatal(err)
	}
	wantZ := primary.Z.Bit != other.Z.Bit != other.X.Bit
	if combined.Z.Bit != wantZ {
		t.Fatalf("expected d_j=true path to fold an extra x term into z: got %v want %v", combined.Z.Bit, wantZ)
	}
}

func TestCombineRejectsTooSmallBucket(t *testing.T) {
	if _, err := Combine([]LeakyTriple{{}}, nil, nil); err == nil {
		t.Fatalf("expected error for a bucket with fewer than two members")
	}
}

func TestCheckConsistencyDetectsMismatch(t *testing.T) {
	var delta field.Delta
	if _, err := rand.Read(delta[:]); err != nil {
		t.Fatal(err)
	}
	var key field.Key
	if _, err := rand.Read(key[:]); err != nil {
		t.Fatal(err)
	}
	myDShare := field.BitShare{Bit: true, Key: key, Mac: field.Mac(key.XorDelta(delta))}

	good := DShare{Bit: true, Mac: field.Mac(key.XorDelta(delta))}
	if err := CheckConsistency(myDShare, good, delta); err != nil {
		t.Fatalf("expected a correctly authenticated d-share to verify: %v", err)
	}

	bad := DShare{Bit: false, Mac: field.Mac(key.XorDelta(delta))}
	if err := CheckConsistency(myDShare, bad, delta); err == nil {
		t.Fatalf("expected a flipped d-share bit to fail verification")
	}
}
