package merkle_test

import (
	"testing"

	"github.com/chainforge/chainstate/foundation/blockchain/hashutil"
	"github.com/chainforge/chainstate/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_Root(t *testing.T) {
	t.Log("Given the need to compute merkle roots over leaf lists.")
	{
		t.Log("\tWhen handling an empty leaf list.")
		{
			got := merkle.Root(nil)
			if got != hashutil.EmptyHash {
				t.Fatalf("\t%s\tShould return the empty hash, got %s", failed, got)
			}
			t.Logf("\t%s\tShould return the empty hash.", success)
		}

		t.Log("\tWhen handling a single leaf.")
		{
			leaf := "0abc"
			got := merkle.Root([]string{leaf})
			exp := hashutil.HexString(leaf)
			if got != exp {
				t.Fatalf("\t%s\tShould return the leaf's own hash, got %s, exp %s", failed, got, exp)
			}
			t.Logf("\t%s\tShould return the leaf's own hash.", success)
		}

		t.Log("\tWhen handling two leaves.")
		{
			got := merkle.Root([]string{"a", "b"})
			exp := hashutil.HexString(hashutil.HexString("a") + hashutil.HexString("b"))
			if got != exp {
				t.Fatalf("\t%s\tShould hash the pair together, got %s, exp %s", failed, got, exp)
			}
			t.Logf("\t%s\tShould hash the pair together.", success)
		}

		t.Log("\tWhen handling an odd number of leaves.")
		{
			got := merkle.Root([]string{"a", "b", "c"})

			h0, h1, h2 := hashutil.HexString("a"), hashutil.HexString("b"), hashutil.HexString("c")
			n0 := hashutil.HexString(h0 + h1)
			n1 := h2
			exp := hashutil.HexString(n0 + n1)

			if got != exp {
				t.Fatalf("\t%s\tShould carry the last leaf up unchanged, got %s, exp %s", failed, got, exp)
			}
			t.Logf("\t%s\tShould carry the last leaf up unchanged.", success)
		}

		t.Log("\tWhen handling five leaves (odd carry-up at two successive levels).")
		{
			got := merkle.Root([]string{"a", "b", "c", "d", "e"})

			h0, h1, h2, h3, h4 := hashutil.HexString("a"), hashutil.HexString("b"), hashutil.HexString("c"), hashutil.HexString("d"), hashutil.HexString("e")
			// level 1: [h01, h23, h4] (h4 carried up, odd node out)
			h01 := hashutil.HexString(h0 + h1)
			h23 := hashutil.HexString(h2 + h3)
			// level 2: [h0123, h4] (h4 carried up again)
			h0123 := hashutil.HexString(h01 + h23)
			exp := hashutil.HexString(h0123 + h4)

			if got != exp {
				t.Fatalf("\t%s\tShould carry an odd node up unchanged at every level, got %s, exp %s", failed, got, exp)
			}
			t.Logf("\t%s\tShould carry an odd node up unchanged at every level.", success)
		}

		t.Log("\tWhen reordering two leaves with different values.")
		{
			r1 := merkle.Root([]string{"x", "y"})
			r2 := merkle.Root([]string{"y", "x"})
			if r1 == r2 {
				t.Fatalf("\t%s\tShould produce a different root for a different order", failed)
			}
			t.Logf("\t%s\tShould produce a different root for a different order.", success)
		}
	}
}
