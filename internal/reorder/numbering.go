package reorder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Numbering assigns SortOrder values by position. Step 1 (dense) yields
// 0..n-1; a larger step (sparse) yields i*Step and leaves room for single
// inserts without renumbering neighbors. The zero value is dense.
type Numbering struct {
	Step int64 `json:"step"`
}

// Dense numbers positions 0, 1, 2, ...
func Dense() Numbering {
	return Numbering{Step: 1}
}

// Sparse numbers positions 0, step, 2*step, ...
func Sparse(step int64) Numbering {
	return Numbering{Step: step}
}

func (n Numbering) step() int64 {
	if n.Step <= 0 {
		return 1
	}
	return n.Step
}

// IsDense reports whether the policy is dense.
func (n Numbering) IsDense() bool {
	return n.step() == 1
}

// String returns "dense" or "sparse(k)".
func (n Numbering) String() string {
	if n.IsDense() {
		return "dense"
	}
	return fmt.Sprintf("sparse(%d)", n.step())
}

// Assign maps ids, in position order, to an instruction set.
func (n Numbering) Assign(ids []string) Instructions {
	step := n.step()
	out := make(Instructions, len(ids))
	for i, id := range ids {
		out[i] = Assignment{ID: id, SortOrder: int64(i) * step}
	}
	return out
}

// DomainInstructions separates instruction fingerprints from any other
// hash computed over similar bytes.
const DomainInstructions = "ordinal/instructions/v1"

// Fingerprint returns a stable content hash of an instruction set.
// Format: SHA256(domain + 0x00 + canonical), where canonical is the JSON
// array of [id, sort_order] pairs with NFC-normalized ids.
//
// Equal fingerprints mean equal stored outcomes, which is what lets a store
// recognize a re-submitted order as a no-op.
func Fingerprint(in Instructions) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, a := range in {
		if i > 0 {
			b.WriteByte(',')
		}
		id, _ := json.Marshal(norm.NFC.String(a.ID))
		fmt.Fprintf(&b, "[%s,%d]", id, a.SortOrder)
	}
	b.WriteByte(']')

	h := sha256.New()
	h.Write([]byte(DomainInstructions))
	h.Write([]byte{0x00})
	h.Write([]byte(b.String()))
	return hex.EncodeToString(h.Sum(nil))
}
