package engine

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// leafRune stands in for inline leaf nodes so that text offsets match
// document positions.
const leafRune = "\uFFFC"

// DeleteBackward deletes the selection, or the grapheme cluster before an
// empty selection. Nothing happens at the start of a textblock. It reports
// whether anything was deleted.
func (tr *Transaction) DeleteBackward() (bool, error) {
	return tr.deleteCluster(false)
}

// DeleteForward deletes the selection, or the grapheme cluster after an
// empty selection. Nothing happens at the end of a textblock.
func (tr *Transaction) DeleteForward() (bool, error) {
	return tr.deleteCluster(true)
}

func (tr *Transaction) deleteCluster(forward bool) (bool, error) {
	sel := tr.Selection()
	if !sel.Empty() {
		return true, tr.Delete(sel.From(), sel.To())
	}
	pos := sel.Head()
	rPos, err := tr.Doc.Resolve(pos)
	if err != nil {
		return false, err
	}
	parent := rPos.Parent()
	if !parent.IsTextblock() {
		return false, nil
	}

	var n int
	if forward {
		text := parent.TextBetween(rPos.ParentOffset, parent.Content().Size(), "", leafRune)
		cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(text, -1)
		n = utf8.RuneCountInString(cluster)
	} else {
		text := parent.TextBetween(0, rPos.ParentOffset, "", leafRune)
		n = lastClusterRunes(text)
	}
	if n == 0 {
		return false, nil
	}
	if forward {
		return true, tr.Delete(pos, pos+n)
	}
	return true, tr.Delete(pos-n, pos)
}

func lastClusterRunes(text string) int {
	var last string
	state := -1
	for text != "" {
		last, text, _, state = uniseg.FirstGraphemeClusterInString(text, state)
	}
	return utf8.RuneCountInString(last)
}
