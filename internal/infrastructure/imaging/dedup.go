package imaging

import (
	"image"
	"sync"

	"github.com/corona10/goimagehash"
)

// dedupThreshold is the maximum Hamming distance between two dHash
// values below which images count as perceptually identical.
const dedupThreshold = 10

// DedupIndex tracks perceptual hashes per product family so near
// duplicates of already stored images can be flagged. Safe for
// concurrent use.
type DedupIndex struct {
	mutex  sync.Mutex
	hashes map[string][]*goimagehash.ImageHash
}

// NewDedupIndex creates an empty dedup index
func NewDedupIndex() *DedupIndex {
	return &DedupIndex{
		hashes: make(map[string][]*goimagehash.ImageHash),
	}
}

// IsNearDuplicate reports whether img is perceptually identical to an
// image previously recorded for family. Unique images are recorded for
// future comparisons. Hashing failures are treated as unique.
func (d *DedupIndex) IsNearDuplicate(family string, img image.Image) bool {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return false
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	for _, h := range d.hashes[family] {
		dist, err := hash.Distance(h)
		if err == nil && dist < dedupThreshold {
			return true
		}
	}

	d.hashes[family] = append(d.hashes[family], hash)
	return false
}
