package pipeline

import "sync"

// DedupIndex maps content hashes to the page that already carries that
// content, so re-submitted documents are skipped instead of published
// twice. State is in-memory and shares the job store's lifetime.
type DedupIndex struct {
	mu    sync.Mutex
	pages map[string]string // content hash -> page ID
}

func NewDedupIndex() *DedupIndex {
	return &DedupIndex{pages: make(map[string]string)}
}

// Lookup returns the page ID previously published for this hash.
func (d *DedupIndex) Lookup(hash string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pageID, ok := d.pages[hash]
	return pageID, ok
}

// Record remembers a published page for a content hash.
func (d *DedupIndex) Record(hash, pageID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[hash] = pageID
}
