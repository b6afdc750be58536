package graphfile

import (
	"golang.org/x/exp/mmap"

	"github.com/dd0wney/cluso-layout/pkg/layout"
	"github.com/dd0wney/cluso-layout/pkg/pools"
)

// OpenGraphFile decodes a binary graph container through a memory mapping.
// Large batch files are served from the page cache without buffered read
// syscalls; the mapping is released before return.
func OpenGraphFile(path string) (*Graph, error) {
	data, release, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	defer release()
	return decodeGraph(data)
}

// OpenPositionsFile decodes a binary position container through a memory
// mapping.
func OpenPositionsFile(path string) ([]layout.Position, error) {
	data, release, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	defer release()
	return decodePositions(data)
}

// mapFile maps path and copies it into a pooled buffer the decoder can
// slice. The release func returns the buffer and unmaps the file.
func mapFile(path string) ([]byte, func(), error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, nil, err
	}

	data := pools.GetBytesSized(r.Len())
	if len(data) > 0 {
		if _, err := r.ReadAt(data, 0); err != nil {
			pools.PutBytes(data)
			r.Close()
			return nil, nil, err
		}
	}

	release := func() {
		pools.PutBytes(data)
		r.Close()
	}
	return data, release, nil
}
