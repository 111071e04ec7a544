package generator

import (
	"sync"
)

// ChunkSize is the size of the buffers used to stream file content to disk.
const ChunkSize = 8 * 1024

// bufPool reuses chunk buffers across files and workers to avoid allocating
// one per file.
var bufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// getBuffer gets a chunk buffer from the pool
func getBuffer() *[]byte {
	return bufPool.Get().(*[]byte)
}

// putBuffer returns a chunk buffer to the pool
func putBuffer(buf *[]byte) {
	bufPool.Put(buf)
}
