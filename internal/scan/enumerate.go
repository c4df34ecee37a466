package scan

// SliceLast returns the n highest-ordered UIDs, preserving order. n == 0
// means unbounded; n larger than the input returns the input unchanged.
func SliceLast(uids []uint32, n int) []uint32 {
	if n <= 0 || n >= len(uids) {
		return uids
	}
	return uids[len(uids)-n:]
}

// ChunkUIDs partitions uids into at most workers contiguous chunks of
// near-equal size. Fewer chunks are returned when the input is small.
func ChunkUIDs(uids []uint32, workers int) [][]uint32 {
	if len(uids) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	size := (len(uids) + workers - 1) / workers
	chunks := make([][]uint32, 0, workers)
	for start := 0; start < len(uids); start += size {
		end := start + size
		if end > len(uids) {
			end = len(uids)
		}
		chunks = append(chunks, uids[start:end])
	}
	return chunks
}
