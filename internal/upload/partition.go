package upload

// Partition splits rows into consecutive chunks of size, the last one possibly
// shorter. Chunks share the backing array of rows but cannot append into each
// other. size must be at least 1.
func Partition[T any](rows []T, size int) [][]T {
	if size < 1 {
		panic("upload: partition size must be at least 1")
	}
	if len(rows) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end:end])
	}
	return chunks
}
