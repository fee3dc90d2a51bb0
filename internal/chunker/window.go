package chunker

import (
	"strconv"
	"strings"

	"patentrag/internal/domain"
)

// windows joins units into chunks of size units, each starting overlap units
// before the previous one ended. The final window always reaches the end.
func windows(document domain.Document, units []string, size, overlap int) []domain.Chunk {
	if len(units) == 0 {
		return nil
	}
	step := size - overlap
	chunks := make([]domain.Chunk, 0, (len(units)+step-1)/step)
	for start := 0; ; start += step {
		end := min(start+size, len(units))
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Index:      idx,
			Text:       strings.Join(units[start:end], " "),
		})
		if end == len(units) {
			return chunks
		}
	}
}
