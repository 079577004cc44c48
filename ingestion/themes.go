package ingestion

import (
	"github.com/poiesic/voxdex/core"
)

// tagKeyThemes sets each chunk's KeyTheme to the first document theme whose
// evidence turns fall inside the chunk's turn range. Chunks with no
// evidence keep an empty theme.
func tagKeyThemes(chunks []core.Chunk, themes []core.Theme) {
	for i := range chunks {
		chunks[i].KeyTheme = themeFor(chunks[i].TurnRange, themes)
	}
}

func themeFor(turns core.Range, themes []core.Theme) string {
	for _, th := range themes {
		for _, idx := range th.EvidenceTurnIndices {
			if turns.Contains(idx) {
				return th.Theme
			}
		}
	}
	return ""
}
