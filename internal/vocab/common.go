package vocab

const commonFirstID = 100

// commonWords are whole words with fixed ids starting at commonFirstID.
var commonWords = [...]string{
	"the", "of", "and", "to", "in", "a", "is", "that", "for", "it",
	"with", "as", "was", "on", "be", "at", "by", "this", "from", "an",
	"are", "or", "not", "have", "had", "but", "what", "all", "were", "when",
	"we", "there", "can", "been", "has", "more", "if", "no", "so", "like",
	"who", "would", "make", "about", "which", "their", "they", "you", "he", "she",
	"will",
}

var commonIDs = func() map[string]int {
	m := make(map[string]int, len(commonWords))
	for i, w := range commonWords {
		m[w] = commonFirstID + i
	}
	return m
}()

// CommonID returns the fixed id of a common word.
func CommonID(word string) (int, bool) {
	id, ok := commonIDs[word]
	return id, ok
}
