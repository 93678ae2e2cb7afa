package generation

import "fmt"

// systemPrompt instructs the model to produce the strict JSON document
// ParseSuggestions expects.
const systemPrompt = `You create high-quality flashcards from the provided text ONLY.
One atomic fact per card. No hallucinations.
Each suggestion must include a difficulty: "easy" | "medium" | "hard".
Return strict JSON:
{"suggestions":[{"type":"qa|cloze","front":"...","back":"...","pageRefs":[int,...],"confidence":0..1,"difficulty":"easy|medium|hard"}]}`

func userPrompt(c Chunk, requested int) string {
	return fmt.Sprintf("PAGES %d-%d:\n%s\n\nReturn at most %d suggestions.", c.PageStart, c.PageEnd, c.Text, requested)
}
