package exam

import (
	"fmt"
	"strings"
)

// chunkDelimiter joins retrieved chunks into one context block.
const chunkDelimiter = "\n\n---\n\n"

// buildPrompt composes the fixed system instruction that constrains the model
// to the retrieved context and to the exact exam JSON shape, plus the user
// instruction naming the topic.
func buildPrompt(chunks []string, topic string, questionCount int) (systemMsg, userMsg string) {
	clean := make([]string, len(chunks))
	for i, c := range chunks {
		clean[i] = sanitizeChunk(c)
	}
	ragContext := strings.Join(clean, chunkDelimiter)

	var b strings.Builder
	b.WriteString("Eres un examinador académico experto.\n")
	b.WriteString("Basándote EXCLUSIVAMENTE en el contexto proporcionado, genera un examen dinámico tipo test en JSON.\n")
	b.WriteString("Responde únicamente con un objeto JSON con esta forma exacta:\n")
	b.WriteString(`{"examTitle": "...", "questions": [{"id": "q1", "questionText": "...", "options": ["...", "...", "...", "..."], "correctOptionIndex": 0, "explanation": "..."}]}` + "\n")
	b.WriteString("Cada pregunta debe tener exactamente 4 opciones y correctOptionIndex es un índice basado en 0.\n")
	b.WriteString(fmt.Sprintf("Genera %d preguntas de dificultad media.\n", questionCount))
	b.WriteString("Contexto:\n")
	b.WriteString(ragContext)

	systemMsg = b.String()
	userMsg = fmt.Sprintf("Genera un examen sobre: %s.", topic)
	return
}

func sanitizeChunk(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
