// Package refiner implements the optional second pass of the translation
// pipeline. It takes a draft translation of a chunk and asks an LLM to
// polish it without touching markup.
package refiner

import "context"

// Refiner reviews and improves a draft translation.
type Refiner interface {
	Refine(ctx context.Context, sourceLang, targetLang, sourceText, draftText string) (string, error)
}

// Invoker sends a system and a user prompt to a model and returns its reply.
type Invoker func(ctx context.Context, system, user string) (string, error)
