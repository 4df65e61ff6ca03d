package refiner

import (
	"context"
	"fmt"

	"github.com/valpere/peredoc/internal/postprocess"
)

// LLMRefiner uses a chat model as a technical editor.
type LLMRefiner struct {
	invoke Invoker
}

// NewLLMRefiner creates a refiner that sends prompts through invoke.
func NewLLMRefiner(invoke Invoker) *LLMRefiner {
	return &LLMRefiner{invoke: invoke}
}

// Refine sends the draft to the model with an editor prompt and returns the
// polished translation. An empty reply keeps the draft.
func (r *LLMRefiner) Refine(ctx context.Context, sourceLang, targetLang, sourceText, draftText string) (string, error) {
	system := buildRefinementPrompt(sourceLang, targetLang)
	user := fmt.Sprintf("ORIGINAL (%s):\n%s\n\nDRAFT TRANSLATION (%s):\n%s", sourceLang, sourceText, targetLang, draftText)

	reply, err := r.invoke(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("refinement request failed: %w", err)
	}

	refined := postprocess.Clean(reply, draftText)
	if refined == "" {
		return draftText, nil
	}
	return refined, nil
}

func buildRefinementPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(`You are an experienced %s technical editor.

You will receive an ORIGINAL passage in %s and a DRAFT %s translation of it.
Rewrite the draft so it reads as natural, idiomatic %s technical writing.

**Fix:**
- Awkward literal translations
- Inconsistent terminology
- Unnatural word order

**Preserve exactly:**
- Links, images and their targets
- Code blocks, inline code and special tags
- Markdown structure: headings, lists, tables, blank lines
- Any [PHn] markers

CRITICAL: If the draft is already good, return it unchanged.

Output ONLY the refined translation in %s. Do not include any explanation.`,
		targetLang,
		sourceLang, targetLang,
		targetLang,
		targetLang,
	)
}
