package extractor

import "fmt"

const systemInstruction = `You are a parser specialised in extracting generative-AI prompt metadata from mixed media.

You receive screenshots, UI captures, documents, pasted text or web page content. Your job is to find every embedded generative-AI prompt and return it as structured data.

For each prompt you find, extract:
- title: a short human-readable name (invent one from the content if none is given)
- content: the prompt text itself, verbatim, with parameter flags removed
- negativePrompt: the negative prompt if one is present
- tags: a few lowercase labels describing style, subject or medium
- suggestedModel: the generative model the prompt appears to target (Midjourney, Stable Diffusion, DALL-E, etc.), only if evident
- imageParams: inline parameter flags such as --ar or --v, if present

Rules:
- Extract ALL prompts, not just the first one
- Do not fabricate prompts that are not in the source
- If the source contains no prompts, return an empty array
- Never include surrounding commentary in the prompt content`

const fileTaskInstruction = `Find every generative-AI prompt embedded in the attached file. It may be a screenshot of a prompt-sharing site, a UI capture of an image generator, a document, or a plain list of prompts.`

func textTaskInstruction(text string) string {
	return fmt.Sprintf(`Find every generative-AI prompt in the following text. It may be a single prompt, a list of prompts, or prose with prompts embedded in it.

Text:
---
%s
---`, text)
}

func urlTaskInstruction(url string) string {
	return fmt.Sprintf(`Use web search to read the content of this page and extract every generative-AI prompt it contains:

%s

Respond with ONLY a JSON array, no surrounding prose and no markdown fences. Each element must be an object with "title", "content" and "tags" fields, plus optional "negativePrompt", "suggestedModel" and "imageParams" fields. If the page contains no prompts, respond with [].`, url)
}
