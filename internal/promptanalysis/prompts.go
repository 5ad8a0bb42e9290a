package promptanalysis

const evaluatePrompt = `Evaluate how effective this prompt to an AI assistant is. Consider three
lenses: what the user literally asked for, what underlying goal the phrasing
implies, and what background expectations the user left unstated.

Conversation so far:
%s

Prompt to evaluate:
%s

Give a short assessment (3 to 5 sentences) of the prompt's strengths and
weaknesses.`

const candidatesPrompt = `Write improved alternatives for this prompt to an AI assistant.

Conversation so far:
%s

Original prompt:
%s

Assessment of the original:
%s

Respond with JSON only, containing at least %d candidates:
{
  "candidates": [
    {
      "type": "a short label for the technique used, e.g. minimalist, chain-of-thought, expert-persona",
      "prompt": "the full improved prompt text",
      "reasoning": "why this phrasing gets a better answer"
    }
  ]
}

Pick the technique that fits this prompt; do not force the same technique
onto every candidate.`

const reasoningPrompt = `The original prompt was:
%s

These improved alternatives were generated:
%s

In 2 to 4 sentences, explain what specifically improved across these
alternatives and why those changes get better answers.`

const effectPrompt = `Original prompt: %s
Improved prompt: %s

In at most 200 characters, describe the expected quality difference in the
answers. Output the description only.`
