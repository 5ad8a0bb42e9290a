package extract

const analyzePrompt = `Analyze this AI-chat conversation and extract the material worth turning
into a technical blog post.

%s

Respond with JSON only:
{
  "key_insights": ["3 to 5 concrete takeaways a reader would learn"],
  "core_concepts": ["3 to 10 technical concepts the conversation covers"],
  "user_intent": "one sentence describing what the user was trying to achieve",
  "substantive_score": 7
}

substantive_score rates the conversation's technical substance from 1 (small
talk) to 10 (deep technical content). Base every field on the conversation
itself; do not invent insights it does not support.`
