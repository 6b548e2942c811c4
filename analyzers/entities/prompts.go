package entities

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "description": {"type": "string"},
          "importance": {"type": "integer", "minimum": 1, "maximum": 10}
        },
        "required": ["name", "type", "importance"],
        "additionalProperties": false
      }
    },
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "from": {"type": "string"},
          "to": {"type": "string"},
          "description": {"type": "string"},
          "keywords": {"type": "array", "items": {"type": "string"}},
          "importance": {"type": "integer", "minimum": 1, "maximum": 10}
        },
        "required": ["from", "to", "importance"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities", "relationships"],
  "additionalProperties": false
}`

const systemPrompt = `Extract the named entities from the given text, and the relationships between them, returning them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

` + extractionResponseSchema + `

Rules:
- Entity types are lowercase nouns such as "person", "organization", "place", "technology", "event", "concept".
- Importance is an integer from 1 (incidental mention) to 10 (central to the text). Rate based on how essential the entity is for understanding the text.
- Relationship "from" and "to" must exactly repeat the name of an entity in the entities array.
- Include only entities that are explicitly mentioned or clearly implied by the text. Do not hallucinate.
- If nothing can be extracted, return empty arrays for both fields.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Grace Hopper developed the first compiler while working at Remington Rand."
Output:
{
  "entities": [
    {"name": "Grace Hopper", "type": "person", "description": "computer scientist", "importance": 9},
    {"name": "compiler", "type": "technology", "description": "program translating source code", "importance": 8},
    {"name": "Remington Rand", "type": "organization", "description": "employer", "importance": 6}
  ],
  "relationships": [
    {"from": "Grace Hopper", "to": "compiler", "description": "developed", "keywords": ["development"], "importance": 9},
    {"from": "Grace Hopper", "to": "Remington Rand", "description": "worked at", "keywords": ["employment"], "importance": 6}
  ]
}`
