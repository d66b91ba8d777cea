package scorer

import "fmt"

const systemPrompt = "You analyze relationships between named entities. Follow the requested reply format exactly."

func orDefault(topic, fallback string) string {
	if topic == "" {
		return fallback
	}
	return topic
}

func pairPrompt(a, b, topic string) string {
	return fmt.Sprintf(`Analyze the relationship between these two entities:

Entity 1: %s
Entity 2: %s
Context: %s

Reply with a JSON object:
{
  "relationship_exists": true or false,
  "relationship_type": "short snake_case label, e.g. works_with, part_of, similar_to, competes_with",
  "weight": 0.0-1.0,
  "description": "one sentence"
}

Weight guide: 0.0-0.2 weak or tangential, 0.3-0.5 moderate, 0.6-0.8 strong, 0.9-1.0 direct.`,
		a, b, orDefault(topic, "General analysis"))
}

func relatedPrompt(entity, topic string, maxCount int) string {
	return fmt.Sprintf(`List up to %d other entities directly related to this entity, strongest first:

Entity: %s
Context: %s

Reply with a JSON array of objects:
[{"name": "Entity", "weight": 0.0-1.0, "relationship_type": "snake_case label"}]
Prefer concrete entities (people, organizations, places, products, concepts).`,
		maxCount, entity, orDefault(topic, "General context"))
}

func describePrompt(entity, topic string) string {
	return fmt.Sprintf(`Summarize this entity in 2-3 factual sentences. Reply with plain text, not JSON.

Entity: %s
Context: %s`, entity, orDefault(topic, "General information"))
}
