package coach

import (
	"fmt"
	"strings"

	"github.com/aimd54/penpath/internal/models"
)

const (
	scoringSystemPrompt = "You are a helpful assistant that evaluates writing submissions. " +
		"Return ONLY valid JSON without any markdown formatting, code blocks, or additional text."

	generationSystemPrompt = "You are a helpful assistant that generates writing challenges. " +
		"Return only valid JSON without markdown formatting."
)

func scoringPrompt(challenge *models.Challenge, response, languageName string) string {
	var b strings.Builder
	b.WriteString("You are an expert copywriting coach evaluating a student's submission.\n\n")
	b.WriteString("CHALLENGE:\n")
	fmt.Fprintf(&b, "Type: %s\n", challenge.Type)
	fmt.Fprintf(&b, "Difficulty: %s\n", challenge.Difficulty)
	fmt.Fprintf(&b, "Title: %s\n", challenge.Title)
	fmt.Fprintf(&b, "Brief: %s\n", challenge.Brief)
	if challenge.WordLimit > 0 {
		fmt.Fprintf(&b, "Word limit: %d\n", challenge.WordLimit)
	}
	b.WriteString("Guidelines:\n")
	for _, g := range challenge.Guidelines {
		fmt.Fprintf(&b, "- %s\n", g)
	}
	b.WriteString("\nSTUDENT SUBMISSION:\n")
	fmt.Fprintf(&b, "%q\n\n", response)
	b.WriteString("Evaluate the submission on how well it meets the brief, adherence to the guidelines, ")
	b.WriteString("and writing quality and effectiveness.\n\n")
	b.WriteString("Provide a numerical score from 1-100, 3-4 specific points of feedback on what was done well, ")
	b.WriteString("one specific improvement suggestion, and the XP to award (between 50-200, based on quality and difficulty).\n")
	fmt.Fprintf(&b, "Write the feedback and the improvement in %s.\n\n", languageName)
	b.WriteString(`Respond with ONLY a valid JSON object:
{
  "score": number,
  "feedback": [string],
  "improvement": string,
  "xp_gained": number
}`)
	return b.String()
}

func generationPrompt(count int, levelID uint, difficulties []models.Difficulty, languageName string) string {
	types := make([]string, len(models.ChallengeTypes))
	for i, t := range models.ChallengeTypes {
		types[i] = string(t)
	}
	diffs := make([]string, len(difficulties))
	for i, d := range difficulties {
		diffs[i] = string(d)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d unique writing challenges for a copywriting learning app.\n", count)
	fmt.Fprintf(&b, "User is at level: %d (1-10 scale where 10 is expert).\n", levelID)
	fmt.Fprintf(&b, "Write every challenge in %s.\n\n", languageName)
	b.WriteString("For each challenge, provide:\n")
	fmt.Fprintf(&b, "1. type (one of: %s)\n", strings.Join(types, ", "))
	b.WriteString("2. title (short, catchy)\n")
	b.WriteString("3. description (1-2 sentences explaining the skill)\n")
	b.WriteString("4. brief (the specific task for the user)\n")
	fmt.Fprintf(&b, "5. difficulty (one of: %s)\n", strings.Join(diffs, ", "))
	b.WriteString("6. time_estimate (e.g., \"10 min\")\n")
	b.WriteString("7. guidelines (3-4 short pieces of advice)\n")
	b.WriteString("8. word_limit (a number appropriate for the task)\n")
	b.WriteString("9. example_prompt (a hint that might help the user)\n\n")
	b.WriteString(`Spread the challenges across all types. Return ONLY a JSON object of the form {"challenges": [ ... ]}.`)
	return b.String()
}
