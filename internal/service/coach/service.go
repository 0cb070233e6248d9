// Package coach turns text-generation replies into scored evaluations and new challenges.
package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/text/language"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/challenges"
	"github.com/aimd54/penpath/internal/llm"
	"github.com/aimd54/penpath/internal/locale"
	"github.com/aimd54/penpath/internal/metrics"
	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/pkg/logger"
)

// XP bounds applied to scoring replies.
const (
	MinXP = 50
	MaxXP = 200
)

// DefaultBatchSize is the number of challenges requested per generation call.
const DefaultBatchSize = 10

const (
	scoringTemperature    float32 = 0.3
	generationTemperature float32 = 0.7
)

// Evaluation is a parsed scoring reply.
type Evaluation struct {
	Score       int      `json:"score"`
	Feedback    []string `json:"feedback"`
	Improvement string   `json:"improvement"`
	XPGained    int      `json:"xp_gained"`
}

// Service scores responses and generates challenges.
type Service struct {
	client    llm.Client
	batchSize int
	log       *logger.Logger
}

// NewService creates a new coach service.
func NewService(client llm.Client, batchSize int, log *logger.Logger) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		client:    client,
		batchSize: batchSize,
		log:       log,
	}
}

// Score asks the provider to evaluate response against challenge.
// Nothing is retried or cached.
func (s *Service) Score(ctx context.Context, challenge *models.Challenge, response string, lang language.Tag) (*Evaluation, error) {
	reply, err := s.complete(ctx, "score", llm.Request{
		System:      scoringSystemPrompt,
		Prompt:      scoringPrompt(challenge, response, locale.Name(lang)),
		Temperature: scoringTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	eval, err := ParseEvaluation(reply)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("challenge_id", challenge.ID).
			Str("reply", truncate(reply, 500)).
			Msg("Malformed scoring reply")
		return nil, err
	}
	return eval, nil
}

// GenerateChallenges asks the provider for a batch of challenges suited to levelID.
// The returned challenges have no id yet.
func (s *Service) GenerateChallenges(ctx context.Context, levelID uint, lang language.Tag) ([]models.Challenge, error) {
	if levelID == 0 {
		levelID = models.FirstLevelID
	}
	difficulties := challenges.DifficultiesForLevel(levelID)

	reply, err := s.complete(ctx, "generate", llm.Request{
		System:      generationSystemPrompt,
		Prompt:      generationPrompt(s.batchSize, levelID, difficulties, locale.Name(lang)),
		Temperature: generationTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	generated, dropped, err := ParseChallenges(reply, levelID, lang.String())
	if err != nil {
		s.log.Warn().
			Err(err).
			Uint("level_id", levelID).
			Str("reply", truncate(reply, 500)).
			Msg("Malformed generation reply")
		return nil, err
	}
	if dropped > 0 {
		s.log.Debug().Int("dropped", dropped).Int("kept", len(generated)).Msg("Dropped invalid generated challenges")
	}
	if len(generated) > s.batchSize {
		generated = generated[:s.batchSize]
	}
	return generated, nil
}

func (s *Service) complete(ctx context.Context, operation string, req llm.Request) (string, error) {
	start := time.Now()
	reply, err := s.client.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.ObserveLLMRequest(operation, "error", elapsed)
		s.log.Error().Err(err).Str("operation", operation).Msg("Text generation request failed")
		if errors.Is(err, llm.ErrProviderAuth) {
			return "", apperrors.Wrap(apperrors.KindProvider, err, "text generation provider rejected credentials")
		}
		return "", apperrors.Wrap(apperrors.KindProvider, err, operation+" request failed")
	}

	metrics.ObserveLLMRequest(operation, "success", elapsed)
	return reply, nil
}

var (
	fencePattern = regexp.MustCompile("```(?:json|JSON)?")
	tagPattern   = regexp.MustCompile(`^</?[a-zA-Z][^>]*>`)
)

// CleanReply strips markdown fences and stray HTML tags around a JSON reply.
// Text inside JSON strings is kept as is, so feedback may quote <placeholders>.
func CleanReply(reply string) string {
	cleaned := fencePattern.ReplaceAllString(reply, "")

	var b strings.Builder
	b.Grow(len(cleaned))
	inString, escaped := false, false
	for i := 0; i < len(cleaned); {
		c := cleaned[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == '<':
			if loc := tagPattern.FindStringIndex(cleaned[i:]); loc != nil {
				i += loc[1]
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return strings.TrimSpace(b.String())
}

type evaluationReply struct {
	Score       *flexInt `json:"score"`
	Feedback    []string `json:"feedback"`
	Improvement *string  `json:"improvement"`
	XPGained    *flexInt `json:"xp_gained"`
}

// ParseEvaluation parses a scoring reply. All four fields are required; XP is clamped to [MinXP, MaxXP].
func ParseEvaluation(reply string) (*Evaluation, error) {
	var raw evaluationReply
	if err := json.Unmarshal([]byte(CleanReply(reply)), &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.KindProviderResponse, err, "scoring reply is not valid JSON")
	}

	switch {
	case raw.Score == nil:
		return nil, missingField("score")
	case raw.Feedback == nil:
		return nil, missingField("feedback")
	case raw.Improvement == nil || strings.TrimSpace(*raw.Improvement) == "":
		return nil, missingField("improvement")
	case raw.XPGained == nil:
		return nil, missingField("xp_gained")
	}

	score := int(*raw.Score)
	if score < 1 || score > 100 {
		return nil, apperrors.Newf(apperrors.KindProviderResponse, "scoring reply has score %d outside 1-100", score)
	}

	feedback := make([]string, 0, len(raw.Feedback))
	for _, f := range raw.Feedback {
		if f = strings.TrimSpace(f); f != "" {
			feedback = append(feedback, f)
		}
	}
	if len(feedback) == 0 {
		return nil, missingField("feedback")
	}

	return &Evaluation{
		Score:       score,
		Feedback:    feedback,
		Improvement: strings.TrimSpace(*raw.Improvement),
		XPGained:    clampXP(int(*raw.XPGained)),
	}, nil
}

func missingField(name string) error {
	return apperrors.Newf(apperrors.KindProviderResponse, "scoring reply is missing %s", name)
}

func clampXP(xp int) int {
	if xp < MinXP {
		return MinXP
	}
	if xp > MaxXP {
		return MaxXP
	}
	return xp
}

type generatedChallenge struct {
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Brief         string   `json:"brief"`
	Difficulty    string   `json:"difficulty"`
	TimeEstimate  string   `json:"time_estimate"`
	Guidelines    []string `json:"guidelines"`
	WordLimit     flexInt  `json:"word_limit"`
	ExamplePrompt string   `json:"example_prompt"`
}

// ParseChallenges parses a generation reply, either a bare array or an object
// with a challenges array. Invalid entries are dropped and counted; a reply
// without any valid entry is an error.
func ParseChallenges(reply string, levelID uint, lang string) ([]models.Challenge, int, error) {
	cleaned := CleanReply(reply)

	var entries []generatedChallenge
	if strings.HasPrefix(cleaned, "[") {
		if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
			return nil, 0, apperrors.Wrap(apperrors.KindProviderResponse, err, "generation reply is not valid JSON")
		}
	} else {
		var wrapped struct {
			Challenges []generatedChallenge `json:"challenges"`
		}
		if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
			return nil, 0, apperrors.Wrap(apperrors.KindProviderResponse, err, "generation reply is not valid JSON")
		}
		entries = wrapped.Challenges
	}

	out := make([]models.Challenge, 0, len(entries))
	dropped := 0
	for _, e := range entries {
		c, ok := e.toModel(levelID, lang)
		if !ok {
			dropped++
			continue
		}
		out = append(out, c)
	}

	if len(out) == 0 {
		return nil, dropped, apperrors.New(apperrors.KindProviderResponse, "generation reply contains no valid challenges")
	}
	return out, dropped, nil
}

func (e generatedChallenge) toModel(levelID uint, lang string) (models.Challenge, bool) {
	ct := models.ChallengeType(strings.ToLower(strings.TrimSpace(e.Type)))
	ct = models.ChallengeType(strings.ReplaceAll(string(ct), " ", ""))
	ct = models.ChallengeType(strings.ReplaceAll(string(ct), "-", ""))
	if !ct.Valid() {
		return models.Challenge{}, false
	}

	difficulty := normalizeDifficulty(e.Difficulty)
	if !difficulty.Valid() {
		return models.Challenge{}, false
	}

	title := strings.TrimSpace(e.Title)
	brief := strings.TrimSpace(e.Brief)
	if title == "" || brief == "" || e.WordLimit <= 0 {
		return models.Challenge{}, false
	}

	guidelines := make([]string, 0, len(e.Guidelines))
	for _, g := range e.Guidelines {
		if g = strings.TrimSpace(g); g != "" {
			guidelines = append(guidelines, g)
		}
	}

	var example *string
	if p := strings.TrimSpace(e.ExamplePrompt); p != "" {
		example = &p
	}

	return models.Challenge{
		Slug:          slug.Make(title),
		Type:          ct,
		Difficulty:    difficulty,
		Title:         title,
		Description:   strings.TrimSpace(e.Description),
		Brief:         brief,
		Guidelines:    guidelines,
		WordLimit:     int(e.WordLimit),
		TimeEstimate:  strings.TrimSpace(e.TimeEstimate),
		ExamplePrompt: example,
		MinLevelID:    levelID,
		Language:      lang,
	}, true
}

func normalizeDifficulty(s string) models.Difficulty {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return models.Difficulty(strings.ToUpper(s[:1]) + s[1:])
}

// flexInt accepts JSON numbers (integral or not) and numeric strings such as "150" or "150 words".
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return fmt.Errorf("null is not a number")
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
		if fields := strings.Fields(s); len(fields) > 0 {
			s = fields[0]
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", string(data), err)
	}
	*f = flexInt(v)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
