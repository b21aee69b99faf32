// Package classifier assigns a service tier to a drawing set. It asks the
// provider's fast model first and falls back to keyword scoring when the
// provider is unreachable, so classification never fails the pipeline.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/afriplan/takeoff-cli/internal/config"
	"github.com/afriplan/takeoff-cli/internal/model"
	"github.com/afriplan/takeoff-cli/pkg/anthropic"
)

const classifySystemPrompt = `You classify electrical installation drawing sets into exactly one project tier: residential, commercial, maintenance, industrial, mixed. Respond with a valid JSON object: {"tier": "<tier>", "confidence": "HIGH|MEDIUM|LOW"}`

const classifyUserPrompt = `Filename: %s

Drawing text (first 2000 chars):
%s`

// maxClassifyImages caps how many page rasters ride along with the prompt.
const maxClassifyImages = 2

// labelScores maps the provider's coarse certainty label to a numeric score.
var labelScores = map[string]float64{
	"HIGH":   0.9,
	"MEDIUM": 0.7,
	"LOW":    0.4,
}

const unrecognizedLabelScore = 0.5

// tierSynonyms normalizes free-text tier labels the provider may emit.
var tierSynonyms = map[string]model.ServiceTier{
	"house":               model.TierResidential,
	"home":                model.TierResidential,
	"domestic":            model.TierResidential,
	"dwelling":            model.TierResidential,
	"flat":                model.TierResidential,
	"apartment":           model.TierResidential,
	"office":              model.TierCommercial,
	"retail":              model.TierCommercial,
	"shop":                model.TierCommercial,
	"commercial_building": model.TierCommercial,
	"coc":                 model.TierMaintenance,
	"inspection":          model.TierMaintenance,
	"repair":              model.TierMaintenance,
	"certificate":         model.TierMaintenance,
	"factory":             model.TierIndustrial,
	"plant":               model.TierIndustrial,
	"warehouse":           model.TierIndustrial,
	"mixed_use":           model.TierMixed,
	"multi_use":           model.TierMixed,
}

// tierKeywords holds the weighted fallback keyword table. Primary keywords
// score 2 points, secondary 1.
var tierKeywords = map[model.ServiceTier]struct {
	primary   []string
	secondary []string
}{
	model.TierResidential: {
		primary:   []string{"house", "dwelling", "residence", "domestic"},
		secondary: []string{"bedroom", "kitchen", "garage", "geyser", "erf"},
	},
	model.TierCommercial: {
		primary:   []string{"office", "retail", "shop", "restaurant"},
		secondary: []string{"tenant", "shopfront", "emergency lighting", "fire detection"},
	},
	model.TierMaintenance: {
		primary:   []string{"coc", "inspection", "maintenance", "remedial"},
		secondary: []string{"existing", "repair", "defect", "fault"},
	},
	model.TierIndustrial: {
		primary:   []string{"factory", "warehouse", "plant", "workshop"},
		secondary: []string{"motor", "compressor", "three phase", "crane"},
	},
	model.TierMixed: {
		primary:   []string{"mixed use", "mixed-use"},
		secondary: []string{"live-work", "ground floor retail"},
	},
}

// Classifier determines the service tier of a project.
type Classifier struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
}

// New creates a Classifier backed by the provider's fast model.
func New(client anthropic.Client, cfg config.AnthropicConfig) *Classifier {
	return &Classifier{client: client, cfg: cfg}
}

// Classify returns a best-effort tier for the project. It never returns an
// error: provider failures degrade to the keyword fallback.
func (c *Classifier) Classify(ctx context.Context, project model.Project) (model.TierClassification, model.TokenUsage) {
	var usage model.TokenUsage

	if project.TierHint.Valid() {
		return model.TierClassification{
			Tier:       project.TierHint,
			Confidence: 1.0,
			Source:     "hint",
		}, usage
	}

	filename, text := projectSignals(project)

	req := anthropic.MessageRequest{
		Model:     c.cfg.FastModel,
		MaxTokens: 128,
		System:    anthropic.BuildCachedSystemBlocks(classifySystemPrompt),
		Messages:  []anthropic.Message{buildClassifyMessage(project, filename, text)},
	}

	resp, err := c.client.CreateMessage(ctx, req)
	if err != nil {
		zap.L().Warn("classifier: provider call failed, using keyword fallback",
			zap.String("project", project.Name),
			zap.Error(err),
		)
		return keywordFallback(filename, text, "extraction provider unavailable"), usage
	}

	usage.InputTokens = int(resp.Usage.InputTokens)
	usage.OutputTokens = int(resp.Usage.OutputTokens)

	cls, ok := parseTierResponse(resp.Text())
	if !ok {
		zap.L().Warn("classifier: unrecognized provider response, using keyword fallback",
			zap.String("project", project.Name),
		)
		return keywordFallback(filename, text, "provider returned an unrecognized tier"), usage
	}

	zap.L().Info("classifier: tier assigned",
		zap.String("project", project.Name),
		zap.String("tier", string(cls.Tier)),
		zap.Float64("confidence", cls.Confidence),
	)
	return cls, usage
}

func buildClassifyMessage(project model.Project, filename, text string) anthropic.Message {
	msg := anthropic.TextMessage("user", fmt.Sprintf(classifyUserPrompt, filename, text))
	n := 0
	for _, p := range project.Pages {
		if p.ImageB64 == "" || n >= maxClassifyImages {
			continue
		}
		msg.Blocks = append(msg.Blocks, anthropic.ImageBlock(p.ImageB64, p.MediaType))
		n++
	}
	return msg
}

// projectSignals gathers the filename and a bounded text excerpt used both
// for the provider prompt and the keyword fallback.
func projectSignals(project model.Project) (string, string) {
	filename := project.Name
	var sb strings.Builder
	for _, p := range project.Pages {
		if filename == "" {
			filename = p.Filename
		}
		if sb.Len() < 2000 && p.Text != "" {
			sb.WriteString(p.Text)
			sb.WriteString("\n")
		}
	}
	text := sb.String()
	if len(text) > 2000 {
		text = text[:2000]
	}
	return filename, text
}

// parseTierResponse decodes the provider's JSON and normalizes the tier
// label through the synonym table.
func parseTierResponse(text string) (model.TierClassification, bool) {
	var result struct {
		Tier       string `json:"tier"`
		Confidence string `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &result); err != nil {
		return model.TierClassification{}, false
	}

	tier := normalizeTier(result.Tier)
	if !tier.Valid() {
		return model.TierClassification{}, false
	}

	score, ok := labelScores[strings.ToUpper(strings.TrimSpace(result.Confidence))]
	if !ok {
		score = unrecognizedLabelScore
	}

	return model.TierClassification{
		Tier:       tier,
		Confidence: score,
		Source:     "provider",
	}, true
}

func normalizeTier(s string) model.ServiceTier {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	if t := model.ServiceTier(norm); t.Valid() {
		return t
	}
	if t, ok := tierSynonyms[norm]; ok {
		return t
	}
	return ""
}

// keywordFallback scores the filename and text against the weighted keyword
// table. Ties and zero scores default to residential at low confidence.
func keywordFallback(filename, text string, reason string) model.TierClassification {
	haystack := strings.ToLower(filename + " " + text)

	best := model.TierResidential
	bestScore, secondScore := 0, 0
	for _, tier := range model.AllServiceTiers() {
		kw := tierKeywords[tier]
		score := 0
		for _, k := range kw.primary {
			score += 2 * strings.Count(haystack, k)
		}
		for _, k := range kw.secondary {
			score += strings.Count(haystack, k)
		}
		if score > bestScore {
			secondScore = bestScore
			bestScore = score
			best = tier
		} else if score > secondScore {
			secondScore = score
		}
	}

	cls := model.TierClassification{
		Tier:   best,
		Source: "keyword_fallback",
	}
	if bestScore == 0 || bestScore == secondScore {
		cls.Tier = model.TierResidential
		cls.Confidence = 0.25
		cls.Warning = fmt.Sprintf("tier defaulted to residential: %s, no decisive keywords", reason)
	} else {
		cls.Confidence = 0.4
		cls.Warning = fmt.Sprintf("tier classified by keywords only: %s", reason)
	}
	return cls
}

// cleanJSON strips markdown code fences the model sometimes wraps around
// its JSON payload.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
