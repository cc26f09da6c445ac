package safety

import (
	"regexp"

	"github.com/davidbz/governor/internal/domain"
)

// Default category names.
const (
	CategoryHateSpeech       = "hate_speech"
	CategoryHarassment       = "harassment"
	CategoryViolence         = "violence"
	CategorySexualContent    = "sexual_content"
	CategorySelfHarm         = "self_harm"
	CategoryIllegalActivity  = "illegal_activity"
	CategoryPrivacyViolation = "privacy_violation"
	CategoryMisinformation   = "misinformation"
	CategorySpam             = "spam"
	CategoryProfanity        = "profanity"

	// CategoryEvaluationError marks results produced when the classifier failed.
	CategoryEvaluationError = "evaluation_error"
)

const defaultCategoryThreshold = 0.5

//nolint:gochecknoglobals // compiled once, read-only
var (
	emailPattern     = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern     = regexp.MustCompile(`\b(?:\+?\d{1,2}[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]\d{4}\b`)
	profanityPattern = regexp.MustCompile(`(?i)\b(?:damn|shit\w*|fuck\w*|bastard|crap|asshole)\b`)
)

// builtinRule is how the pattern classifier recognizes a default category.
type builtinRule struct {
	patterns []*regexp.Regexp
	score    float64
}

//nolint:gochecknoglobals // static rule table
var builtinRules = map[string]builtinRule{
	CategoryHateSpeech: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:hate|despise)\s+(?:all\s+)?(?:those\s+)?(?:people|immigrants|foreigners|them)\b`),
			regexp.MustCompile(`(?i)\b(?:subhuman|inferior\s+race|ethnic\s+cleansing)\b`),
		},
		score: 0.85,
	},
	CategoryHarassment: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\byou(?:'re|\s+are)\s+(?:worthless|pathetic|stupid|an\s+idiot)\b`),
			regexp.MustCompile(`(?i)\b(?:nobody\s+(?:likes|wants)\s+you|i(?:'ll|\s+will)\s+find\s+you)\b`),
		},
		score: 0.75,
	},
	CategoryViolence: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:kill|murder|shoot|assault|tortur)\w*`),
			regexp.MustCompile(`(?i)\bstab(?:s|bed|bing|bers?)?\b`),
			regexp.MustCompile(`(?i)\b(?:bomb|massacre)\b`),
		},
		score: 0.8,
	},
	CategorySexualContent: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:nsfw|porn\w*|sexually\s+explicit)\b`),
		},
		score: 0.7,
	},
	CategorySelfHarm: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:suicide|self[-\s]?harm|kill\s+myself|end\s+my\s+life|cut\s+myself)\b`),
		},
		score: 0.9,
	},
	CategoryIllegalActivity: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:make|cook|synthesi[sz]e)\s+(?:meth|drugs|explosives)\b`),
			regexp.MustCompile(`(?i)\b(?:launder(?:ing)?\s+money|money\s+laundering)\b`),
			regexp.MustCompile(`(?i)\bsteal\s+(?:a\s+)?(?:car|identity|credit\s+cards?)\b`),
		},
		score: 0.8,
	},
	CategoryPrivacyViolation: {
		patterns: []*regexp.Regexp{
			emailPattern,
			phonePattern,
			regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		},
		score: 0.7,
	},
	CategoryMisinformation: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:vaccines?\s+cause\s+autism|the\s+earth\s+is\s+flat|moon\s+landing\s+was\s+(?:faked|fake|staged))\b`),
		},
		score: 0.6,
	},
	CategorySpam: {
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:buy\s+now|click\s+here|limited\s+time\s+offer|free\s+money|act\s+now)\b`),
		},
		score: 0.5,
	},
	CategoryProfanity: {
		patterns: []*regexp.Regexp{profanityPattern},
		score:    0.7,
	},
}

// DefaultCategories returns the categories seeded into every evaluator.
func DefaultCategories() []domain.SafetyCategory {
	return []domain.SafetyCategory{
		newCategory(CategoryHateSpeech, "attacks on people based on protected attributes", domain.RiskHigh),
		newCategory(CategoryHarassment, "threatening or demeaning content aimed at a person", domain.RiskMedium),
		newCategory(CategoryViolence, "violent acts or threats of violence", domain.RiskHigh),
		newCategory(CategorySexualContent, "sexually explicit material", domain.RiskHigh),
		newCategory(CategorySelfHarm, "encouragement or instructions for self-harm", domain.RiskCritical),
		newCategory(CategoryIllegalActivity, "facilitation of illegal acts", domain.RiskHigh),
		newCategory(CategoryPrivacyViolation, "personal data such as emails and phone numbers", domain.RiskMedium),
		newCategory(CategoryMisinformation, "well-known false claims", domain.RiskMedium),
		newCategory(CategorySpam, "unsolicited promotional content", domain.RiskLow),
		newCategory(CategoryProfanity, "profane or vulgar language", domain.RiskLow),
	}
}

func newCategory(name, description string, severity domain.RiskTier) domain.SafetyCategory {
	return domain.SafetyCategory{
		Name:        name,
		Description: description,
		Severity:    severity,
		Threshold:   defaultCategoryThreshold,
		Enabled:     true,
	}
}
