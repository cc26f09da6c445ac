package safety

// Classifier names accepted by Config.Classifier.
const (
	ClassifierPattern = "pattern"
	ClassifierOpenAI  = "openai"
)

// Config contains safety evaluator settings.
type Config struct {
	PreEnabled          bool    `env:"SAFETY_PRE_ENABLED"          envDefault:"true"    json:"pre_enabled"`
	PostEnabled         bool    `env:"SAFETY_POST_ENABLED"         envDefault:"true"    json:"post_enabled"`
	PreThreshold        float64 `env:"SAFETY_PRE_THRESHOLD"        envDefault:"0.7"     json:"pre_threshold"        validate:"gte=0,lte=1"`
	PostThreshold       float64 `env:"SAFETY_POST_THRESHOLD"       envDefault:"0.7"     json:"post_threshold"       validate:"gte=0,lte=1"`
	RedactionEnabled    bool    `env:"SAFETY_REDACTION_ENABLED"    envDefault:"true"    json:"redaction_enabled"`
	RegenerationEnabled bool    `env:"SAFETY_REGENERATION_ENABLED" envDefault:"false"   json:"regeneration_enabled"`
	LogAll              bool    `env:"SAFETY_LOG_ALL"              envDefault:"false"   json:"log_all"`
	AuditHighRisk       bool    `env:"SAFETY_AUDIT_HIGH_RISK"      envDefault:"true"    json:"audit_high_risk"`
	AuditCapacity       int     `env:"SAFETY_AUDIT_CAPACITY"       envDefault:"10000"   json:"audit_capacity"       validate:"gt=0"`
	Classifier          string  `env:"SAFETY_CLASSIFIER"           envDefault:"pattern" json:"classifier"           validate:"oneof=pattern openai"`
}

// DefaultConfig returns the settings used when none are supplied.
func DefaultConfig() Config {
	return Config{
		PreEnabled:       true,
		PostEnabled:      true,
		PreThreshold:     0.7,
		PostThreshold:    0.7,
		RedactionEnabled: true,
		AuditHighRisk:    true,
		AuditCapacity:    10000,
		Classifier:       ClassifierPattern,
	}
}

// ModerationConfig contains the OpenAI moderation classifier settings.
type ModerationConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL"         envDefault:"https://api.openai.com/v1"`
	Timeout int    `env:"OPENAI_TIMEOUT"          envDefault:"60"`
	Model   string `env:"OPENAI_MODERATION_MODEL" envDefault:"omni-moderation-latest"`
}
