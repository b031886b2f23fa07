package registry

// DefaultEstimatedFollowers is shown for competitors without a configured estimate.
const DefaultEstimatedFollowers = 5000

type Competitor struct {
	Name               string `yaml:"name" json:"name"`
	HomepageURL        string `yaml:"url" json:"url"`
	SocialProfileURL   string `yaml:"social" json:"social_url"`
	LogoURL            string `yaml:"logo" json:"logo_url"`
	MarketPosition     string `yaml:"market_position" json:"market_position"`
	DisplayColor       string `yaml:"color" json:"color"`
	IsSelf             bool   `yaml:"is_self" json:"is_self"`
	EstimatedFollowers int    `yaml:"estimated_followers" json:"estimated_followers"`
}

// FollowerEstimate returns the configured estimate or DefaultEstimatedFollowers.
func (c Competitor) FollowerEstimate() int {
	if c.EstimatedFollowers > 0 {
		return c.EstimatedFollowers
	}
	return DefaultEstimatedFollowers
}

type Config struct {
	StrategicKeywords []string     `yaml:"strategic_keywords"`
	EventKeywords     []string     `yaml:"event_keywords"`
	Competitors       []Competitor `yaml:"competitors"`
}
