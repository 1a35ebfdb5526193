package cfg

type Cfg struct {
	// Storage
	DBPath              string
	NeighborhoodMapPath string
	DiscoveredZonesPath string

	// Crawling
	PortalsDir         string
	WorkerCount        int
	SchedulerInterval  int
	ReapInterval       int
	RetentionDays      int
	MaxPrice           float64
	TargetCities       []string
	UnchangedThreshold int
	MaxPages           int
	ChromePath         string

	// HTTP
	Port         string
	APIAccessKey string
	BaseURL      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// PublicURL returns the public base URL, or a localhost URL on the
// configured port when none is set.
func (c *Cfg) PublicURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "http://localhost:" + c.Port
}
