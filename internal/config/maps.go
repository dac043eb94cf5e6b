package config

type MapsConfig struct {
	Provider string `yaml:"provider"` // google or direct
	APIKey   string `yaml:"api_key"`
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		Provider: getEnv("MAPS_PROVIDER", "direct"),
		APIKey:   getEnv("GOOGLE_MAPS_API_KEY", ""),
	}
}
